package widget

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrNotFound = errors.New("widget: not found")

// Repository looks widgets up by their public embed key.
type Repository interface {
	GetByPublicKey(ctx context.Context, publicKey string) (Widget, error)
}

// PostgresRepo reads widgets from Postgres.
//
// Assumed table: widgets (public_key, workspace_id, enabled,
// allowed_domains jsonb, config jsonb, created_at).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) GetByPublicKey(ctx context.Context, publicKey string) (Widget, error) {
	const q = `
SELECT public_key, workspace_id, enabled,
       coalesce(allowed_domains, '[]'), coalesce(config, '{}'), created_at
FROM widgets
WHERE public_key = $1
`
	var w Widget
	var domains []byte
	var config []byte
	err := r.db.QueryRowContext(ctx, q, publicKey).Scan(
		&w.PublicKey, &w.WorkspaceID, &w.Enabled, &domains, &config, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Widget{}, ErrNotFound
		}
		return Widget{}, err
	}
	if err := json.Unmarshal(domains, &w.AllowedDomains); err != nil {
		return Widget{}, fmt.Errorf("widget: bad allowed_domains for %s: %w", publicKey, err)
	}
	w.Config = json.RawMessage(config)
	return w, nil
}

// MemoryRepo is a fixture repository for tests.
type MemoryRepo struct {
	mu      sync.Mutex
	widgets map[string]Widget
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{widgets: make(map[string]Widget)}
}

func (r *MemoryRepo) Put(w Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[w.PublicKey] = w
}

func (r *MemoryRepo) GetByPublicKey(ctx context.Context, publicKey string) (Widget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.widgets[publicKey]
	if !ok {
		return Widget{}, ErrNotFound
	}
	return w, nil
}
