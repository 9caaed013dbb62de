package conversation

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepo persists conversations and their message ledger.
//
// Assumed tables:
// - conversations (id, workspace_id, source, created_at, last_activity_at)
// - conversation_messages (id, workspace_id, conversation_id, role, body, created_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateConversation(ctx context.Context, c Conversation) error {
	const q = `
INSERT INTO conversations (id, workspace_id, source, created_at, last_activity_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.WorkspaceID, c.Source, c.CreatedAt, c.LastActivityAt)
	return err
}

func (r *PostgresRepo) AppendMessage(ctx context.Context, m Message) error {
	const q = `
INSERT INTO conversation_messages (id, workspace_id, conversation_id, role, body, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.WorkspaceID, m.ConversationID, m.Role, m.Body, m.CreatedAt)
	return err
}

func (r *PostgresRepo) Touch(ctx context.Context, workspaceID, conversationID string, at time.Time) error {
	const q = `
UPDATE conversations
SET last_activity_at = $3
WHERE workspace_id = $1 AND id = $2 AND last_activity_at < $3
`
	_, err := r.db.ExecContext(ctx, q, workspaceID, conversationID, at)
	return err
}
