package widget

import (
	"encoding/json"
	"time"
)

// Widget is the embeddable call/chat widget a tenant installs on their site.
// The pipeline only reads widgets: provisioning belongs to the dashboard.
type Widget struct {
	PublicKey   string `json:"public_key" db:"public_key"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	Enabled     bool   `json:"enabled" db:"enabled"`

	// AllowedDomains are the tenant-configured origin patterns
	// (exact host or *.example.com).
	AllowedDomains []string `json:"allowed_domains" db:"allowed_domains"`

	// Config is the widget's display configuration, served verbatim to the
	// embed script.
	Config json.RawMessage `json:"config" db:"config"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
