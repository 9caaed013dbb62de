package conversation

import "time"

// Message is an immutable, append-only ledger record inside a conversation.
//
// Invariants:
// - Messages are never updated or deleted.
// - workspace_id is required for tenancy isolation.
//
// Storage recommendation (Postgres):
// - Table conversation_messages with an INSERT-only policy.
type Message struct {
	ID             string `json:"id" db:"id"`
	WorkspaceID    string `json:"workspace_id" db:"workspace_id"`
	ConversationID string `json:"conversation_id" db:"conversation_id"`

	// Role distinguishes who produced the entry: "system" for pipeline
	// events (voicemail received, transcript), "visitor" / "agent" for chat.
	Role string `json:"role" db:"role"`

	Body string `json:"body" db:"body"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	RoleSystem  = "system"
	RoleVisitor = "visitor"
)

// Conversation is the per-contact thread the pipeline writes into. Only
// creation and the last-activity timestamp are managed here; the chat product
// owns the rest of the row.
type Conversation struct {
	ID             string    `json:"id" db:"id"`
	WorkspaceID    string    `json:"workspace_id" db:"workspace_id"`
	Source         string    `json:"source" db:"source"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
}
