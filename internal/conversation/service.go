package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the conversation ledger.
// Message writes MUST be append-only; no Update/Delete is provided by design.
type Repository interface {
	CreateConversation(ctx context.Context, c Conversation) error
	AppendMessage(ctx context.Context, m Message) error
	Touch(ctx context.Context, workspaceID, conversationID string, at time.Time) error
}

var ErrInvalidMessage = errors.New("conversation: invalid message")

// Service writes pipeline events into conversations. Callers should treat
// ledger writes as best-effort; a failed append must never fail the webhook
// that triggered it.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Create starts a new conversation thread, e.g. for a widget demo request.
func (s *Service) Create(ctx context.Context, workspaceID, source string) (Conversation, error) {
	if workspaceID == "" {
		return Conversation{}, ErrInvalidMessage
	}
	now := s.clock().UTC()
	c := Conversation{
		ID:             uuid.NewString(),
		WorkspaceID:    workspaceID,
		Source:         source,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := s.repo.CreateConversation(ctx, c); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

// AppendSystemMessage appends a human-readable pipeline event to the ledger.
func (s *Service) AppendSystemMessage(ctx context.Context, workspaceID, conversationID, body string) error {
	if workspaceID == "" || conversationID == "" || body == "" {
		return ErrInvalidMessage
	}
	return s.repo.AppendMessage(ctx, Message{
		ID:             uuid.NewString(),
		WorkspaceID:    workspaceID,
		ConversationID: conversationID,
		Role:           RoleSystem,
		Body:           body,
		CreatedAt:      s.clock().UTC(),
	})
}

// Touch bumps the conversation's last-activity timestamp.
func (s *Service) Touch(ctx context.Context, workspaceID, conversationID string, at time.Time) error {
	if workspaceID == "" || conversationID == "" {
		return ErrInvalidMessage
	}
	return s.repo.Touch(ctx, workspaceID, conversationID, at)
}
