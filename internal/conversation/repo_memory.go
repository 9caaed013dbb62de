package conversation

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	messages      []Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{conversations: make(map[string]*Conversation)}
}

func (r *MemoryRepo) CreateConversation(ctx context.Context, c Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := c
	r.conversations[c.ID] = &cp
	return nil
}

func (r *MemoryRepo) AppendMessage(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *MemoryRepo) Touch(ctx context.Context, workspaceID, conversationID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conversations[conversationID]; ok && c.WorkspaceID == workspaceID {
		if at.After(c.LastActivityAt) {
			c.LastActivityAt = at
		}
	}
	return nil
}

// Messages returns a copy of everything appended so far.
func (r *MemoryRepo) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Get returns a conversation by id, for test assertions.
func (r *MemoryRepo) Get(id string) (Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return Conversation{}, false
	}
	return *c, true
}
