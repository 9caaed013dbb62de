package calls

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
//
// The mutex is held across each newest-item scan and its update, mirroring
// the atomicity the Postgres implementation gets from its locking subselect.
type MemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]*CallSession
	items    []*AnswerMachineItem
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: make(map[string]*CallSession)}
}

func (r *MemoryRepo) CreateSession(ctx context.Context, s CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetSession(ctx context.Context, workspaceID, id string) (CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.WorkspaceID != workspaceID {
		return CallSession{}, ErrNotFound
	}
	return *s, nil
}

func (r *MemoryRepo) GetSessionByProviderCallID(ctx context.Context, workspaceID, providerCallID string) (CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *CallSession
	for _, s := range r.sessions {
		if s.WorkspaceID != workspaceID || s.ProviderCallID != providerCallID {
			continue
		}
		if best == nil || betterProviderMatch(s, best) {
			best = s
		}
	}
	if best == nil {
		return CallSession{}, ErrNotFound
	}
	return *best, nil
}

// betterProviderMatch prefers non-terminal sessions, then newer ones.
func betterProviderMatch(cand, cur *CallSession) bool {
	if cand.Status.Terminal() != cur.Status.Terminal() {
		return !cand.Status.Terminal()
	}
	return cand.CreatedAt.After(cur.CreatedAt)
}

func (r *MemoryRepo) CompleteSession(ctx context.Context, workspaceID, id string, endedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.WorkspaceID != workspaceID {
		return false, ErrNotFound
	}
	if s.Status.Terminal() {
		return false, nil
	}
	s.Status = CallStatusCompleted
	t := endedAt
	s.EndedAt = &t
	return true, nil
}

func (r *MemoryRepo) CreateItem(ctx context.Context, it AnswerMachineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := it
	r.items = append(r.items, &cp)
	return nil
}

// newestEligibleLocked implements the "most recent open voicemail without a
// meaningful transcript" selection rule. Callers must hold r.mu.
func (r *MemoryRepo) newestEligibleLocked(workspaceID, callSessionID string) *AnswerMachineItem {
	var best *AnswerMachineItem
	for _, it := range r.items {
		if it.WorkspaceID != workspaceID || it.CallSessionID != callSessionID {
			continue
		}
		if it.Type != ItemTypeVoicemail {
			continue
		}
		if it.Status != ItemStatusNew && it.Status != ItemStatusInProgress {
			continue
		}
		if MeaningfulTranscript(it.TranscriptText) {
			continue
		}
		if best == nil || it.CreatedAt.After(best.CreatedAt) {
			best = it
		}
	}
	return best
}

func (r *MemoryRepo) AttachRecording(ctx context.Context, workspaceID, callSessionID, recordingURL, recordingSID string, now time.Time) (AnswerMachineItem, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.newestEligibleLocked(workspaceID, callSessionID)
	if it == nil {
		return AnswerMachineItem{}, false, nil
	}
	it.RecordingURL = recordingURL
	it.RecordingSID = recordingSID
	it.TranscriptText = ""
	it.Status = ItemStatusNew
	it.UpdatedAt = now
	return *it, true, nil
}

func (r *MemoryRepo) AttachTranscript(ctx context.Context, workspaceID, callSessionID, text string, now time.Time) (AnswerMachineItem, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.newestEligibleLocked(workspaceID, callSessionID)
	if it == nil {
		return AnswerMachineItem{}, false, nil
	}
	it.TranscriptText = text
	it.Status = ItemStatusNew
	it.UpdatedAt = now
	return *it, true, nil
}

func (r *MemoryRepo) ClaimForTranscription(ctx context.Context, workspaceID, callSessionID, recordingURL, recordingSID string, now time.Time) (AnswerMachineItem, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.newestEligibleLocked(workspaceID, callSessionID)
	if it == nil {
		return AnswerMachineItem{}, false, nil
	}
	it.Status = ItemStatusInProgress
	it.RecordingURL = recordingURL
	it.RecordingSID = recordingSID
	it.UpdatedAt = now
	return *it, true, nil
}

func (r *MemoryRepo) MarkItemFailed(ctx context.Context, workspaceID, itemID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.WorkspaceID == workspaceID && it.ID == itemID {
			it.Status = ItemStatusFailed
			it.UpdatedAt = now
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) ListItems(ctx context.Context, workspaceID string, limit int) ([]AnswerMachineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AnswerMachineItem
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		if r.items[i].WorkspaceID == workspaceID {
			out = append(out, *r.items[i])
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListSessions(ctx context.Context, workspaceID string, limit int) ([]CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallSession
	for _, s := range r.sessions {
		if s.WorkspaceID == workspaceID {
			out = append(out, *s)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
