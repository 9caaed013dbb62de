package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tikozap-platform/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for call sessions and
// answer-machine items.
//
// The "newest open voicemail" operations (AttachRecording, AttachTranscript,
// ClaimForTranscription) MUST be atomic read-modify-writes: selection of the
// most recent eligible row and the update of that row happen as one unit, so
// two concurrently delivered webhooks cannot both resolve the same item
// differently. The Postgres implementation locks the selected row inside a
// transaction; the memory implementation holds its mutex across the scan.
type Repository interface {
	CreateSession(ctx context.Context, s CallSession) error
	GetSession(ctx context.Context, workspaceID, id string) (CallSession, error)
	GetSessionByProviderCallID(ctx context.Context, workspaceID, providerCallID string) (CallSession, error)

	// CompleteSession marks the session COMPLETED with the given end time.
	// Returns false when the session was already terminal (idempotent no-op).
	CompleteSession(ctx context.Context, workspaceID, id string, endedAt time.Time) (bool, error)

	CreateItem(ctx context.Context, it AnswerMachineItem) error

	// AttachRecording sets the recording URL on the newest open voicemail
	// item for the session, clears any transcript and resets status to NEW.
	// Returns false when no eligible item exists.
	AttachRecording(ctx context.Context, workspaceID, callSessionID, recordingURL, recordingSID string, now time.Time) (AnswerMachineItem, bool, error)

	// AttachTranscript sets transcript text on the newest open voicemail item
	// that does not already carry a meaningful transcript, and resets status
	// to NEW. Returns false when no eligible item exists.
	AttachTranscript(ctx context.Context, workspaceID, callSessionID, text string, now time.Time) (AnswerMachineItem, bool, error)

	// ClaimForTranscription moves the newest open voicemail item to
	// IN_PROGRESS and records the recording URL, reserving it for a
	// fetch-and-transcribe attempt. Returns false when no eligible item
	// exists.
	ClaimForTranscription(ctx context.Context, workspaceID, callSessionID, recordingURL, recordingSID string, now time.Time) (AnswerMachineItem, bool, error)

	MarkItemFailed(ctx context.Context, workspaceID, itemID string, now time.Time) error

	ListItems(ctx context.Context, workspaceID string, limit int) ([]AnswerMachineItem, error)
	ListSessions(ctx context.Context, workspaceID string, limit int) ([]CallSession, error)
}

// Ledger is the append-only conversation message store the pipeline writes
// human-readable events into. Writes are best-effort from this package's
// point of view; failures are logged, never propagated to the provider.
type Ledger interface {
	AppendSystemMessage(ctx context.Context, workspaceID, conversationID, body string) error
	Touch(ctx context.Context, workspaceID, conversationID string, at time.Time) error
}

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Service advances call sessions and answer-machine items on authenticated
// provider callbacks. All row mutations go through here; handlers never touch
// the repository directly.
type Service struct {
	repo   Repository
	ledger Ledger
	clock  func() time.Time
}

func NewService(repo Repository, ledger Ledger) *Service {
	return &Service{repo: repo, ledger: ledger, clock: time.Now}
}

type CreateItemRequest struct {
	WorkspaceID    string
	ConversationID string
	CallSessionID  string
	Type           ItemType
	FromNumber     string
	Reason         string
	CallbackNumber string
	CallbackNotes  string
}

// CreateAnswerMachineItem records a new NEW item. Concurrent diversions for
// the same call may create multiple items; the newest-item selection rule in
// the attach operations resolves the ambiguity.
func (s *Service) CreateAnswerMachineItem(ctx context.Context, req CreateItemRequest) (AnswerMachineItem, error) {
	if req.WorkspaceID == "" || req.ConversationID == "" {
		return AnswerMachineItem{}, ErrInvalidArgument
	}
	if req.Type != ItemTypeVoicemail && req.Type != ItemTypeCallback {
		return AnswerMachineItem{}, fmt.Errorf("%w: unknown item type %q", ErrInvalidArgument, req.Type)
	}

	now := s.clock().UTC()
	it := AnswerMachineItem{
		ID:             uuid.NewString(),
		WorkspaceID:    req.WorkspaceID,
		CallSessionID:  req.CallSessionID,
		ConversationID: req.ConversationID,
		Type:           req.Type,
		Status:         ItemStatusNew,
		Reason:         req.Reason,
		FromNumber:     req.FromNumber,
		CallbackNumber: req.CallbackNumber,
		CallbackNotes:  req.CallbackNotes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateItem(ctx, it); err != nil {
		return AnswerMachineItem{}, err
	}
	return it, nil
}

// HandleCallStatus applies a provider status callback to a session.
// Only a terminal "completed" status mutates the row; everything else,
// including repeated or unrecognized statuses, is a no-op.
func (s *Service) HandleCallStatus(ctx context.Context, workspaceID, callSessionID, status string) error {
	if workspaceID == "" || callSessionID == "" {
		return ErrInvalidArgument
	}

	if !strings.EqualFold(strings.TrimSpace(status), "completed") {
		logger.From(ctx).Debug("ignoring non-terminal call status", "status", status, "call_session_id", callSessionID)
		return nil
	}

	changed, err := s.repo.CompleteSession(ctx, workspaceID, callSessionID, s.clock().UTC())
	if err != nil {
		return err
	}
	if !changed {
		logger.From(ctx).Info("call already completed", "call_session_id", callSessionID)
	}
	return nil
}

// AttachRecording links a recording URL to the newest open voicemail item of
// the session. A recording arriving for a call that was answered by a human
// (no open item) is a benign no-op.
func (s *Service) AttachRecording(ctx context.Context, workspaceID, callSessionID, recordingURL, recordingSID string) (AnswerMachineItem, bool, error) {
	if workspaceID == "" || callSessionID == "" || recordingURL == "" {
		return AnswerMachineItem{}, false, ErrInvalidArgument
	}

	it, ok, err := s.repo.AttachRecording(ctx, workspaceID, callSessionID, recordingURL, recordingSID, s.clock().UTC())
	if err != nil {
		return AnswerMachineItem{}, false, err
	}
	if !ok {
		logger.From(ctx).Info("no open voicemail item for recording", "call_session_id", callSessionID)
	}
	return it, ok, nil
}

// AttachTranscript stores transcript text on the newest open voicemail item,
// appends a ledger entry and touches the conversation. Items already carrying
// a meaningful transcript are skipped, which makes duplicate transcription
// callbacks no-ops.
func (s *Service) AttachTranscript(ctx context.Context, workspaceID, callSessionID, text string) (AnswerMachineItem, bool, error) {
	if workspaceID == "" || callSessionID == "" {
		return AnswerMachineItem{}, false, ErrInvalidArgument
	}

	now := s.clock().UTC()
	it, ok, err := s.repo.AttachTranscript(ctx, workspaceID, callSessionID, text, now)
	if err != nil {
		return AnswerMachineItem{}, false, err
	}
	if !ok {
		logger.From(ctx).Info("no transcribable voicemail item", "call_session_id", callSessionID)
		return AnswerMachineItem{}, false, nil
	}

	s.recordTranscript(ctx, it, now)
	return it, true, nil
}

// ClaimForTranscription reserves the newest open voicemail item for a
// fetch-and-transcribe attempt.
func (s *Service) ClaimForTranscription(ctx context.Context, workspaceID, callSessionID, recordingURL, recordingSID string) (AnswerMachineItem, bool, error) {
	if workspaceID == "" || callSessionID == "" {
		return AnswerMachineItem{}, false, ErrInvalidArgument
	}
	return s.repo.ClaimForTranscription(ctx, workspaceID, callSessionID, recordingURL, recordingSID, s.clock().UTC())
}

// CompleteTranscription finishes a previously claimed item with the
// transcript produced by the speech-to-text service. An empty transcript
// (transcription disabled or silent recording) releases the item back to NEW
// without a ledger entry.
func (s *Service) CompleteTranscription(ctx context.Context, workspaceID, callSessionID, text string) (AnswerMachineItem, bool, error) {
	return s.AttachTranscript(ctx, workspaceID, callSessionID, text)
}

// MarkFailed moves an item to FAILED after an unrecoverable downstream error.
// Best-effort: failures are logged, never returned, so webhook handlers can
// call it on their error paths unconditionally.
func (s *Service) MarkFailed(ctx context.Context, workspaceID, itemID string) {
	if workspaceID == "" || itemID == "" {
		return
	}
	if err := s.repo.MarkItemFailed(ctx, workspaceID, itemID, s.clock().UTC()); err != nil {
		logger.From(ctx).Error("mark item failed", "item_id", itemID, "err", err)
	}
}

func (s *Service) GetSession(ctx context.Context, workspaceID, id string) (CallSession, error) {
	if workspaceID == "" || id == "" {
		return CallSession{}, ErrInvalidArgument
	}
	return s.repo.GetSession(ctx, workspaceID, id)
}

func (s *Service) GetSessionByProviderCallID(ctx context.Context, workspaceID, providerCallID string) (CallSession, error) {
	if workspaceID == "" || providerCallID == "" {
		return CallSession{}, ErrInvalidArgument
	}
	return s.repo.GetSessionByProviderCallID(ctx, workspaceID, providerCallID)
}

func (s *Service) ListItems(ctx context.Context, workspaceID string, limit int) ([]AnswerMachineItem, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListItems(ctx, workspaceID, limit)
}

func (s *Service) ListSessions(ctx context.Context, workspaceID string, limit int) ([]CallSession, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListSessions(ctx, workspaceID, limit)
}

// recordTranscript writes the human-readable ledger entry for a stored
// transcript. Ledger failures must not bubble up to the provider response.
func (s *Service) recordTranscript(ctx context.Context, it AnswerMachineItem, now time.Time) {
	if s.ledger == nil || it.ConversationID == "" {
		return
	}
	// Noise transcripts keep the item open; they never reach the ledger.
	if !MeaningfulTranscript(it.TranscriptText) {
		return
	}

	body := "Voicemail transcript: " + strings.TrimSpace(it.TranscriptText)
	if err := s.ledger.AppendSystemMessage(ctx, it.WorkspaceID, it.ConversationID, body); err != nil {
		logger.From(ctx).Error("ledger append failed", "conversation_id", it.ConversationID, "err", err)
		return
	}
	if err := s.ledger.Touch(ctx, it.WorkspaceID, it.ConversationID, now); err != nil {
		logger.From(ctx).Warn("conversation touch failed", "conversation_id", it.ConversationID, "err", err)
	}
}
