package calls

import (
	"strings"
	"time"
)

// CallSession is this system's record of one phone call, tracked
// independently of the provider's own call identifier.
//
// Multi-tenant invariant: WorkspaceID is required on every row.
//
// Status only ever moves forward; COMPLETED is terminal and is applied
// exactly once (repeated "completed" callbacks are no-ops).
type CallSession struct {
	ID             string `json:"id" db:"id"`
	WorkspaceID    string `json:"workspace_id" db:"workspace_id"`
	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`

	Status CallStatus `json:"status" db:"status"`

	ConversationID string `json:"conversation_id" db:"conversation_id"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

type CallStatus string

const (
	CallStatusRinging    CallStatus = "RINGING"
	CallStatusInProgress CallStatus = "IN_PROGRESS"
	CallStatusCompleted  CallStatus = "COMPLETED"
)

// Terminal reports whether no further status transitions are allowed.
func (s CallStatus) Terminal() bool { return s == CallStatusCompleted }

// AnswerMachineItem is a captured voicemail or callback request generated
// when a call is diverted away from live handling.
//
// Lifecycle: NEW -> IN_PROGRESS -> NEW (ready, has transcript) or FAILED.
// An item whose transcript is meaningful (see MeaningfulTranscript) is final
// and must never be re-transcribed.
type AnswerMachineItem struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// CallSessionID may be empty; items can be retroactively linked.
	CallSessionID  string `json:"call_session_id,omitempty" db:"call_session_id"`
	ConversationID string `json:"conversation_id" db:"conversation_id"`

	Type   ItemType   `json:"type" db:"item_type"`
	Status ItemStatus `json:"status" db:"status"`

	// Reason records why the caller was diverted:
	// after_hours, dtmf_0, dtmf_1, fallback, disabled.
	Reason string `json:"reason,omitempty" db:"reason"`

	FromNumber string `json:"from_number,omitempty" db:"from_number"`

	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`
	RecordingSID string `json:"recording_sid,omitempty" db:"recording_sid"`

	TranscriptText string `json:"transcript_text,omitempty" db:"transcript_text"`

	// Callback fields are only meaningful for ItemTypeCallback.
	CallbackNumber string `json:"callback_number,omitempty" db:"callback_number"`
	CallbackNotes  string `json:"callback_notes,omitempty" db:"callback_notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ItemType string

const (
	ItemTypeVoicemail ItemType = "VOICEMAIL"
	ItemTypeCallback  ItemType = "CALLBACK"
)

type ItemStatus string

const (
	ItemStatusNew        ItemStatus = "NEW"
	ItemStatusInProgress ItemStatus = "IN_PROGRESS"
	ItemStatusFailed     ItemStatus = "FAILED"
)

// minTranscriptLen is the threshold below which a transcript is considered
// noise (e.g. "." or "um") and the item stays eligible for re-transcription.
const minTranscriptLen = 5

// MeaningfulTranscript reports whether text makes an item final.
func MeaningfulTranscript(text string) bool {
	return len(strings.TrimSpace(text)) > minTranscriptLen
}
