package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tikozap-platform/pkg/utils"
)

// PostgresRepo persists sessions and items in Postgres.
//
// Assumed tables:
// - call_sessions (id, workspace_id, provider_call_id, status,
//   conversation_id, created_at, ended_at)
// - answer_machine_items (id, workspace_id, call_session_id, conversation_id,
//   item_type, status, reason, from_number, recording_url, recording_sid,
//   transcript_text, callback_number, callback_notes, created_at, updated_at)
//
// All queries are workspace-scoped.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// eligibleItemQuery selects the newest open voicemail item of a session,
// locking the row so the select and the following UPDATE form one atomic
// read-modify-write even under concurrent webhook delivery.
const eligibleItemQuery = `
SELECT id FROM answer_machine_items
WHERE workspace_id = $1
  AND call_session_id = $2
  AND item_type = 'VOICEMAIL'
  AND status IN ('NEW', 'IN_PROGRESS')
  AND char_length(btrim(coalesce(transcript_text, ''))) <= 5
ORDER BY created_at DESC
LIMIT 1
FOR UPDATE
`

const itemColumns = `
id, workspace_id, coalesce(call_session_id, ''), conversation_id,
item_type, status, coalesce(reason, ''), coalesce(from_number, ''),
coalesce(recording_url, ''), coalesce(recording_sid, ''),
coalesce(transcript_text, ''), coalesce(callback_number, ''),
coalesce(callback_notes, ''), created_at, updated_at
`

func (r *PostgresRepo) CreateSession(ctx context.Context, s CallSession) error {
	const q = `
INSERT INTO call_sessions (id, workspace_id, provider_call_id, status, conversation_id, created_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.WorkspaceID, s.ProviderCallID, s.Status, s.ConversationID, s.CreatedAt, s.EndedAt)
	return err
}

func (r *PostgresRepo) GetSession(ctx context.Context, workspaceID, id string) (CallSession, error) {
	const q = `
SELECT id, workspace_id, provider_call_id, status, conversation_id, created_at, ended_at
FROM call_sessions
WHERE workspace_id = $1 AND id = $2
`
	return scanSession(r.db.QueryRowContext(ctx, q, workspaceID, id))
}

func (r *PostgresRepo) GetSessionByProviderCallID(ctx context.Context, workspaceID, providerCallID string) (CallSession, error) {
	// A provider call id may reappear across tenants in theory; the newest
	// non-terminal session wins, falling back to the newest overall.
	const q = `
SELECT id, workspace_id, provider_call_id, status, conversation_id, created_at, ended_at
FROM call_sessions
WHERE workspace_id = $1 AND provider_call_id = $2
ORDER BY (status = 'COMPLETED'), created_at DESC
LIMIT 1
`
	return scanSession(r.db.QueryRowContext(ctx, q, workspaceID, providerCallID))
}

func (r *PostgresRepo) CompleteSession(ctx context.Context, workspaceID, id string, endedAt time.Time) (bool, error) {
	// The status guard makes repeated "completed" callbacks no-ops.
	const q = `
UPDATE call_sessions
SET status = 'COMPLETED', ended_at = $3
WHERE workspace_id = $1 AND id = $2 AND status <> 'COMPLETED'
`
	res, err := r.db.ExecContext(ctx, q, workspaceID, id, endedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) CreateItem(ctx context.Context, it AnswerMachineItem) error {
	const q = `
INSERT INTO answer_machine_items
  (id, workspace_id, call_session_id, conversation_id, item_type, status,
   reason, from_number, recording_url, recording_sid, transcript_text,
   callback_number, callback_notes, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''),
        NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''),
        NULLIF($13, ''), $14, $15)
`
	_, err := r.db.ExecContext(ctx, q,
		it.ID, it.WorkspaceID, it.CallSessionID, it.ConversationID, it.Type, it.Status,
		it.Reason, it.FromNumber, it.RecordingURL, it.RecordingSID, it.TranscriptText,
		it.CallbackNumber, it.CallbackNotes, it.CreatedAt, it.UpdatedAt)
	return err
}

func (r *PostgresRepo) AttachRecording(ctx context.Context, workspaceID, callSessionID, recordingURL, recordingSID string, now time.Time) (AnswerMachineItem, bool, error) {
	const q = `
UPDATE answer_machine_items
SET recording_url = $2, recording_sid = NULLIF($3, ''), transcript_text = NULL,
    status = 'NEW', updated_at = $4
WHERE id = $1
RETURNING ` + itemColumns
	return r.updateEligibleItem(ctx, workspaceID, callSessionID, func(tx *sql.Tx, id string) rowScanner {
		return tx.QueryRowContext(ctx, q, id, recordingURL, recordingSID, now)
	})
}

func (r *PostgresRepo) AttachTranscript(ctx context.Context, workspaceID, callSessionID, text string, now time.Time) (AnswerMachineItem, bool, error) {
	const q = `
UPDATE answer_machine_items
SET transcript_text = NULLIF($2, ''), status = 'NEW', updated_at = $3
WHERE id = $1
RETURNING ` + itemColumns
	return r.updateEligibleItem(ctx, workspaceID, callSessionID, func(tx *sql.Tx, id string) rowScanner {
		return tx.QueryRowContext(ctx, q, id, text, now)
	})
}

func (r *PostgresRepo) ClaimForTranscription(ctx context.Context, workspaceID, callSessionID, recordingURL, recordingSID string, now time.Time) (AnswerMachineItem, bool, error) {
	const q = `
UPDATE answer_machine_items
SET status = 'IN_PROGRESS', recording_url = $2, recording_sid = NULLIF($3, ''),
    updated_at = $4
WHERE id = $1
RETURNING ` + itemColumns
	return r.updateEligibleItem(ctx, workspaceID, callSessionID, func(tx *sql.Tx, id string) rowScanner {
		return tx.QueryRowContext(ctx, q, id, recordingURL, recordingSID, now)
	})
}

// updateEligibleItem locks the newest open voicemail item inside a transaction
// and applies the given row update to it. Returns false without error when the
// session has no eligible item.
func (r *PostgresRepo) updateEligibleItem(ctx context.Context, workspaceID, callSessionID string, update func(tx *sql.Tx, id string) rowScanner) (AnswerMachineItem, bool, error) {
	var it AnswerMachineItem
	var found bool

	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var id string
		if err := tx.QueryRowContext(ctx, eligibleItemQuery, workspaceID, callSessionID).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}

		got, err := scanItemRow(update(tx, id))
		if err != nil {
			return err
		}
		it, found = got, true
		return nil
	})
	if err != nil {
		return AnswerMachineItem{}, false, err
	}
	return it, found, nil
}

func (r *PostgresRepo) MarkItemFailed(ctx context.Context, workspaceID, itemID string, now time.Time) error {
	const q = `
UPDATE answer_machine_items
SET status = 'FAILED', updated_at = $3
WHERE workspace_id = $1 AND id = $2
`
	_, err := r.db.ExecContext(ctx, q, workspaceID, itemID, now)
	return err
}

func (r *PostgresRepo) ListItems(ctx context.Context, workspaceID string, limit int) ([]AnswerMachineItem, error) {
	const q = `
SELECT ` + itemColumns + `
FROM answer_machine_items
WHERE workspace_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnswerMachineItem
	for rows.Next() {
		it, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListSessions(ctx context.Context, workspaceID string, limit int) ([]CallSession, error) {
	const q = `
SELECT id, workspace_id, provider_call_id, status, conversation_id, created_at, ended_at
FROM call_sessions
WHERE workspace_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallSession
	for rows.Next() {
		var s CallSession
		var endedAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.ProviderCallID, &s.Status, &s.ConversationID, &s.CreatedAt, &endedAt); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			t := endedAt.Time
			s.EndedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (CallSession, error) {
	var s CallSession
	var endedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.WorkspaceID, &s.ProviderCallID, &s.Status, &s.ConversationID, &s.CreatedAt, &endedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallSession{}, ErrNotFound
		}
		return CallSession{}, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return s, nil
}

func scanItemRow(row rowScanner) (AnswerMachineItem, error) {
	var it AnswerMachineItem
	err := row.Scan(
		&it.ID, &it.WorkspaceID, &it.CallSessionID, &it.ConversationID,
		&it.Type, &it.Status, &it.Reason, &it.FromNumber,
		&it.RecordingURL, &it.RecordingSID, &it.TranscriptText,
		&it.CallbackNumber, &it.CallbackNotes, &it.CreatedAt, &it.UpdatedAt,
	)
	return it, err
}
