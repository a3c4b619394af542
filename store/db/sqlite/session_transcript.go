package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/wingman/store"
)

func (d *DB) UpsertSessionTranscript(ctx context.Context, upsert *store.UpsertSessionTranscript) (*store.SessionTranscript, error) {
	if upsert == nil || upsert.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	turns := upsert.Turns
	if turns == "" {
		turns = "[]"
	}
	now := time.Now().Unix()
	fields := []string{"session_id", "interview_type", "status", "turns", "created_ts", "updated_ts"}
	args := []any{upsert.SessionID, upsert.InterviewType, upsert.Status, turns, now, now}

	stmt := `INSERT INTO session_transcript (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (session_id) DO UPDATE SET
			interview_type = excluded.interview_type,
			status = excluded.status,
			turns = excluded.turns,
			updated_ts = excluded.updated_ts
		RETURNING id, session_id, interview_type, status, turns, created_ts, updated_ts`

	transcript := &store.SessionTranscript{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&transcript.ID,
		&transcript.SessionID,
		&transcript.InterviewType,
		&transcript.Status,
		&transcript.Turns,
		&transcript.CreatedTs,
		&transcript.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert session_transcript: %w", err)
	}
	return transcript, nil
}

func (d *DB) ListSessionTranscripts(ctx context.Context, find *store.FindSessionTranscript) ([]*store.SessionTranscript, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}
	if find.SessionID != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *find.SessionID)
	}

	query := `SELECT id, session_id, interview_type, status, turns, created_ts, updated_ts
		FROM session_transcript WHERE ` + strings.Join(where, " AND ") + ` ORDER BY updated_ts DESC, id DESC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list session_transcripts: %w", err)
	}
	defer rows.Close()

	list := make([]*store.SessionTranscript, 0)
	for rows.Next() {
		transcript := &store.SessionTranscript{}
		if err := rows.Scan(
			&transcript.ID,
			&transcript.SessionID,
			&transcript.InterviewType,
			&transcript.Status,
			&transcript.Turns,
			&transcript.CreatedTs,
			&transcript.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session_transcript: %w", err)
		}
		list = append(list, transcript)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session_transcripts: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteSessionTranscripts(ctx context.Context, delete *store.DeleteSessionTranscript) (int64, error) {
	if delete == nil {
		return 0, fmt.Errorf("delete parameter cannot be nil")
	}

	where, args := []string{}, []any{}
	if delete.SessionID != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *delete.SessionID)
	}
	if delete.UpdatedBefore != nil {
		where, args = append(where, "updated_ts < "+placeholder(len(args)+1)), append(args, *delete.UpdatedBefore)
	}
	if len(where) == 0 {
		return 0, fmt.Errorf("no condition to delete session_transcript")
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM session_transcript WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session_transcript: %w", err)
	}
	return result.RowsAffected()
}
