package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/wingman/store"
)

func (d *DB) UpsertAnalysisSegment(ctx context.Context, upsert *store.UpsertAnalysisSegment) (*store.AnalysisSegment, error) {
	if upsert == nil || upsert.SessionID == "" || upsert.UID == "" {
		return nil, fmt.Errorf("session id and uid are required")
	}
	now := time.Now().Unix()
	fields := []string{"uid", "session_id", "segment_index", "results", "created_ts", "updated_ts"}
	args := []any{upsert.UID, upsert.SessionID, upsert.SegmentIndex, upsert.Results, now, now}

	stmt := `INSERT INTO analysis_segment (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (session_id, segment_index) DO UPDATE SET
			results = EXCLUDED.results,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, uid, session_id, segment_index, results, created_ts, updated_ts`

	segment := &store.AnalysisSegment{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&segment.ID,
		&segment.UID,
		&segment.SessionID,
		&segment.SegmentIndex,
		&segment.Results,
		&segment.CreatedTs,
		&segment.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert analysis_segment: %w", err)
	}
	return segment, nil
}

func (d *DB) ListAnalysisSegments(ctx context.Context, find *store.FindAnalysisSegment) ([]*store.AnalysisSegment, error) {
	if find == nil {
		return nil, fmt.Errorf("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.SessionID != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *find.SessionID)
	}
	if find.SegmentIndex != nil {
		where, args = append(where, "segment_index = "+placeholder(len(args)+1)), append(args, *find.SegmentIndex)
	}

	query := `SELECT id, uid, session_id, segment_index, results, created_ts, updated_ts
		FROM analysis_segment WHERE ` + strings.Join(where, " AND ") + ` ORDER BY segment_index ASC, id ASC`
	if find.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis_segments: %w", err)
	}
	defer rows.Close()

	list := make([]*store.AnalysisSegment, 0)
	for rows.Next() {
		segment := &store.AnalysisSegment{}
		if err := rows.Scan(
			&segment.ID,
			&segment.UID,
			&segment.SessionID,
			&segment.SegmentIndex,
			&segment.Results,
			&segment.CreatedTs,
			&segment.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis_segment: %w", err)
		}
		list = append(list, segment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis_segments: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteAnalysisSegments(ctx context.Context, delete *store.DeleteAnalysisSegment) (int64, error) {
	if delete == nil {
		return 0, fmt.Errorf("delete parameter cannot be nil")
	}

	where, args := []string{}, []any{}
	if delete.SessionID != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *delete.SessionID)
	}
	if delete.CreatedBefore != nil {
		where, args = append(where, "created_ts < "+placeholder(len(args)+1)), append(args, *delete.CreatedBefore)
	}
	if len(where) == 0 {
		return 0, fmt.Errorf("no condition to delete analysis_segment")
	}

	result, err := d.db.ExecContext(ctx, `DELETE FROM analysis_segment WHERE `+strings.Join(where, " AND "), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete analysis_segment: %w", err)
	}
	return result.RowsAffected()
}
