package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/wingman/store"
)

// StoreSource lists results directly from the results store.
type StoreSource struct {
	Store *store.Store
}

// NewStoreSource creates a StoreSource.
func NewStoreSource(s *store.Store) *StoreSource {
	return &StoreSource{Store: s}
}

// ListResults returns every stored segment of the session, or ErrNotReady when there are none.
func (s *StoreSource) ListResults(ctx context.Context, sessionID string) ([]Record, error) {
	segments, err := s.Store.ListAnalysisSegments(ctx, &store.FindAnalysisSegment{SessionID: &sessionID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list analysis segments")
	}
	if len(segments) == 0 {
		return nil, ErrNotReady
	}
	records := make([]Record, 0, len(segments))
	for _, seg := range segments {
		records = append(records, RecordFromSegment(seg))
	}
	return records, nil
}

// RecordFromSegment converts a stored segment to a Record.
func RecordFromSegment(seg *store.AnalysisSegment) Record {
	return Record{
		ID:           seg.UID,
		SessionID:    seg.SessionID,
		SegmentIndex: int(seg.SegmentIndex),
		Payload:      json.RawMessage(seg.Results),
		CreatedAt:    time.Unix(seg.CreatedTs, 0).UTC(),
	}
}

var (
	_ Source = (*StoreSource)(nil)
	_ Source = (*HTTPSource)(nil)
)
