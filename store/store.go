package store

import (
	"context"

	"github.com/hrygo/wingman/internal/profile"
)

// Store provides database access to analysis segments and session transcripts.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) UpsertAnalysisSegment(ctx context.Context, upsert *UpsertAnalysisSegment) (*AnalysisSegment, error) {
	return s.driver.UpsertAnalysisSegment(ctx, upsert)
}

func (s *Store) ListAnalysisSegments(ctx context.Context, find *FindAnalysisSegment) ([]*AnalysisSegment, error) {
	return s.driver.ListAnalysisSegments(ctx, find)
}

func (s *Store) DeleteAnalysisSegments(ctx context.Context, delete *DeleteAnalysisSegment) (int64, error) {
	return s.driver.DeleteAnalysisSegments(ctx, delete)
}

func (s *Store) UpsertSessionTranscript(ctx context.Context, upsert *UpsertSessionTranscript) (*SessionTranscript, error) {
	return s.driver.UpsertSessionTranscript(ctx, upsert)
}

// GetSessionTranscript returns the transcript of a session, or nil if none was stored.
func (s *Store) GetSessionTranscript(ctx context.Context, sessionID string) (*SessionTranscript, error) {
	list, err := s.driver.ListSessionTranscripts(ctx, &FindSessionTranscript{SessionID: &sessionID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) ListSessionTranscripts(ctx context.Context, find *FindSessionTranscript) ([]*SessionTranscript, error) {
	return s.driver.ListSessionTranscripts(ctx, find)
}

func (s *Store) DeleteSessionTranscripts(ctx context.Context, delete *DeleteSessionTranscript) (int64, error) {
	return s.driver.DeleteSessionTranscripts(ctx, delete)
}
