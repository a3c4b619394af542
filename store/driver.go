package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// AnalysisSegment model related methods.
	UpsertAnalysisSegment(ctx context.Context, upsert *UpsertAnalysisSegment) (*AnalysisSegment, error)
	ListAnalysisSegments(ctx context.Context, find *FindAnalysisSegment) ([]*AnalysisSegment, error)
	DeleteAnalysisSegments(ctx context.Context, delete *DeleteAnalysisSegment) (int64, error)

	// SessionTranscript model related methods.
	UpsertSessionTranscript(ctx context.Context, upsert *UpsertSessionTranscript) (*SessionTranscript, error)
	ListSessionTranscripts(ctx context.Context, find *FindSessionTranscript) ([]*SessionTranscript, error)
	DeleteSessionTranscripts(ctx context.Context, delete *DeleteSessionTranscript) (int64, error)
}
