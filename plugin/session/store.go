package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hrygo/wingman/plugin/clock"
	"github.com/hrygo/wingman/plugin/interview"
	"github.com/hrygo/wingman/store"
)

// Archive persists transcripts and prunes old session data in the results store.
type Archive struct {
	store *store.Store
	clock clock.Clock
}

// NewArchive creates an Archive over the results store.
func NewArchive(s *store.Store, clk clock.Clock) *Archive {
	if clk == nil {
		clk = clock.New()
	}
	return &Archive{store: s, clock: clk}
}

// SaveTranscript upserts the transcript of a session.
func (a *Archive) SaveTranscript(ctx context.Context, t *Transcript) error {
	turns := t.Turns
	if turns == nil {
		turns = []interview.Turn{}
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal turns: %w", err)
	}
	if _, err := a.store.UpsertSessionTranscript(ctx, &store.UpsertSessionTranscript{
		SessionID:     t.SessionID,
		InterviewType: t.InterviewType,
		Status:        string(t.Status),
		Turns:         string(data),
	}); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// LoadTranscript returns the stored transcript of a session, or nil.
func (a *Archive) LoadTranscript(ctx context.Context, sessionID string) (*Transcript, error) {
	st, err := a.store.GetSessionTranscript(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	var turns []interview.Turn
	if err := json.Unmarshal([]byte(st.Turns), &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal turns: %w", err)
	}
	return &Transcript{
		SessionID:     st.SessionID,
		InterviewType: st.InterviewType,
		Status:        Status(st.Status),
		Turns:         turns,
	}, nil
}

// CleanupExpired deletes analysis segments and transcripts older than retentionDays.
// A zero retention deletes everything written before now.
func (a *Archive) CleanupExpired(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := a.clock.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour).Unix()

	segments, err := a.store.DeleteAnalysisSegments(ctx, &store.DeleteAnalysisSegment{CreatedBefore: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("failed to delete analysis segments: %w", err)
	}
	transcripts, err := a.store.DeleteSessionTranscripts(ctx, &store.DeleteSessionTranscript{UpdatedBefore: &cutoff})
	if err != nil {
		return segments, fmt.Errorf("failed to delete transcripts: %w", err)
	}
	return segments + transcripts, nil
}

var (
	_ TranscriptStore = (*Archive)(nil)
	_ RetentionStore  = (*Archive)(nil)
)
