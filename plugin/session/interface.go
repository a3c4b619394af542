// Package session orchestrates one interview session end to end: capture, the
// conversation, upload, analysis and the completion handoff.
package session

import (
	"context"

	"github.com/hrygo/wingman/plugin/analysis"
	"github.com/hrygo/wingman/plugin/interview"
	"github.com/hrygo/wingman/plugin/media"
	"github.com/hrygo/wingman/plugin/metrics"
)

// Status is the terminal status of a session.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusDegraded  Status = "degraded"
	StatusFailed    Status = "failed"
)

// Outcome is handed to the completion callback once a session ends.
type Outcome struct {
	SessionID       string            `json:"sessionId"`
	Status          Status            `json:"status"`
	HasVideo        bool              `json:"hasVideo"`
	HasConversation bool              `json:"hasConversation"`
	Turns           []interview.Turn  `json:"conversationTranscript,omitempty"`
	Report          *analysis.Report  `json:"analysis,omitempty"`
	Progress        analysis.Progress `json:"-"`
	PollState       analysis.State    `json:"-"`
	// Expired is set when the countdown ended the session.
	Expired bool           `json:"expired"`
	Err     error          `json:"-"`
	Stats   *metrics.Stats `json:"stats,omitempty"`
	// Blob is kept when the upload failed so the caller can retry it.
	Blob *media.Blob `json:"-"`
}

// FeedbackGenerator produces written feedback on a finished conversation.
// report is the aggregated analysis and is nil when none was produced.
type FeedbackGenerator interface {
	Feedback(ctx context.Context, sess interview.Session, turns []interview.Turn, report *analysis.Report) (string, error)
}

// Transcript is the persisted record of a finished conversation.
type Transcript struct {
	SessionID     string
	InterviewType string
	Status        Status
	Turns         []interview.Turn
}

// TranscriptStore persists transcripts of finished sessions.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, t *Transcript) error
}

// RetentionStore deletes session data that outlived its retention period.
type RetentionStore interface {
	CleanupExpired(ctx context.Context, retentionDays int) (int64, error)
}
