package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldSessionID is the field name for the interview session ID.
	LogFieldSessionID = "session_id"
	// LogFieldRunID is the field name for a single session run.
	LogFieldRunID = "run_id"
	// LogFieldInterviewType is the field name for the interview type.
	LogFieldInterviewType = "interview_type"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
	// LogFieldSegmentIndex is the field name for the analysis segment index.
	LogFieldSegmentIndex = "segment_index"
)

// SessionContext carries the logging identity of one interview session run.
type SessionContext struct {
	SessionID     string
	RunID         string
	InterviewType string
	StartTime     time.Time
	Logger        *slog.Logger
}

// NewSessionContext creates a new session context with a generated run ID.
func NewSessionContext(logger *slog.Logger, sessionID, interviewType string) *SessionContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionContext{
		SessionID:     sessionID,
		RunID:         generateRunID(),
		InterviewType: interviewType,
		StartTime:     time.Now(),
		Logger:        logger,
	}
}

// WithFields returns a new logger with the session fields and additional attributes.
func (s *SessionContext) WithFields(attrs ...slog.Attr) *slog.Logger {
	combined := s.baseAttrsAppended(attrs...)
	args := make([]any, 0, len(combined))
	for _, attr := range combined {
		args = append(args, attr)
	}
	return s.Logger.With(args...)
}

// Duration returns the elapsed time since the session run started.
func (s *SessionContext) Duration() time.Duration {
	return time.Since(s.StartTime)
}

func (s *SessionContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append([]slog.Attr{
		slog.String(LogFieldSessionID, s.SessionID),
		slog.String(LogFieldRunID, s.RunID),
		slog.String(LogFieldInterviewType, s.InterviewType),
	}, attrs...)
}

// generateRunID generates a unique run ID using full UUID.
func generateRunID() string {
	return uuid.New().String()
}

type ctxKey struct{}

// WithSessionContext adds the session context to the context.
func WithSessionContext(ctx context.Context, sessCtx *SessionContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, sessCtx)
}

// FromContext extracts the session context from the context.
func FromContext(ctx context.Context) (*SessionContext, bool) {
	sessCtx, ok := ctx.Value(ctxKey{}).(*SessionContext)
	return sessCtx, ok
}

// LoggerFrom returns the session-scoped logger stored in ctx. Without one it returns
// fallback, or the default logger when fallback is nil.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if sessCtx, ok := FromContext(ctx); ok {
		return sessCtx.WithFields()
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}
