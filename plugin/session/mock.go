package session

import (
	"context"
	"sync"

	"github.com/hrygo/wingman/plugin/analysis"
	"github.com/hrygo/wingman/plugin/interview"
)

// MockFeedback returns Text or Err and records the turns and reports it was given.
type MockFeedback struct {
	mu      sync.Mutex
	Text    string
	Err     error
	Turns   [][]interview.Turn
	Reports []*analysis.Report
}

// Feedback implements FeedbackGenerator.
func (m *MockFeedback) Feedback(ctx context.Context, sess interview.Session, turns []interview.Turn, report *analysis.Report) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Turns = append(m.Turns, turns)
	m.Reports = append(m.Reports, report)
	return m.Text, m.Err
}

// Calls returns the number of Feedback calls.
func (m *MockFeedback) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Turns)
}

// MockTranscriptStore keeps transcripts in memory.
type MockTranscriptStore struct {
	mu          sync.Mutex
	Err         error
	Transcripts map[string]*Transcript
}

// NewMockTranscriptStore creates an empty MockTranscriptStore.
func NewMockTranscriptStore() *MockTranscriptStore {
	return &MockTranscriptStore{Transcripts: make(map[string]*Transcript)}
}

// SaveTranscript implements TranscriptStore.
func (m *MockTranscriptStore) SaveTranscript(ctx context.Context, t *Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Transcripts[t.SessionID] = t
	return nil
}

// Get returns the stored transcript of a session.
func (m *MockTranscriptStore) Get(sessionID string) *Transcript {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Transcripts[sessionID]
}

// MockRetentionStore counts cleanup runs.
type MockRetentionStore struct {
	mu      sync.Mutex
	Deleted int64
	Err     error
	runs    []int
}

// CleanupExpired implements RetentionStore.
func (m *MockRetentionStore) CleanupExpired(ctx context.Context, retentionDays int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, retentionDays)
	return m.Deleted, m.Err
}

// Runs returns the retention passed to each run.
func (m *MockRetentionStore) Runs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.runs...)
}

var (
	_ FeedbackGenerator = (*MockFeedback)(nil)
	_ TranscriptStore   = (*MockTranscriptStore)(nil)
	_ RetentionStore    = (*MockRetentionStore)(nil)
)
