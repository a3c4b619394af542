package interview

import (
	"context"
	"sync"

	"github.com/hrygo/wingman/plugin/media"
)

// MockGenerator replays scripted replies in order. Once exhausted it returns Err, or an empty reply.
type MockGenerator struct {
	mu      sync.Mutex
	Replies []string
	Errs    []error
	Err     error
	calls   int
	History [][]Turn
}

// NextQuestion returns the next scripted reply.
func (m *MockGenerator) NextQuestion(ctx context.Context, history []Turn, interviewType, difficulty string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++
	m.History = append(m.History, history)
	if i < len(m.Errs) && m.Errs[i] != nil {
		return "", m.Errs[i]
	}
	if i < len(m.Replies) {
		return m.Replies[i], nil
	}
	return "", m.Err
}

// Calls returns the number of NextQuestion calls.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSynthesizer returns fixed audio or Err.
type MockSynthesizer struct {
	mu    sync.Mutex
	Audio []byte
	Err   error
	Texts []string
}

// Synthesize records text.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Audio, nil
}

// MockPlayer records played audio. When Block is set, Play waits until it is closed.
type MockPlayer struct {
	mu     sync.Mutex
	Err    error
	Block  chan struct{}
	Played [][]byte
}

// Play records audio.
func (m *MockPlayer) Play(ctx context.Context, audio []byte) error {
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Played = append(m.Played, audio)
	return m.Err
}

// MockTranscriber replays scripted transcripts in order and then Default.
type MockTranscriber struct {
	mu       sync.Mutex
	Results  []*Transcription
	Errs     []error
	Default  *Transcription
	Block    chan struct{}
	Received []media.Blob
	calls    int
}

// Transcribe returns the next scripted result.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio media.Blob, sessionID string) (*Transcription, error) {
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.Received = append(m.Received, audio)
	if i < len(m.Errs) && m.Errs[i] != nil {
		return nil, m.Errs[i]
	}
	if i < len(m.Results) {
		return m.Results[i], nil
	}
	return m.Default, nil
}

// Calls returns the number of Transcribe calls.
func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var (
	_ QuestionGenerator = (*MockGenerator)(nil)
	_ Synthesizer       = (*MockSynthesizer)(nil)
	_ Player            = (*MockPlayer)(nil)
	_ Transcriber       = (*MockTranscriber)(nil)
)
