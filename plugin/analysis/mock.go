package analysis

import (
	"context"
	"sync"
)

// MockResponse is one scripted ListResults reply.
type MockResponse struct {
	Records []Record
	Err     error
}

// MockSource replays scripted responses; the last one repeats once the script is exhausted.
type MockSource struct {
	mu        sync.Mutex
	Responses []MockResponse
	calls     int
}

// ListResults returns the next scripted response.
func (m *MockSource) ListResults(ctx context.Context, sessionID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++
	if len(m.Responses) == 0 {
		return nil, ErrNotReady
	}
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	resp := m.Responses[i]
	return append([]Record(nil), resp.Records...), resp.Err
}

// Calls returns how many times ListResults was called.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ Source = (*MockSource)(nil)
