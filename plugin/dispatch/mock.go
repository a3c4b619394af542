package dispatch

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MockTrigger fails the first FailFirst calls per segment, then accepts.
// With AlwaysFail set every call fails.
type MockTrigger struct {
	mu         sync.Mutex
	FailFirst  int
	AlwaysFail bool
	calls      map[int]int
	Accepted   []Job
}

// Trigger implements Trigger.
func (m *MockTrigger) Trigger(ctx context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[int]int)
	}
	m.calls[job.SegmentIndex]++
	if m.AlwaysFail || m.calls[job.SegmentIndex] <= m.FailFirst {
		return errors.New("analysis service unavailable")
	}
	m.Accepted = append(m.Accepted, job)
	return nil
}

// Calls returns the number of calls made for a segment.
func (m *MockTrigger) Calls(segmentIndex int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[segmentIndex]
}

// AcceptedCount returns the number of accepted jobs.
func (m *MockTrigger) AcceptedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Accepted)
}

var _ Trigger = (*MockTrigger)(nil)
