package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockCache is an in-memory Cache without expiry that records hits and misses.
type MockCache struct {
	mu     sync.Mutex
	store  map[string][]byte
	Hits   int
	Misses int
}

// NewMockCache creates a MockCache.
func NewMockCache() *MockCache {
	return &MockCache{store: make(map[string][]byte)}
}

func (m *MockCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[key]
	if ok {
		m.Hits++
	} else {
		m.Misses++
	}
	return v, ok
}

func (m *MockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
	return nil
}

func (m *MockCache) Invalidate(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		for key := range m.store {
			if strings.HasPrefix(key, prefix) {
				delete(m.store, key)
			}
		}
		return nil
	}
	delete(m.store, pattern)
	return nil
}

var _ Cache = (*MockCache)(nil)
