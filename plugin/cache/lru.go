package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/hrygo/wingman/plugin/clock"
)

// LRU is a size-bounded cache with per-entry TTL.
type LRU struct {
	capacity   int
	defaultTTL time.Duration
	clock      clock.Clock

	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // front is most recently used
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
	element   *list.Element
}

// NewLRU creates an LRU. A nil clock uses the wall clock.
func NewLRU(capacity int, defaultTTL time.Duration, clk clock.Clock) *LRU {
	if capacity <= 0 {
		capacity = 256
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	if clk == nil {
		clk = clock.New()
	}
	return &LRU{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		clock:      clk,
		entries:    make(map[string]*entry),
		order:      list.New(),
	}
}

// Get returns a copy of the value stored under key.
func (c *LRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.remove(e)
		return nil, false
	}
	c.order.MoveToFront(e.element)
	return append([]byte(nil), e.value...), true
}

// Set stores a copy of value under key.
func (c *LRU) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	value = append([]byte(nil), value...)

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry))
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

// Invalidate removes entries matching pattern and returns how many were removed.
// A trailing * matches by prefix.
func (c *LRU) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !strings.HasSuffix(pattern, "*") {
		if e, ok := c.entries[pattern]; ok {
			c.remove(e)
			return 1
		}
		return 0
	}

	prefix := strings.TrimSuffix(pattern, "*")
	count := 0
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.remove(e)
			count++
		}
	}
	return count
}

// Len returns the number of entries, expired ones included.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CleanupExpired removes expired entries and returns how many were removed.
func (c *LRU) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var expired []*entry
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		c.remove(e)
	}
	return len(expired)
}

// Must be called with lock held.
func (c *LRU) remove(e *entry) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}
