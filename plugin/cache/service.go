package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hrygo/wingman/plugin/clock"
)

// Config configures the cache service.
type Config struct {
	Capacity        int           // Maximum number of entries (default: 256)
	DefaultTTL      time.Duration // Default TTL for entries (default: 1 hour)
	CleanupInterval time.Duration // Interval between expired-entry sweeps (default: 5 minutes)
	Clock           clock.Clock
}

// Service is a Cache backed by an LRU with a background sweep of expired entries.
type Service struct {
	lru   *LRU
	clock clock.Clock

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	interval time.Duration
}

// NewService creates a cache service and starts its sweep loop. Call Close to stop it.
func NewService(cfg Config) *Service {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		lru:      NewLRU(cfg.Capacity, cfg.DefaultTTL, cfg.Clock),
		clock:    cfg.Clock,
		cancel:   cancel,
		interval: cfg.CleanupInterval,
	}
	s.wg.Add(1)
	go s.sweep(ctx)
	return s
}

// Close stops the sweep loop.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) Get(_ context.Context, key string) ([]byte, bool) {
	return s.lru.Get(key)
}

func (s *Service) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.lru.Set(key, value, ttl)
	return nil
}

func (s *Service) Invalidate(_ context.Context, pattern string) error {
	s.lru.Invalidate(pattern)
	return nil
}

// Len returns the number of cached entries.
func (s *Service) Len() int {
	return s.lru.Len()
}

func (s *Service) sweep(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.interval):
			s.lru.CleanupExpired()
		}
	}
}

var _ Cache = (*Service)(nil)
