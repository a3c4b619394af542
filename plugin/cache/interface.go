// Package cache provides a byte cache used for synthesized audio and aggregated reports.
package cache

import (
	"context"
	"time"
)

// Cache defines the cache interface.
type Cache interface {
	// Get returns the value and whether it exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value. A non-positive ttl uses the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes an exact key, or every key with the prefix when the pattern ends in "*".
	Invalidate(ctx context.Context, pattern string) error
}
