package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/hrygo/wingman/plugin/cache"
	"github.com/hrygo/wingman/plugin/interview"
)

const synthesisCachePrefix = "tts:"

// CachedSynthesizer synthesizes each distinct text once. Fallback questions repeat across
// sessions, so their audio is served from the cache.
type CachedSynthesizer struct {
	next  interview.Synthesizer
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedSynthesizer wraps next with c. A non-positive ttl uses the cache default.
func NewCachedSynthesizer(next interview.Synthesizer, c cache.Cache, ttl time.Duration) *CachedSynthesizer {
	return &CachedSynthesizer{next: next, cache: c, ttl: ttl}
}

func (s *CachedSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	key := synthesisKey(text)
	if audio, ok := s.cache.Get(ctx, key); ok {
		return audio, nil
	}
	audio, err := s.next.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, audio, s.ttl); err != nil {
		slog.Warn("failed to cache synthesized audio", "error", err)
	}
	return audio, nil
}

func synthesisKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return synthesisCachePrefix + hex.EncodeToString(sum[:16])
}

var _ interview.Synthesizer = (*CachedSynthesizer)(nil)
