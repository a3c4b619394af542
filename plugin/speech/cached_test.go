package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wingman/plugin/cache"
	"github.com/hrygo/wingman/plugin/interview"
)

func TestCachedSynthesizer(t *testing.T) {
	ctx := context.Background()
	next := &interview.MockSynthesizer{Audio: []byte("mp3")}
	c := cache.NewMockCache()
	s := NewCachedSynthesizer(next, c, 0)

	for i := 0; i < 3; i++ {
		audio, err := s.Synthesize(ctx, "Tell me about yourself.")
		require.NoError(t, err)
		assert.Equal(t, "mp3", string(audio))
	}
	_, err := s.Synthesize(ctx, "Another question")
	require.NoError(t, err)

	assert.Equal(t, []string{"Tell me about yourself.", "Another question"}, next.Texts)
	assert.Equal(t, 2, c.Hits)
}

func TestCachedSynthesizer_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	next := &interview.MockSynthesizer{Err: errors.New("tts down")}
	s := NewCachedSynthesizer(next, cache.NewMockCache(), 0)

	_, err := s.Synthesize(ctx, "q")
	assert.Error(t, err)
	_, err = s.Synthesize(ctx, "q")
	assert.Error(t, err)
	assert.Len(t, next.Texts, 2)
}

func TestSynthesisKey(t *testing.T) {
	assert.Equal(t, synthesisKey("a"), synthesisKey("a"))
	assert.NotEqual(t, synthesisKey("a"), synthesisKey("b"))
	assert.Contains(t, synthesisKey("a"), synthesisCachePrefix)
}
