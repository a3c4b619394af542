package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wingman/store"
)

func TestSessionTranscriptStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	missing, err := ts.GetSessionTranscript(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := ts.UpsertSessionTranscript(ctx, &store.UpsertSessionTranscript{
		SessionID:     "sess-1",
		InterviewType: "behavioral",
		Status:        "degraded",
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", created.Turns)

	updated, err := ts.UpsertSessionTranscript(ctx, &store.UpsertSessionTranscript{
		SessionID:     "sess-1",
		InterviewType: "behavioral",
		Status:        "completed",
		Turns:         `[{"role":"interviewer","content":"Hi"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := ts.GetSessionTranscript(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "completed", got.Status)
	assert.Contains(t, got.Turns, "interviewer")

	cutoff := time.Now().Add(time.Minute).Unix()
	deleted, err := ts.DeleteSessionTranscripts(ctx, &store.DeleteSessionTranscript{UpdatedBefore: &cutoff})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	require.NoError(t, ts.Migrate(ctx))
	initialized, err := ts.GetDriver().IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)
}
