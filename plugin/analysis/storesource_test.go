package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wingman/store"
	storetest "github.com/hrygo/wingman/store/test"
)

func TestStoreSource_ListResults(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewTestingStore(ctx, t)
	source := NewStoreSource(st)

	_, err := source.ListResults(ctx, "sess")
	assert.ErrorIs(t, err, ErrNotReady)

	for i, results := range []string{
		`{"speech_analysis":{"transcript":"second","total_words":4}}`,
		`{"results":{"speech_analysis":{"transcript":"first","total_words":6}}}`,
	} {
		_, err := st.UpsertAnalysisSegment(ctx, &store.UpsertAnalysisSegment{
			UID:          []string{"b", "a"}[i],
			SessionID:    "sess",
			SegmentIndex: int32(1 - i),
			Results:      results,
		})
		require.NoError(t, err)
	}

	records, err := source.ListResults(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)

	report := Aggregate(records)
	assert.Equal(t, "first second", report.Speech.Transcript)
	assert.Equal(t, 10, report.Speech.TotalWords)
}
