package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
		words   float64
	}{
		{name: "nested results", payload: `{"results":{"speech_analysis":{"total_words":12}}}`, words: 12},
		{name: "analysisData", payload: `{"analysisData":{"speech_analysis":{"total_words":7}}}`, words: 7},
		{name: "flat", payload: `{"id":"r1","segmentIndex":0,"speech_analysis":{"total_words":3}}`, words: 3},
		{name: "string encoded", payload: `{"results":"{\"speech_analysis\":{\"total_words\":5}}"}`, words: 5},
		{name: "old double nesting", payload: `{"results":{"results":{"speech_analysis":{"total_words":9}}}}`, words: 9},
		{name: "null results falls back to analysisData", payload: `{"results":null,"analysisData":{"speech_analysis":{"total_words":4}}}`, words: 4},
		{name: "empty results", payload: `{"results":{}}`, wantErr: ErrEmptyResult},
		{name: "metadata only", payload: `{"id":"r1","sessionId":"s","segmentIndex":2}`, wantErr: ErrEmptyResult},
		{name: "empty payload", payload: ``, wantErr: ErrEmptyResult},
		{name: "array", payload: `[1,2]`, wantErr: ErrMalformedResult},
		{name: "number results", payload: `{"results":42}`, wantErr: ErrMalformedResult},
		{name: "wrong field type", payload: `{"results":{"speech_analysis":"x"}}`, wantErr: ErrMalformedResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := DecodeRecord(Record{ID: "r1", SegmentIndex: 2, Payload: json.RawMessage(tt.payload)})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, IsValid(Record{Payload: json.RawMessage(tt.payload)}))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, seg.Speech)
			assert.Equal(t, tt.words, seg.Speech.TotalWords)
			assert.Equal(t, 2, seg.Index)
			assert.Equal(t, "r1", seg.RecordID)
		})
	}
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"id":17,"sessionId":"s1","segmentIndex":3,"createdAt":"2026-01-02T03:04:05Z","analysisData":{"durationSec":12}}`), &r)
	require.NoError(t, err)

	assert.Equal(t, "17", r.ID)
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, 3, r.SegmentIndex)
	assert.Equal(t, 2026, r.CreatedAt.Year())

	seg, err := DecodeRecord(r)
	require.NoError(t, err)
	assert.Equal(t, 12.0, seg.DurationSec)
}

func TestDecodeRecordList(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		records, err := DecodeRecordList([]byte(`[{"id":"a","segmentIndex":0,"results":{"durationSec":1}}, "junk", null]`))
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.True(t, IsValid(records[0]))
		assert.False(t, IsValid(records[1]))
		assert.False(t, IsValid(records[2]))
	})

	t.Run("envelope", func(t *testing.T) {
		records, err := DecodeRecordList([]byte(`{"results":[{"id":"a","results":{"durationSec":1}}]}`))
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("not a list", func(t *testing.T) {
		_, err := DecodeRecordList([]byte(`"nope"`))
		assert.Error(t, err)
	})
}
