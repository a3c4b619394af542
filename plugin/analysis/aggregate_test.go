package analysis

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(index int, id, payload string) Record {
	return Record{ID: id, SessionID: "sess", SegmentIndex: index, Payload: json.RawMessage(payload)}
}

func speechPayload(transcript string, words, fillers int, wpm float64) string {
	return fmt.Sprintf(`{"results":{"speech_analysis":{"transcript":%q,"total_words":%d,"words_per_minute":%g,"clarity_score":0.8,"filler_words":{"count":%d,"details":[{"word":"um"}]},"pacing_analysis":{"wpm_timeline":[{"t":%d}]}}}}`,
		transcript, words, wpm, fillers, words)
}

func TestAggregate_Empty(t *testing.T) {
	for _, records := range [][]Record{nil, {}, {rec(0, "x", `[]`), rec(1, "y", `{}`)}} {
		report := Aggregate(records)
		require.NotNil(t, report)
		assert.True(t, report.IsEmpty())
		assert.Equal(t, "", report.Speech.Transcript)
		assert.Len(t, report.Facial.EmotionStatistics, len(Emotions))
		assert.NotNil(t, report.Annotations)
		assert.Empty(t, report.Overall.Grade)
	}
}

func TestAggregate_FillerPercentageFromTotals(t *testing.T) {
	report := Aggregate([]Record{
		rec(0, "a", speechPayload("first", 10, 2, 100)),
		rec(1, "b", speechPayload("second", 30, 1, 140)),
	})

	assert.Equal(t, 40, report.Speech.TotalWords)
	assert.Equal(t, 3, report.Speech.FillerWords.Count)
	assert.InDelta(t, 7.5, report.Speech.FillerWords.Percentage, 1e-9)
	assert.InDelta(t, 120, report.Speech.WordsPerMinute, 1e-9)
	assert.Len(t, report.Speech.FillerWords.Details, 2)
	assert.Len(t, report.Speech.Pacing.WPMTimeline, 2)
}

func TestAggregate_TranscriptFollowsSegmentIndex(t *testing.T) {
	records := []Record{
		rec(2, "c", speechPayload("three", 1, 0, 90)),
		rec(0, "a", speechPayload("one", 1, 0, 90)),
		rec(1, "b", speechPayload("  two  ", 1, 0, 90)),
	}
	assert.Equal(t, "one two three", Aggregate(records).Speech.Transcript)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	records := []Record{
		rec(0, "a", speechPayload("one", 12, 1, 110)),
		rec(1, "b", `{"analysisData":{"facial_analysis":{"total_frames_analyzed":30,"average_detection_confidence":0.9,"emotion_statistics":{"joy":{"average":0.4,"max":0.9,"min":0.1,"std":0.2}}}}}`),
		rec(2, "c", `{"confidence_analysis":{"average_eye_contact_score":0.7,"eye_contact_consistency":0.6,"head_stability_score":0.5,"confidence_score":0.65}}`),
		rec(3, "d", speechPayload("four", 33, 3, 150)),
		rec(4, "e", `"not an object"`),
	}
	want := Aggregate(records)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		shuffled := append([]Record(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Aggregate(shuffled))
	}
	assert.Equal(t, want, Aggregate(records), "aggregation is idempotent")
}

func TestAggregate_MalformedEntryIgnored(t *testing.T) {
	valid := []Record{
		rec(0, "a", speechPayload("one", 10, 1, 100)),
		rec(1, "b", speechPayload("two", 20, 2, 120)),
		rec(2, "c", speechPayload("three", 30, 3, 140)),
	}
	withBad := append(append([]Record(nil), valid...), rec(3, "bad", `{"results":{"speech_analysis":"oops"}}`))

	report := Aggregate(withBad)
	assert.Equal(t, 3, report.SegmentCount)
	assert.Equal(t, 60, report.Speech.TotalWords)
	assert.Equal(t, 6, report.Speech.FillerWords.Count)
	assert.InDelta(t, 120, report.Speech.WordsPerMinute, 1e-9)
	assert.Equal(t, []int{3}, report.Skipped)
}

func TestAggregate_EmotionStatistics(t *testing.T) {
	report := Aggregate([]Record{
		rec(0, "a", `{"facial_analysis":{"total_frames_analyzed":10,"emotion_statistics":{"joy":{"average":0.2,"max":0.3,"min":0.1,"std":0}}}}`),
		rec(1, "b", `{"facial_analysis":{"total_frames_analyzed":20,"emotion_statistics":{"joy":{"average":0.6,"max":0.8,"min":0.4,"std":0},"anger":{"average":0.1,"max":0.2,"min":0.05,"std":0.05}}}}`),
	})

	joy := report.Facial.EmotionStatistics["joy"]
	assert.InDelta(t, 0.4, joy.Average, 1e-9)
	assert.InDelta(t, 0.8, joy.Max, 1e-9)
	assert.InDelta(t, 0.1, joy.Min, 1e-9)
	assert.InDelta(t, 0.2, joy.Std, 1e-9)

	anger := report.Facial.EmotionStatistics["anger"]
	assert.InDelta(t, 0.05, anger.Average, 1e-9)
	assert.InDelta(t, 0.05, anger.Min, 1e-9)

	assert.Equal(t, EmotionStat{}, report.Facial.EmotionStatistics["sorrow"])
	assert.Equal(t, 30, report.Facial.TotalFramesAnalyzed)
}

func TestAggregate_OverallScore(t *testing.T) {
	t.Run("mean of segment scores", func(t *testing.T) {
		report := Aggregate([]Record{
			rec(0, "a", `{"overall_score":{"overall_score":0.9,"component_scores":{"speech_clarity":0.8}}}`),
			rec(1, "b", `{"overall_score":{"overall_score":0.75}}`),
		})
		assert.InDelta(t, 0.825, report.Overall.OverallScore, 1e-9)
		assert.Equal(t, "B", report.Overall.Grade)
		assert.InDelta(t, 0.8, report.Overall.ComponentScores[ComponentSpeechClarity], 1e-9)
	})

	t.Run("derived from components", func(t *testing.T) {
		report := Aggregate([]Record{
			rec(0, "a", `{"speech_analysis":{"clarity_score":0.9},"facial_analysis":{"emotion_statistics":{"joy":{"average":0.75,"max":0.75,"min":0.75,"std":0}}},"confidence_analysis":{"confidence_score":0.6}}`),
		})
		assert.InDelta(t, 0.75, report.Overall.OverallScore, 1e-9)
		assert.Equal(t, "C", report.Overall.Grade)
	})
}

func TestAggregate_DurationAndAnnotations(t *testing.T) {
	report := Aggregate([]Record{
		rec(0, "a", `{"durationSec":61.5,"annotationResults":[{"frame":1}],"speech_analysis":{"utterances":[{"text":"hi"}]}}`),
		rec(1, "b", `{"durationSec":30,"annotationResults":[{"frame":2},null]}`),
	})
	assert.InDelta(t, 91.5, report.DurationSec, 1e-9)
	assert.Len(t, report.Annotations, 2)
	assert.Len(t, report.Speech.Utterances, 1)
}

func TestAggregate_DuplicateRecordCountedOnce(t *testing.T) {
	r := rec(0, "a", speechPayload("one", 10, 1, 100))
	report := Aggregate([]Record{r, r})
	assert.Equal(t, 1, report.SegmentCount)
	assert.Equal(t, 10, report.Speech.TotalWords)
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.95, "A"}, {0.9, "A"}, {0.85, "B"}, {0.7, "C"}, {0.65, "D"}, {0.2, "F"}, {0, "F"}, {87, "B"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%g", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, Grade(tt.score))
		})
	}
}

func TestAggregate_ManySegments(t *testing.T) {
	const n = 2000
	records := make([]Record, n)
	for i := range records {
		records[i] = rec(i, fmt.Sprintf("r%04d", i), speechPayload("word", 5, 1, 120))
	}

	report := Aggregate(records)
	assert.Equal(t, n, report.SegmentCount)
	assert.Equal(t, 5*n, report.Speech.TotalWords)
	assert.Equal(t, n, report.Speech.FillerWords.Count)
	assert.InDelta(t, 120, report.Speech.WordsPerMinute, 1e-6)
	assert.Len(t, report.Speech.FillerWords.Details, n)
	assert.Len(t, report.Speech.Pacing.WPMTimeline, n)
	assert.Empty(t, report.Skipped)
}
