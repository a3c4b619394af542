// Package analysis polls the results store for per-segment video analyses and folds them
// into one report.
package analysis

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Record is one stored analysis result as returned by the results store.
type Record struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"sessionId"`
	SegmentIndex int             `json:"segmentIndex"`
	Payload      json.RawMessage `json:"results"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// UnmarshalJSON accepts records whose analysis sits under "results", under "analysisData",
// or directly next to the record metadata.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.Wrap(err, "record is not a JSON object")
	}

	var meta struct {
		ID           json.RawMessage `json:"id"`
		SessionID    string          `json:"sessionId"`
		SegmentIndex *float64        `json:"segmentIndex"`
		CreatedAt    *time.Time      `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return errors.Wrap(err, "invalid record metadata")
	}

	*r = Record{SessionID: meta.SessionID, Payload: json.RawMessage(data)}
	if len(meta.ID) > 0 {
		var s string
		if err := json.Unmarshal(meta.ID, &s); err == nil {
			r.ID = s
		} else {
			r.ID = string(meta.ID)
		}
	}
	if meta.SegmentIndex != nil {
		r.SegmentIndex = int(*meta.SegmentIndex)
	}
	if meta.CreatedAt != nil {
		r.CreatedAt = *meta.CreatedAt
	}
	return nil
}

// Segment is the decoded analysis of one segment.
type Segment struct {
	Index       int                 `json:"-"`
	RecordID    string              `json:"-"`
	Speech      *SpeechAnalysis     `json:"speech_analysis,omitempty"`
	Facial      *FacialAnalysis     `json:"facial_analysis,omitempty"`
	Confidence  *ConfidenceAnalysis `json:"confidence_analysis,omitempty"`
	Overall     *OverallScore       `json:"overall_score,omitempty"`
	Annotations []json.RawMessage   `json:"annotationResults,omitempty"`
	DurationSec float64             `json:"durationSec"`
}

// SpeechAnalysis holds speech metrics of one segment.
type SpeechAnalysis struct {
	Transcript     string            `json:"transcript"`
	TotalWords     float64           `json:"total_words"`
	WordsPerMinute float64           `json:"words_per_minute"`
	ClarityScore   float64           `json:"clarity_score"`
	FillerWords    *FillerWords      `json:"filler_words,omitempty"`
	Pacing         *Pacing           `json:"pacing_analysis,omitempty"`
	Utterances     []json.RawMessage `json:"utterances,omitempty"`
}

// FillerWords counts filler words.
type FillerWords struct {
	Count      float64           `json:"count"`
	Percentage float64           `json:"percentage"`
	Details    []json.RawMessage `json:"details,omitempty"`
}

// Pacing carries per-time words-per-minute samples.
type Pacing struct {
	WPMTimeline []json.RawMessage `json:"wpm_timeline,omitempty"`
}

// FacialAnalysis holds facial-emotion metrics of one segment.
type FacialAnalysis struct {
	EmotionTimeline            []json.RawMessage      `json:"emotion_timeline,omitempty"`
	EmotionStatistics          map[string]EmotionStat `json:"emotion_statistics,omitempty"`
	TotalFramesAnalyzed        float64                `json:"total_frames_analyzed"`
	AverageDetectionConfidence float64                `json:"average_detection_confidence"`
}

// EmotionStat summarizes one emotion dimension.
type EmotionStat struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Std     float64 `json:"std"`
}

// ConfidenceAnalysis holds confidence metrics.
type ConfidenceAnalysis struct {
	AverageEyeContactScore float64 `json:"average_eye_contact_score"`
	EyeContactConsistency  float64 `json:"eye_contact_consistency"`
	HeadStabilityScore     float64 `json:"head_stability_score"`
	ConfidenceScore        float64 `json:"confidence_score"`
}

// OverallScore is a scored summary.
type OverallScore struct {
	OverallScore    float64            `json:"overall_score"`
	Grade           string             `json:"grade"`
	ComponentScores map[string]float64 `json:"component_scores"`
}

// Emotions are the emotion dimensions tracked in a report.
var Emotions = []string{"joy", "sorrow", "anger", "surprise"}

// Component score keys.
const (
	ComponentSpeechClarity = "speech_clarity"
	ComponentPositivity    = "positivity"
	ComponentConfidence    = "confidence"
)

// Report is the aggregated analysis of a session.
type Report struct {
	Speech      SpeechReport       `json:"speech_analysis"`
	Facial      FacialReport       `json:"facial_analysis"`
	Confidence  ConfidenceAnalysis `json:"confidence_analysis"`
	Overall     OverallScore       `json:"overall_score"`
	Annotations []json.RawMessage  `json:"annotationResults"`
	DurationSec float64            `json:"durationSec"`
	// SegmentCount is the number of segments folded into the report.
	SegmentCount int `json:"segmentCount"`
	// Skipped lists indexes of segments that could not be folded.
	Skipped []int `json:"skippedSegments,omitempty"`
}

// SpeechReport is the merged speech analysis.
type SpeechReport struct {
	Transcript     string            `json:"transcript"`
	TotalWords     int               `json:"total_words"`
	WordsPerMinute float64           `json:"words_per_minute"`
	ClarityScore   float64           `json:"clarity_score"`
	FillerWords    FillerReport      `json:"filler_words"`
	Pacing         PacingReport      `json:"pacing_analysis"`
	Utterances     []json.RawMessage `json:"utterances"`
}

// FillerReport is the merged filler-word count.
type FillerReport struct {
	Count      int               `json:"count"`
	Percentage float64           `json:"percentage"`
	Details    []json.RawMessage `json:"details"`
}

// PacingReport is the merged pacing timeline.
type PacingReport struct {
	WPMTimeline []json.RawMessage `json:"wpm_timeline"`
}

// FacialReport is the merged facial analysis.
type FacialReport struct {
	EmotionTimeline            []json.RawMessage      `json:"emotion_timeline"`
	EmotionStatistics          map[string]EmotionStat `json:"emotion_statistics"`
	TotalFramesAnalyzed        int                    `json:"total_frames_analyzed"`
	AverageDetectionConfidence float64                `json:"average_detection_confidence"`
}

// IsEmpty reports whether no segment contributed to the report.
func (r *Report) IsEmpty() bool {
	return r == nil || r.SegmentCount == 0
}
