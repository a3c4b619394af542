package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	apperrors "github.com/hrygo/wingman/internal/errors"
)

// Aggregate folds records into one report. Invalid records are skipped and logged.
// The result depends only on the set of records, not on their order.
func Aggregate(records []Record) *Report {
	return AggregateWithLogger(slog.Default(), records)
}

// AggregateWithLogger is Aggregate with an explicit logger.
func AggregateWithLogger(logger *slog.Logger, records []Record) *Report {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sortRecords(sorted)

	segments := make([]*Segment, 0, len(sorted))
	var skipped []int
	seen := make(map[string]struct{}, len(sorted))
	for _, r := range sorted {
		if r.ID != "" {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
		}
		seg, err := DecodeRecord(r)
		if err != nil {
			logger.Warn("skipping invalid analysis segment",
				"segment_index", r.SegmentIndex, "record_id", r.ID, "error", err)
			skipped = append(skipped, r.SegmentIndex)
			continue
		}
		segments = append(segments, seg)
	}

	report := AggregateSegments(logger, segments)
	report.Skipped = append(skipped, report.Skipped...)
	sort.Ints(report.Skipped)
	return report
}

// AggregateSegments folds decoded segments, which must already be in segment order.
func AggregateSegments(logger *slog.Logger, segments []*Segment) *Report {
	report := newReport()
	if len(segments) == 0 {
		return report
	}

	f := newFold(len(segments))
	for _, seg := range segments {
		if err := f.add(seg); err != nil {
			logger.Warn("segment could not be aggregated", "segment_index", seg.Index, "error", err)
			report.Skipped = append(report.Skipped, seg.Index)
		}
	}
	f.finish(report)
	return report
}

func newReport() *Report {
	stats := make(map[string]EmotionStat, len(Emotions))
	for _, e := range Emotions {
		stats[e] = EmotionStat{}
	}
	return &Report{
		Speech: SpeechReport{
			FillerWords: FillerReport{Details: []json.RawMessage{}},
			Pacing:      PacingReport{WPMTimeline: []json.RawMessage{}},
			Utterances:  []json.RawMessage{},
		},
		Facial: FacialReport{
			EmotionTimeline:   []json.RawMessage{},
			EmotionStatistics: stats,
		},
		Overall:     OverallScore{ComponentScores: map[string]float64{}},
		Annotations: []json.RawMessage{},
	}
}

type emotionAcc struct {
	avgSum    float64
	secondSum float64
	max       float64
	min       float64
	seen      bool
}

// fold accumulates segment contributions. Rates are weighted by 1/n where n is the number
// of valid segments.
type fold struct {
	n      float64
	folded int

	transcripts []string
	words       float64
	fillers     float64
	frames      float64
	duration    float64

	wpm, clarity, detection                 float64
	eyeContact, consistency, head, confScore float64

	emotions map[string]*emotionAcc

	overallSum   float64
	overallCount int
	components   map[string]float64
	compCount    map[string]int

	fillerDetails, wpmTimeline, utterances, emotionTimeline, annotations []json.RawMessage
}

func newFold(n int) *fold {
	f := &fold{
		n:          float64(n),
		emotions:   make(map[string]*emotionAcc, len(Emotions)),
		components: map[string]float64{},
		compCount:  map[string]int{},
	}
	for _, e := range Emotions {
		f.emotions[e] = &emotionAcc{}
	}
	return f
}

// add folds one segment. A panic inside the segment only drops that segment.
func (f *fold) add(seg *Segment) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.AggregationFailed(seg.Index, fmt.Errorf("panic: %v", r))
		}
	}()

	// Stage the segment on its own so that a failing segment contributes nothing.
	delta := newFold(int(f.n))
	delta.apply(seg)
	f.merge(delta)
	return nil
}

func (f *fold) apply(seg *Segment) {
	f.folded++
	f.duration += seg.DurationSec
	f.annotations = append(f.annotations, seg.Annotations...)

	if s := seg.Speech; s != nil {
		if t := strings.TrimSpace(s.Transcript); t != "" {
			f.transcripts = append(f.transcripts, t)
		}
		f.words += s.TotalWords
		f.wpm += s.WordsPerMinute / f.n
		f.clarity += s.ClarityScore / f.n
		if s.FillerWords != nil {
			f.fillers += s.FillerWords.Count
			f.fillerDetails = append(f.fillerDetails, s.FillerWords.Details...)
		}
		if s.Pacing != nil {
			f.wpmTimeline = append(f.wpmTimeline, s.Pacing.WPMTimeline...)
		}
		f.utterances = append(f.utterances, s.Utterances...)
	}

	if fa := seg.Facial; fa != nil {
		f.frames += fa.TotalFramesAnalyzed
		f.detection += fa.AverageDetectionConfidence / f.n
		f.emotionTimeline = append(f.emotionTimeline, fa.EmotionTimeline...)
		for _, e := range Emotions {
			stat, ok := fa.EmotionStatistics[e]
			if !ok {
				continue
			}
			acc := f.emotions[e]
			acc.avgSum += stat.Average / f.n
			acc.secondSum += (stat.Std*stat.Std + stat.Average*stat.Average) / f.n
			if !acc.seen || stat.Max > acc.max {
				acc.max = stat.Max
			}
			if !acc.seen || stat.Min < acc.min {
				acc.min = stat.Min
			}
			acc.seen = true
		}
	}

	if c := seg.Confidence; c != nil {
		f.eyeContact += c.AverageEyeContactScore / f.n
		f.consistency += c.EyeContactConsistency / f.n
		f.head += c.HeadStabilityScore / f.n
		f.confScore += c.ConfidenceScore / f.n
	}

	if o := seg.Overall; o != nil {
		f.overallSum += o.OverallScore
		f.overallCount++
		for k, v := range o.ComponentScores {
			f.components[k] += v
			f.compCount[k]++
		}
	}
}

// merge adds the contributions staged in d.
func (f *fold) merge(d *fold) {
	f.folded += d.folded
	f.words += d.words
	f.fillers += d.fillers
	f.frames += d.frames
	f.duration += d.duration

	f.wpm += d.wpm
	f.clarity += d.clarity
	f.detection += d.detection
	f.eyeContact += d.eyeContact
	f.consistency += d.consistency
	f.head += d.head
	f.confScore += d.confScore

	for k, acc := range d.emotions {
		if !acc.seen {
			continue
		}
		dst := f.emotions[k]
		dst.avgSum += acc.avgSum
		dst.secondSum += acc.secondSum
		if !dst.seen || acc.max > dst.max {
			dst.max = acc.max
		}
		if !dst.seen || acc.min < dst.min {
			dst.min = acc.min
		}
		dst.seen = true
	}

	f.overallSum += d.overallSum
	f.overallCount += d.overallCount
	for k, v := range d.components {
		f.components[k] += v
	}
	for k, v := range d.compCount {
		f.compCount[k] += v
	}

	f.transcripts = append(f.transcripts, d.transcripts...)
	f.fillerDetails = append(f.fillerDetails, d.fillerDetails...)
	f.wpmTimeline = append(f.wpmTimeline, d.wpmTimeline...)
	f.utterances = append(f.utterances, d.utterances...)
	f.emotionTimeline = append(f.emotionTimeline, d.emotionTimeline...)
	f.annotations = append(f.annotations, d.annotations...)
}

func (f *fold) finish(r *Report) {
	r.SegmentCount = f.folded
	r.DurationSec = f.duration

	r.Speech.Transcript = strings.TrimSpace(strings.Join(f.transcripts, " "))
	r.Speech.TotalWords = int(math.Round(f.words))
	r.Speech.WordsPerMinute = f.wpm
	r.Speech.ClarityScore = f.clarity
	r.Speech.FillerWords.Count = int(math.Round(f.fillers))
	if f.words > 0 {
		r.Speech.FillerWords.Percentage = f.fillers / f.words * 100
	}
	r.Speech.FillerWords.Details = appendNonNil(r.Speech.FillerWords.Details, f.fillerDetails)
	r.Speech.Pacing.WPMTimeline = appendNonNil(r.Speech.Pacing.WPMTimeline, f.wpmTimeline)
	r.Speech.Utterances = appendNonNil(r.Speech.Utterances, f.utterances)

	r.Facial.TotalFramesAnalyzed = int(math.Round(f.frames))
	r.Facial.AverageDetectionConfidence = f.detection
	r.Facial.EmotionTimeline = appendNonNil(r.Facial.EmotionTimeline, f.emotionTimeline)
	for _, e := range Emotions {
		acc := f.emotions[e]
		if !acc.seen {
			continue
		}
		variance := acc.secondSum - acc.avgSum*acc.avgSum
		if variance < 0 {
			variance = 0
		}
		r.Facial.EmotionStatistics[e] = EmotionStat{
			Average: acc.avgSum,
			Max:     acc.max,
			Min:     acc.min,
			Std:     math.Sqrt(variance),
		}
	}

	r.Confidence = ConfidenceAnalysis{
		AverageEyeContactScore: f.eyeContact,
		EyeContactConsistency:  f.consistency,
		HeadStabilityScore:     f.head,
		ConfidenceScore:        f.confScore,
	}
	r.Annotations = appendNonNil(r.Annotations, f.annotations)

	components := map[string]float64{
		ComponentSpeechClarity: f.clarity,
		ComponentPositivity:    r.Facial.EmotionStatistics["joy"].Average,
		ComponentConfidence:    f.confScore,
	}
	for k, sum := range f.components {
		components[k] = sum / float64(f.compCount[k])
	}
	r.Overall.ComponentScores = components

	if f.overallCount > 0 {
		r.Overall.OverallScore = f.overallSum / float64(f.overallCount)
	} else {
		r.Overall.OverallScore = (components[ComponentSpeechClarity] + components[ComponentPositivity] + components[ComponentConfidence]) / 3
	}
	r.Overall.Grade = Grade(r.Overall.OverallScore)
}

// Grade maps a score to a letter. Scores above 1 are read as percentages.
func Grade(score float64) string {
	if score > 1 {
		score /= 100
	}
	switch {
	case score >= 0.9:
		return "A"
	case score >= 0.8:
		return "B"
	case score >= 0.7:
		return "C"
	case score >= 0.6:
		return "D"
	default:
		return "F"
	}
}

func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.SegmentIndex != b.SegmentIndex {
			return a.SegmentIndex < b.SegmentIndex
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.Payload, b.Payload) < 0
	})
}

func appendNonNil(dst, src []json.RawMessage) []json.RawMessage {
	for _, v := range src {
		if len(v) > 0 && !isNull(v) {
			dst = append(dst, v)
		}
	}
	return dst
}
