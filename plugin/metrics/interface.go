// Package metrics records latency and success of calls to external collaborators
// (AI interviewer, speech, storage, analysis) during one session.
// Package metrics 记录会话期间外部协作方调用的延迟与成功率。
package metrics

import "time"

// Collaborator names used as metric keys.
const (
	CollaboratorQuestion   = "question"
	CollaboratorSynthesize = "synthesize"
	CollaboratorPlayback   = "playback"
	CollaboratorTranscribe = "transcribe"
	CollaboratorUpload     = "upload"
	CollaboratorAnalysis   = "analysis"
	CollaboratorResults    = "results"
	CollaboratorFeedback   = "feedback"
)

// Recorder records collaborator calls.
type Recorder interface {
	RecordCall(collaborator string, latency time.Duration, success bool)
}

// Stats represents aggregated collaborator metrics.
type Stats struct {
	CallCount    int64                        `json:"call_count"`
	SuccessCount int64                        `json:"success_count"`
	LatencyP50   time.Duration                `json:"latency_p50"`
	LatencyP95   time.Duration                `json:"latency_p95"`
	Calls        map[string]*CollaboratorStat `json:"calls"`
}

// CollaboratorStat represents statistics for a single collaborator.
type CollaboratorStat struct {
	Count       int64         `json:"count"`
	SuccessRate float32       `json:"success_rate"`
	AvgLatency  time.Duration `json:"avg_latency"`
	LatencyP95  time.Duration `json:"latency_p95"`
}

// Observe records a call that started at start and finished with err.
// A nil recorder is ignored.
func Observe(r Recorder, collaborator string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.RecordCall(collaborator, time.Since(start), err == nil)
}
