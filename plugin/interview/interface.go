// Package interview drives the interviewer/candidate turn protocol of a conversational
// mock interview.
package interview

import (
	"context"
	"time"

	"github.com/hrygo/wingman/plugin/media"
)

// Role is the author of a turn.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Session is the read-only description of an interview.
type Session struct {
	ID             string        `json:"sessionId"`
	InterviewType  string        `json:"interviewType"`
	Difficulty     string        `json:"difficulty"`
	Duration       time.Duration `json:"duration"`
	Conversational bool          `json:"isConversational"`
}

// SpeakerSegment is one diarized utterance inside a turn.
type SpeakerSegment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"startTime"`
	End     float64 `json:"endTime"`
}

// Turn is one utterance in the conversation.
type Turn struct {
	Role            Role             `json:"role"`
	Content         string           `json:"content"`
	Timestamp       time.Time        `json:"timestamp"`
	SpeakerSegments []SpeakerSegment `json:"speakerSegments,omitempty"`
	// Placeholder marks a candidate turn whose audio produced no transcript.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Transcription is the normalized result of a speech-to-text call.
type Transcription struct {
	Text     string
	Segments []SpeakerSegment
}

// QuestionGenerator is the AI interviewer.
type QuestionGenerator interface {
	NextQuestion(ctx context.Context, history []Turn, interviewType, difficulty string) (string, error)
}

// Synthesizer turns question text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player plays synthesized audio and returns once playback finished.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Transcriber turns one answer's audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio media.Blob, sessionID string) (*Transcription, error)
}

// Recorder is the part of the media controller the engine uses.
type Recorder interface {
	IsRecording() bool
	MarkAnswerStart()
	Snapshot() media.Blob
}
