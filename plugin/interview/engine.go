package interview

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	apperrors "github.com/hrygo/wingman/internal/errors"
	"github.com/hrygo/wingman/plugin/clock"
	"github.com/hrygo/wingman/plugin/media"
	"github.com/hrygo/wingman/plugin/metrics"
	"github.com/hrygo/wingman/plugin/timeout"
)

// State is the turn lifecycle of the engine.
type State int

const (
	StateNotStarted State = iota
	StateAwaitingQuestion
	StateInterviewerSpeaking
	StateAwaitingAnswer
	StateCandidateAnswering
	StateTranscribing
	StateEnded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateAwaitingQuestion:
		return "awaiting_question"
	case StateInterviewerSpeaking:
		return "interviewer_speaking"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateCandidateAnswering:
		return "candidate_answering"
	case StateTranscribing:
		return "transcribing"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateEnded || s == StateFailed
}

const (
	// PlaceholderAnswer is the content of a candidate turn that produced no transcript.
	PlaceholderAnswer = "[no transcript available]"

	apologyEmpty = "I had trouble processing your audio response. Please try speaking again, or end the interview if you're finished."
	apologyError = "I had trouble processing your audio. Please try recording your response again, or end the interview if you're ready to finish."
)

// Question is the next interviewer question.
type Question struct {
	Text string
	// Fallback is set when the question came from the local bank.
	Fallback bool
}

// Config configures an Engine.
type Config struct {
	Session     Session
	Generator   QuestionGenerator
	Synthesizer Synthesizer
	Player      Player
	Transcriber Transcriber
	Recorder    Recorder
	// Fallback defaults to DefaultFallbackBank.
	Fallback *FallbackBank
	// Rand drives fallback selection.
	Rand  *rand.Rand
	Clock clock.Clock
	// MaxFailures is the number of consecutive transcription errors tolerated.
	MaxFailures int
	// CallTimeout bounds each collaborator call.
	CallTimeout time.Duration
	Metrics     metrics.Recorder
	Logger      *slog.Logger
}

// Engine runs the turn-taking protocol of one session.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu              sync.Mutex
	rngMu           sync.Mutex
	state           State
	speaking        bool
	busy            bool
	stopping        bool
	turns           []Turn
	currentQuestion string
	asked           []string
	failures        int
	inflight        sync.WaitGroup
}

// NewEngine creates a turn engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Fallback == nil {
		cfg.Fallback = DefaultFallbackBank()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = timeout.MaxTurnFailures
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = timeout.CollaboratorTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With("session_id", cfg.Session.ID),
		state:  StateNotStarted,
	}
}

// Start asks and speaks the first question.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateNotStarted {
		e.mu.Unlock()
		return apperrors.InvalidArgument("turn engine already started")
	}
	if e.stopping {
		e.state = StateEnded
		e.mu.Unlock()
		return nil
	}
	e.state = StateAwaitingQuestion
	e.inflight.Add(1)
	e.mu.Unlock()
	defer e.inflight.Done()

	q := e.RequestNextQuestion(ctx)
	e.deliver(ctx, q.Text, true)
	return nil
}

// RequestNextQuestion asks the AI interviewer for the next question and falls back to the
// local bank on error or an unusable reply. It always returns a question.
func (e *Engine) RequestNextQuestion(ctx context.Context) Question {
	history := e.Transcript()

	if e.cfg.Generator != nil {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
		start := time.Now()
		text, err := e.cfg.Generator.NextQuestion(callCtx, history, e.cfg.Session.InterviewType, e.cfg.Session.Difficulty)
		cancel()

		text = cleanQuestion(text)
		if err == nil && text == "" {
			err = apperrors.CollaboratorFailed(metrics.CollaboratorQuestion, nil).WithContext("reason", "empty reply")
		}
		metrics.Observe(e.cfg.Metrics, metrics.CollaboratorQuestion, start, err)
		if err == nil {
			return Question{Text: text}
		}
		e.logger.Warn("interviewer unavailable, using fallback question", "error", err)
	}

	e.mu.Lock()
	asked := append([]string(nil), e.asked...)
	e.mu.Unlock()

	e.rngMu.Lock()
	text := e.cfg.Fallback.Pick(e.cfg.Rand, e.cfg.Session.InterviewType, asked)
	e.rngMu.Unlock()
	return Question{Text: text, Fallback: true}
}

// SpeakQuestion synthesizes and plays text. Failures continue silently.
func (e *Engine) SpeakQuestion(ctx context.Context, text string) {
	e.mu.Lock()
	e.speaking = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.speaking = false
		e.mu.Unlock()
	}()

	if e.cfg.Synthesizer == nil {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	start := time.Now()
	audio, err := e.cfg.Synthesizer.Synthesize(callCtx, text)
	cancel()
	metrics.Observe(e.cfg.Metrics, metrics.CollaboratorSynthesize, start, err)
	if err != nil {
		e.logger.Warn("speech synthesis failed, continuing without audio", "error", err)
		return
	}
	if len(audio) == 0 || e.cfg.Player == nil {
		return
	}

	start = time.Now()
	err = e.cfg.Player.Play(ctx, audio)
	metrics.Observe(e.cfg.Metrics, metrics.CollaboratorPlayback, start, err)
	if err != nil {
		e.logger.Warn("audio playback failed", "error", err)
	}
}

// BeginAnswer opens the candidate's answering window. It returns false without side effects
// unless the engine awaits an answer and the recording is active.
func (e *Engine) BeginAnswer() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateAwaitingAnswer || e.speaking || e.stopping {
		return false
	}
	if e.cfg.Recorder == nil || !e.cfg.Recorder.IsRecording() {
		return false
	}
	e.cfg.Recorder.MarkAnswerStart()
	e.state = StateCandidateAnswering
	return true
}

// EndAnswer closes the answering window, transcribes the answer, appends exactly one candidate
// turn and moves on to the next question. A second call while one is in flight fails with
// TURN_IN_PROGRESS.
func (e *Engine) EndAnswer(ctx context.Context) error {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return apperrors.TurnInProgress()
	}
	if e.stopping {
		e.mu.Unlock()
		return apperrors.InvalidArgument("conversation is ending")
	}
	if e.state != StateCandidateAnswering {
		e.mu.Unlock()
		return apperrors.InvalidArgument("no answer in progress")
	}
	e.busy = true
	e.state = StateTranscribing
	e.inflight.Add(1)
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
		e.inflight.Done()
	}()

	blob := e.cfg.Recorder.Snapshot()
	transcription, err := e.transcribe(ctx, blob)

	turn := Turn{Role: RoleCandidate, Timestamp: e.cfg.Clock.Now()}
	if transcription != nil {
		turn.Content = strings.TrimSpace(transcription.Text)
		turn.SpeakerSegments = transcription.Segments
	}
	if turn.Content == "" {
		turn.Content = PlaceholderAnswer
		turn.Placeholder = true
	}

	e.mu.Lock()
	e.turns = append(e.turns, turn)
	if err != nil {
		e.failures++
	} else if !turn.Placeholder {
		e.failures = 0
	}
	if e.failures >= e.cfg.MaxFailures {
		e.state = StateFailed
		failures := e.failures
		e.mu.Unlock()
		e.logger.Error("transcription failed repeatedly, ending conversation", "failures", failures, "error", err)
		return apperrors.Wrap(err, apperrors.ErrCodeCollaboratorFailed, "transcription failed repeatedly")
	}
	if e.stopping {
		e.state = StateEnded
		e.mu.Unlock()
		return nil
	}
	e.state = StateAwaitingQuestion
	current := e.currentQuestion
	e.mu.Unlock()

	if turn.Placeholder {
		e.deliver(ctx, apology(err, current), false)
		return nil
	}
	q := e.RequestNextQuestion(ctx)
	e.deliver(ctx, q.Text, true)
	return nil
}

// Stop ends the conversation at the next turn boundary. In-flight calls are allowed to finish;
// Stop returns ctx.Err() if they do not finish in time.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	e.stopping = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	e.mu.Lock()
	if e.state != StateFailed {
		e.state = StateEnded
	}
	e.mu.Unlock()
	return err
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsSpeaking reports whether the interviewer is speaking.
func (e *Engine) IsSpeaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speaking
}

// CurrentQuestion returns the last question asked.
func (e *Engine) CurrentQuestion() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentQuestion
}

// Transcript returns a copy of the turns so far.
func (e *Engine) Transcript() []Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Turn, len(e.turns))
	copy(out, e.turns)
	return out
}

func (e *Engine) transcribe(ctx context.Context, blob media.Blob) (*Transcription, error) {
	if e.cfg.Transcriber == nil {
		return nil, apperrors.CollaboratorFailed(metrics.CollaboratorTranscribe, nil).WithContext("reason", "no transcriber")
	}
	if blob.IsEmpty() {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	t, err := e.cfg.Transcriber.Transcribe(callCtx, blob, e.cfg.Session.ID)
	metrics.Observe(e.cfg.Metrics, metrics.CollaboratorTranscribe, start, err)
	if err != nil {
		e.logger.Warn("transcription failed", "error", err, "bytes", blob.Len())
		return nil, apperrors.CollaboratorFailed(metrics.CollaboratorTranscribe, err)
	}
	return t, nil
}

// deliver appends an interviewer turn, speaks it and opens the answering window.
func (e *Engine) deliver(ctx context.Context, content string, isQuestion bool) {
	e.mu.Lock()
	if e.stopping {
		e.state = StateEnded
		e.mu.Unlock()
		return
	}
	e.turns = append(e.turns, Turn{Role: RoleInterviewer, Content: content, Timestamp: e.cfg.Clock.Now()})
	if isQuestion {
		e.currentQuestion = content
		e.asked = append(e.asked, content)
	}
	e.state = StateInterviewerSpeaking
	e.mu.Unlock()

	e.SpeakQuestion(ctx, content)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateInterviewerSpeaking {
		return
	}
	if e.stopping {
		e.state = StateEnded
		return
	}
	e.state = StateAwaitingAnswer
}

func apology(err error, question string) string {
	msg := apologyEmpty
	if err != nil {
		msg = apologyError
	}
	if question == "" {
		return msg
	}
	return msg + " " + question
}

func cleanQuestion(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"")
	return strings.TrimSpace(text)
}
