package session

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	apperrors "github.com/hrygo/wingman/internal/errors"
	"github.com/hrygo/wingman/internal/observability"
	"github.com/hrygo/wingman/plugin/analysis"
	"github.com/hrygo/wingman/plugin/clock"
	"github.com/hrygo/wingman/plugin/dispatch"
	"github.com/hrygo/wingman/plugin/interview"
	"github.com/hrygo/wingman/plugin/media"
	"github.com/hrygo/wingman/plugin/metrics"
	"github.com/hrygo/wingman/plugin/storage"
	"github.com/hrygo/wingman/plugin/timeout"
)

// Config configures a Controller.
type Config struct {
	Session interview.Session
	Media   *media.Controller

	// Conversation collaborators, used when Session.Conversational is set.
	Generator   interview.QuestionGenerator
	Synthesizer interview.Synthesizer
	Player      interview.Player
	Transcriber interview.Transcriber
	Fallback    *interview.FallbackBank
	Rand        *rand.Rand

	Uploader storage.Uploader
	Trigger  dispatch.Trigger
	// MaxAttempts is the number of analysis trigger attempts per segment.
	MaxAttempts int
	// RetryBase is the first backoff interval between trigger attempts.
	RetryBase time.Duration
	Source    analysis.Source
	Policy    analysis.Policy

	Feedback    FeedbackGenerator
	Transcripts TranscriptStore

	// Segmented uploads every answer as its own analysis segment instead of the whole recording.
	Segmented bool

	Clock      clock.Clock
	OnProgress func(analysis.Progress)
	OnAttempt  dispatch.ProgressFunc
	OnFeedback func(sessionID, feedback string, err error)
	OnComplete func(Outcome)
	Logger     *slog.Logger
}

type segmentUpload struct {
	index int
	uri   string
	err   error
}

// Controller owns one session. Start it once, drive answers with BeginAnswer and
// EndAnswer, and call End (or let the countdown call it) to produce the Outcome.
type Controller struct {
	cfg        Config
	logger     *slog.Logger
	runLogger  *slog.Logger
	metrics    *metrics.Aggregator
	engine     *interview.Engine
	recorder   interview.Recorder
	dispatcher *dispatch.Dispatcher
	sctx       *observability.SessionContext

	mu           sync.Mutex
	started      bool
	ended        bool
	expired      bool
	answering    bool
	startErr     error
	nextSegment  int
	segments     []segmentUpload
	uploads      sync.WaitGroup
	runCtx       context.Context
	cancelRun    context.CancelFunc
	stopOnce     sync.Once
	stopCount    chan struct{}
	endOnce      sync.Once
	outcome      Outcome
	feedbackDone chan struct{}
}

// NewController creates a session controller.
func NewController(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = timeout.DefaultAnalysisAttempts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sctx := observability.NewSessionContext(logger, cfg.Session.ID, cfg.Session.InterviewType)
	// Collaborators add the session id themselves.
	runLogger := logger.With(observability.LogFieldRunID, sctx.RunID)

	c := &Controller{
		cfg:          cfg,
		logger:       sctx.WithFields(),
		metrics:      metrics.NewAggregator(),
		sctx:         sctx,
		stopCount:    make(chan struct{}),
		feedbackDone: make(chan struct{}),
	}
	c.runCtx, c.cancelRun = context.WithCancel(context.Background())

	c.recorder = cfg.Media
	if cfg.Segmented {
		c.recorder = &segmentRecorder{c: c}
	}
	c.dispatcher = dispatch.NewDispatcher(dispatch.Config{
		Trigger:     cfg.Trigger,
		MinInterval: cfg.RetryBase,
		Metrics:     c.metrics,
		Logger:      runLogger,
	})
	if cfg.Session.Conversational {
		c.engine = interview.NewEngine(interview.Config{
			Session:     cfg.Session,
			Generator:   cfg.Generator,
			Synthesizer: cfg.Synthesizer,
			Player:      cfg.Player,
			Transcriber: cfg.Transcriber,
			Recorder:    c.recorder,
			Fallback:    cfg.Fallback,
			Rand:        cfg.Rand,
			Clock:       cfg.Clock,
			Metrics:     c.metrics,
			Logger:      runLogger,
		})
	}
	c.runLogger = runLogger
	return c
}

// Start acquires the devices, starts the recording and the countdown, and asks the first
// question of a conversational session. A device or recording failure ends the session
// with StatusFailed and is returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return apperrors.InvalidArgument("session already started")
	}
	c.started = true
	c.runCtx = observability.WithSessionContext(c.runCtx, c.sctx)
	c.mu.Unlock()

	if _, err := c.cfg.Media.AcquireDevices(ctx); err != nil {
		return c.failStart(ctx, err)
	}
	if err := c.cfg.Media.StartContinuousRecording(); err != nil {
		return c.failStart(ctx, err)
	}
	c.logger.Info("session started",
		"conversational", c.cfg.Session.Conversational,
		"segmented", c.cfg.Segmented,
		"duration", c.cfg.Session.Duration.String())

	if d := c.cfg.Session.Duration; d > 0 {
		go c.countdown(d)
	}
	if c.engine != nil {
		if err := c.engine.Start(ctx); err != nil {
			c.logger.Warn("turn engine did not start", "error", err)
		}
	}
	return nil
}

func (c *Controller) failStart(ctx context.Context, err error) error {
	c.mu.Lock()
	c.startErr = err
	c.mu.Unlock()
	c.logger.Error("session could not start",
		observability.LogFieldErrorCode, apperrors.GetCodeFromError(err, apperrors.ErrCodeDeviceUnavailable),
		"error", err)
	c.End(ctx)
	return err
}

func (c *Controller) countdown(d time.Duration) {
	select {
	case <-c.cfg.Clock.After(d):
	case <-c.stopCount:
		return
	}
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.expired = true
	c.mu.Unlock()

	c.logger.Info("session time expired, ending at next turn boundary")
	c.End(context.Background())
}

// BeginAnswer opens the candidate's answering window.
func (c *Controller) BeginAnswer() bool {
	c.mu.Lock()
	if c.ended || !c.started || c.startErr != nil {
		c.mu.Unlock()
		return false
	}
	if c.engine != nil {
		c.mu.Unlock()
		return c.engine.BeginAnswer()
	}
	defer c.mu.Unlock()
	if c.answering || !c.recorder.IsRecording() {
		return false
	}
	c.recorder.MarkAnswerStart()
	c.answering = true
	return true
}

// EndAnswer closes the answering window. In a conversational session it transcribes the
// answer and moves to the next question.
func (c *Controller) EndAnswer(ctx context.Context) error {
	if c.engine != nil {
		return c.engine.EndAnswer(ctx)
	}
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return apperrors.InvalidArgument("session has ended")
	}
	if !c.answering {
		c.mu.Unlock()
		return apperrors.InvalidArgument("no answer in progress")
	}
	c.answering = false
	c.mu.Unlock()

	c.recorder.Snapshot()
	return nil
}

// Expired reports whether the countdown ended the session.
func (c *Controller) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Engine returns the turn engine, or nil for a non-conversational session.
func (c *Controller) Engine() *interview.Engine {
	return c.engine
}

// FeedbackDone is closed once the fire-and-forget feedback request has finished, or
// immediately after End when no feedback is requested.
func (c *Controller) FeedbackDone() <-chan struct{} {
	return c.feedbackDone
}

// End finishes the session and returns its Outcome. It is idempotent: every call returns
// the Outcome of the first one. Devices are released on every path.
func (c *Controller) End(ctx context.Context) Outcome {
	c.endOnce.Do(func() {
		c.outcome = c.finish(ctx)
		attrs := []any{
			"status", c.outcome.Status,
			"has_video", c.outcome.HasVideo,
			"has_conversation", c.outcome.HasConversation,
			"turns", len(c.outcome.Turns),
			observability.LogFieldDuration, c.sctx.Duration().Milliseconds(),
		}
		if c.outcome.Err != nil {
			attrs = append(attrs, observability.LogFieldErrorCode, apperrors.GetCodeFromError(c.outcome.Err, apperrors.ErrCodeCollaboratorFailed))
		}
		c.logger.Info("session ended", attrs...)
		if c.cfg.OnComplete != nil {
			c.cfg.OnComplete(c.outcome)
		}
	})
	return c.outcome
}

func (c *Controller) finish(ctx context.Context) Outcome {
	defer c.cancelRun()
	defer c.cfg.Media.ReleaseDevices()
	ctx = observability.WithSessionContext(ctx, c.sctx)

	c.mu.Lock()
	c.ended = true
	startErr := c.startErr
	expired := c.expired
	c.mu.Unlock()
	c.stopOnce.Do(func() { close(c.stopCount) })

	out := Outcome{SessionID: c.cfg.Session.ID, Expired: expired}
	if startErr != nil {
		close(c.feedbackDone)
		out.Status = StatusFailed
		out.Err = startErr
		out.Stats = c.metrics.Snapshot()
		return out
	}

	degraded := false
	if c.engine != nil {
		stopCtx, cancel := context.WithTimeout(ctx, timeout.TurnBoundaryTimeout)
		if err := c.engine.Stop(stopCtx); err != nil {
			c.logger.Warn("turn did not finish before shutdown", "error", err)
		}
		cancel()
		out.Turns = c.engine.Transcript()
		out.HasConversation = hasCandidateTurn(out.Turns)
		if c.engine.State() == interview.StateFailed {
			degraded = true
		}
	}

	c.uploads.Wait()
	blob, err := c.cfg.Media.FinalizeRecording()
	if err != nil {
		c.logger.Warn("recording could not be finalized", "error", err)
	}

	jobs, uploadErr := c.uploadJobs(ctx, blob)
	if uploadErr != nil {
		degraded = true
		out.Err = uploadErr
		if !blob.IsEmpty() {
			kept := blob
			out.Blob = &kept
		}
	}
	out.HasVideo = len(jobs) > 0

	if len(jobs) > 0 {
		c.dispatch(ctx, jobs)
		result, err := c.poll(ctx, len(jobs))
		if err != nil {
			degraded = true
			if out.Err == nil {
				out.Err = err
			}
		}
		if result != nil {
			out.PollState = result.State
			out.Progress = result.Progress
			if result.State.HasResults() {
				out.Report = analysis.Aggregate(result.Records)
			}
		}
	}

	switch {
	case uploadErr != nil:
		// The recording exists and is kept in the Outcome.
		out.Status = StatusDegraded
	case !out.HasVideo && !out.HasConversation:
		out.Status = StatusFailed
		if out.Err == nil {
			out.Err = apperrors.InvalidArgument("session produced neither a recording nor a conversation")
		}
	case degraded || !out.HasVideo:
		out.Status = StatusDegraded
	default:
		out.Status = StatusCompleted
	}

	c.requestFeedback(ctx, out)
	c.saveTranscript(ctx, out)
	out.Stats = c.metrics.Snapshot()
	return out
}

// uploadJobs uploads the finalized recording, or collects the segment uploads made during the
// session, and returns one analysis job per uploaded recording.
func (c *Controller) uploadJobs(ctx context.Context, blob media.Blob) ([]dispatch.Job, error) {
	if c.cfg.Segmented {
		c.mu.Lock()
		segments := append([]segmentUpload(nil), c.segments...)
		c.mu.Unlock()

		var (
			jobs    []dispatch.Job
			lastErr error
		)
		for _, s := range segments {
			if s.err != nil {
				lastErr = s.err
				continue
			}
			jobs = append(jobs, dispatch.Job{URI: s.uri, SessionID: c.cfg.Session.ID, SegmentIndex: s.index})
		}
		return jobs, lastErr
	}

	if blob.IsEmpty() {
		return nil, nil
	}
	uri, err := c.upload(ctx, blob)
	if err != nil {
		c.logger.Error("recording upload failed", "error", err, "bytes", blob.Len())
		return nil, err
	}
	return []dispatch.Job{{URI: uri, SessionID: c.cfg.Session.ID, SegmentIndex: 0}}, nil
}

func (c *Controller) upload(ctx context.Context, blob media.Blob) (string, error) {
	if c.cfg.Uploader == nil {
		return "", apperrors.UploadFailed("no uploader configured", nil)
	}
	uctx, cancel := context.WithTimeout(ctx, timeout.UploadTimeout)
	defer cancel()

	start := time.Now()
	uri, err := c.cfg.Uploader.Upload(uctx, blob, c.cfg.Session.ID)
	metrics.Observe(c.metrics, metrics.CollaboratorUpload, start, err)
	if err != nil && !apperrors.IsCode(err, apperrors.ErrCodeUploadFailed) {
		err = apperrors.UploadFailed("recording upload failed", err)
	}
	return uri, err
}

func (c *Controller) enqueueSegment(blob media.Blob) {
	if blob.IsEmpty() {
		return
	}
	c.mu.Lock()
	index := c.nextSegment
	c.nextSegment++
	c.uploads.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.uploads.Done()
		uri, err := c.upload(c.runCtx, blob)
		if err != nil {
			observability.LoggerFrom(c.runCtx, c.logger).Warn("segment upload failed", observability.LogFieldSegmentIndex, index, "error", err)
		}
		c.mu.Lock()
		c.segments = append(c.segments, segmentUpload{index: index, uri: uri, err: err})
		c.mu.Unlock()
	}()
}

func (c *Controller) dispatch(ctx context.Context, jobs []dispatch.Job) {
	if c.cfg.Trigger == nil {
		return
	}
	if len(jobs) == 1 {
		j := jobs[0]
		c.dispatcher.TriggerAnalysis(ctx, j.URI, j.SessionID, j.SegmentIndex, c.cfg.MaxAttempts, c.cfg.OnAttempt)
		return
	}
	accepted := c.dispatcher.TriggerAll(ctx, jobs, c.cfg.MaxAttempts, c.cfg.OnAttempt)
	c.logger.Info("segment analysis dispatched", "segments", len(jobs), "accepted", accepted)
}

func (c *Controller) poll(ctx context.Context, expected int) (*analysis.Result, error) {
	if c.cfg.Source == nil {
		return nil, nil
	}
	poller := analysis.NewPoller(analysis.Config{
		SessionID:  c.cfg.Session.ID,
		Expected:   expected,
		Source:     c.cfg.Source,
		Policy:     c.cfg.Policy,
		Clock:      c.cfg.Clock,
		OnProgress: c.cfg.OnProgress,
		Metrics:    c.metrics,
		Logger:     c.runLogger,
	})
	result, err := poller.Run(ctx)
	if err != nil {
		return result, err
	}
	if result.State == analysis.StateTimedOut {
		return result, apperrors.PollingTimeout(result.Progress.Message)
	}
	return result, nil
}

func (c *Controller) requestFeedback(ctx context.Context, out Outcome) {
	if c.cfg.Feedback == nil || !out.HasConversation {
		close(c.feedbackDone)
		return
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout.FeedbackTimeout)
	go func() {
		defer close(c.feedbackDone)
		defer cancel()

		start := time.Now()
		text, err := c.cfg.Feedback.Feedback(fctx, c.cfg.Session, out.Turns, out.Report)
		metrics.Observe(c.metrics, metrics.CollaboratorFeedback, start, err)
		if err != nil {
			c.logger.Warn("feedback generation failed", "error", err)
		}
		if c.cfg.OnFeedback != nil {
			c.cfg.OnFeedback(c.cfg.Session.ID, text, err)
		}
	}()
}

func (c *Controller) saveTranscript(ctx context.Context, out Outcome) {
	if c.cfg.Transcripts == nil || c.engine == nil {
		return
	}
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout.CollaboratorTimeout)
	defer cancel()
	if err := c.cfg.Transcripts.SaveTranscript(tctx, &Transcript{
		SessionID:     c.cfg.Session.ID,
		InterviewType: c.cfg.Session.InterviewType,
		Status:        out.Status,
		Turns:         out.Turns,
	}); err != nil {
		c.logger.Warn("failed to persist transcript", "error", err)
	}
}

func hasCandidateTurn(turns []interview.Turn) bool {
	for _, t := range turns {
		if t.Role == interview.RoleCandidate {
			return true
		}
	}
	return false
}

// segmentRecorder uploads every answer snapshot as its own segment.
type segmentRecorder struct {
	c *Controller
}

func (r *segmentRecorder) IsRecording() bool { return r.c.cfg.Media.IsRecording() }
func (r *segmentRecorder) MarkAnswerStart()  { r.c.cfg.Media.MarkAnswerStart() }

func (r *segmentRecorder) Snapshot() media.Blob {
	blob := r.c.cfg.Media.Snapshot()
	r.c.enqueueSegment(blob)
	return blob
}
