// Package dispatch triggers off-box analysis of uploaded recordings.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lestrrat-go/backoff/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/wingman/internal/observability"
	"github.com/hrygo/wingman/plugin/metrics"
	"github.com/hrygo/wingman/plugin/timeout"
)

// Job is one analysis request: a recording URI and the segment it covers.
type Job struct {
	URI          string `json:"videoUri"`
	SessionID    string `json:"sessionId"`
	SegmentIndex int    `json:"segmentIndex"`
}

// Attempt is reported to the progress callback after every trigger attempt.
type Attempt struct {
	Job         Job
	Number      int
	MaxAttempts int
	Err         error
}

// Succeeded reports whether the attempt was accepted by the analysis service.
func (a Attempt) Succeeded() bool {
	return a.Err == nil
}

// ProgressFunc receives attempt reports. It must not block.
type ProgressFunc func(Attempt)

// Trigger asks the analysis service to process one job.
type Trigger interface {
	Trigger(ctx context.Context, job Job) error
}

// Config configures a Dispatcher.
type Config struct {
	Trigger Trigger
	// MinInterval and MaxInterval bound the exponential backoff between attempts.
	MinInterval time.Duration
	MaxInterval time.Duration
	// Fanout bounds concurrent triggers in TriggerAll.
	Fanout      int
	CallTimeout time.Duration
	Metrics     metrics.Recorder
	Logger      *slog.Logger
}

// Dispatcher retries analysis triggers with exponential backoff.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = timeout.AnalysisRetryBase
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = timeout.AnalysisRetryMax
		if cfg.MaxInterval < cfg.MinInterval {
			cfg.MaxInterval = cfg.MinInterval
		}
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = timeout.MaxSegmentFanout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = timeout.CollaboratorTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{cfg: cfg, logger: logger}
}

// policy never throttles the first attempt; the attempt count is capped by the caller
// since a zero retry budget means unlimited to the backoff package.
func (d *Dispatcher) policy(maxAttempts int) backoff.Policy {
	return backoff.Exponential(
		backoff.WithMinInterval(d.cfg.MinInterval),
		backoff.WithMaxInterval(d.cfg.MaxInterval),
		backoff.WithMultiplier(2),
		backoff.WithJitterFactor(0.1),
		backoff.WithMaxRetries(maxAttempts),
	)
}

// TriggerAnalysis triggers analysis of uri, retrying up to maxAttempts times.
// Exhaustion is logged, not returned: the poller decides whether analysis succeeded.
// It reports whether any attempt was accepted.
func (d *Dispatcher) TriggerAnalysis(ctx context.Context, uri, sessionID string, segmentIndex, maxAttempts int, progress ProgressFunc) bool {
	if maxAttempts <= 0 {
		maxAttempts = timeout.DefaultAnalysisAttempts
	}
	job := Job{URI: uri, SessionID: sessionID, SegmentIndex: segmentIndex}
	logger := observability.LoggerFrom(ctx, d.logger.With(observability.LogFieldSessionID, sessionID)).
		With(observability.LogFieldSegmentIndex, segmentIndex)

	if d.cfg.Trigger == nil {
		logger.Warn("no analysis trigger configured, skipping")
		return false
	}

	// The backoff controller runs until its context ends.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lastErr error
	attempt := 0
	b := d.policy(maxAttempts).Start(ctx)
	for attempt < maxAttempts && backoff.Continue(b) {
		attempt++
		lastErr = d.triggerOnce(ctx, job)
		if progress != nil {
			progress(Attempt{Job: job, Number: attempt, MaxAttempts: maxAttempts, Err: lastErr})
		}
		if lastErr == nil {
			logger.Info("analysis triggered", "attempt", attempt)
			return true
		}
		logger.Warn("analysis trigger failed", "attempt", attempt, "max_attempts", maxAttempts, "error", lastErr)
	}

	if ctx.Err() != nil && attempt < maxAttempts {
		logger.Warn("analysis trigger canceled", "attempts", attempt, "error", ctx.Err())
		return false
	}
	logger.Error("analysis trigger attempts exhausted", "attempts", attempt, "error", lastErr)
	return false
}

func (d *Dispatcher) triggerOnce(ctx context.Context, job Job) error {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	err := d.cfg.Trigger.Trigger(callCtx, job)
	metrics.Observe(d.cfg.Metrics, metrics.CollaboratorAnalysis, start, err)
	return err
}

// TriggerAll triggers every job concurrently, at most Fanout at a time, and returns
// how many were accepted. Progress callbacks are serialized.
func (d *Dispatcher) TriggerAll(ctx context.Context, jobs []Job, maxAttempts int, progress ProgressFunc) int {
	var (
		mu       sync.Mutex
		accepted int
	)
	report := progress
	if progress != nil {
		report = func(a Attempt) {
			mu.Lock()
			defer mu.Unlock()
			progress(a)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Fanout)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if d.TriggerAnalysis(gctx, job.URI, job.SessionID, job.SegmentIndex, maxAttempts, report) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return accepted
}
