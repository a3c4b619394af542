package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/wingman/plugin/clock"
	"github.com/hrygo/wingman/plugin/metrics"
	"github.com/hrygo/wingman/plugin/timeout"
)

var (
	// ErrNotReady is returned by a Source when no results exist yet. It is treated as an empty list.
	ErrNotReady = errors.New("analysis results not ready")
	// ErrAlreadyPolling is returned when a second polling loop is started for the same poller.
	ErrAlreadyPolling = errors.New("already polling for analysis results")
)

// Source lists the stored analysis records of a session.
type Source interface {
	ListResults(ctx context.Context, sessionID string) ([]Record, error)
}

// State is the polling lifecycle.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateSatisfied
	StateForcedComplete
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateSatisfied:
		return "satisfied"
	case StateForcedComplete:
		return "forced_complete"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether polling has finished.
func (s State) IsTerminal() bool {
	return s == StateSatisfied || s == StateForcedComplete || s == StateTimedOut
}

// HasResults reports whether the state proceeds to aggregation.
func (s State) HasResults() bool {
	return s == StateSatisfied || s == StateForcedComplete
}

// Policy holds the polling thresholds.
type Policy struct {
	Interval    time.Duration
	GraceWindow time.Duration
	HardTimeout time.Duration
	// AllowFastInterval lifts the minimum interval. Tests only.
	AllowFastInterval bool
}

// DefaultPolicy returns the default polling thresholds.
func DefaultPolicy() Policy {
	return Policy{
		Interval:    timeout.DefaultPollInterval,
		GraceWindow: timeout.DefaultGraceWindow,
		HardTimeout: timeout.DefaultHardTimeout,
	}
}

func (p Policy) normalize() Policy {
	d := DefaultPolicy()
	if p.Interval <= 0 {
		p.Interval = d.Interval
	}
	if !p.AllowFastInterval && p.Interval < timeout.MinPollInterval {
		p.Interval = timeout.MinPollInterval
	}
	if p.GraceWindow <= 0 {
		p.GraceWindow = d.GraceWindow
	}
	if p.HardTimeout <= 0 {
		p.HardTimeout = d.HardTimeout
	}
	return p
}

// Progress is reported after every tick.
type Progress struct {
	State    State
	Expected int
	Received int
	Valid    int
	Elapsed  time.Duration
	Message  string
	// Err is the fetch error of this tick, if any.
	Err error
}

// Result is the outcome of a polling loop.
type Result struct {
	State State
	// Records are the valid records of the last successful fetch.
	Records  []Record
	Progress Progress
	Ticks    int
}

// Config configures a Poller.
type Config struct {
	SessionID string
	// Expected is the number of segments to wait for. Defaults to 1.
	Expected   int
	Source     Source
	Policy     Policy
	Clock      clock.Clock
	OnProgress func(Progress)
	Metrics    metrics.Recorder
	Logger     *slog.Logger
}

// Poller polls the results store of one session until it is satisfied, forced to complete,
// or times out.
type Poller struct {
	cfg    Config
	policy Policy
	logger *slog.Logger

	mu         sync.Mutex
	running    bool
	state      State
	startedAt  time.Time
	lastChange time.Time
	valid      []Record
	ticks      int
	progress   Progress
}

// NewPoller creates a poller.
func NewPoller(cfg Config) *Poller {
	if cfg.Expected <= 0 {
		cfg.Expected = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:    cfg,
		policy: cfg.Policy.normalize(),
		logger: logger.With("session_id", cfg.SessionID),
		state:  StateIdle,
	}
}

// Policy returns the effective policy.
func (p *Poller) Policy() Policy {
	return p.policy
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Poll runs one tick: fetch, validate and transition. Terminal states are sticky.
func (p *Poller) Poll(ctx context.Context) State {
	p.mu.Lock()
	if p.state.IsTerminal() {
		s := p.state
		p.mu.Unlock()
		return s
	}
	now := p.cfg.Clock.Now()
	if p.state == StateIdle {
		p.state = StatePolling
		p.startedAt = now
		p.lastChange = now
	}
	p.mu.Unlock()

	start := time.Now()
	records, err := p.cfg.Source.ListResults(ctx, p.cfg.SessionID)
	if errors.Is(err, ErrNotReady) {
		records, err = nil, nil
	}
	metrics.Observe(p.cfg.Metrics, metrics.CollaboratorResults, start, err)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks++
	now = p.cfg.Clock.Now()
	elapsed := now.Sub(p.startedAt)

	progress := Progress{Expected: p.cfg.Expected, Elapsed: elapsed, Err: err}
	if err != nil {
		p.logger.Warn("failed to fetch analysis results, will retry", "error", err, "tick", p.ticks)
		progress.Valid = len(p.valid)
	} else {
		valid := make([]Record, 0, len(records))
		for _, r := range records {
			if IsValid(r) {
				valid = append(valid, r)
			}
		}
		if len(valid) != len(p.valid) {
			p.lastChange = now
		}
		p.valid = valid
		progress.Received = len(records)
		progress.Valid = len(valid)

		if progress.Received >= p.cfg.Expected && progress.Valid == progress.Received {
			p.state = StateSatisfied
		}
	}

	if p.state == StatePolling {
		switch {
		case len(p.valid) > 0 && now.Sub(p.lastChange) >= p.policy.GraceWindow:
			p.state = StateForcedComplete
		case elapsed >= p.policy.HardTimeout && len(p.valid) > 0:
			p.state = StateForcedComplete
		case elapsed >= p.policy.HardTimeout:
			p.state = StateTimedOut
		}
	}

	progress.State = p.state
	progress.Message = progressMessage(progress)
	p.progress = progress

	switch p.state {
	case StateSatisfied:
		p.logger.Info("all analysis segments received", "segments", progress.Valid, "elapsed", elapsed.String())
	case StateForcedComplete:
		p.logger.Warn("forcing completion with partial analysis results",
			"valid", progress.Valid, "expected", progress.Expected, "elapsed", elapsed.String())
	case StateTimedOut:
		p.logger.Warn("analysis polling timed out without results", "elapsed", elapsed.String())
	}

	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(progress)
	}
	return p.state
}

// Run polls until a terminal state or until ctx is done. Only one loop may run at a time.
func (p *Poller) Run(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, ErrAlreadyPolling
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	for {
		if state := p.Poll(ctx); state.IsTerminal() {
			return p.result(), nil
		}
		select {
		case <-ctx.Done():
			return p.result(), ctx.Err()
		case <-p.cfg.Clock.After(p.policy.Interval):
		}
	}
}

// Result returns a snapshot of the polling outcome so far.
func (p *Poller) Result() *Result {
	return p.result()
}

func (p *Poller) result() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &Result{
		State:    p.state,
		Records:  append([]Record(nil), p.valid...),
		Progress: p.progress,
		Ticks:    p.ticks,
	}
}

func progressMessage(pr Progress) string {
	switch pr.State {
	case StateSatisfied:
		return "Analysis complete! Preparing results..."
	case StateForcedComplete:
		return fmt.Sprintf("Analysis partially complete: %d of %d segments analyzed. Preparing results...", pr.Valid, pr.Expected)
	case StateTimedOut:
		return "Analysis is taking longer than expected. Results will be available later."
	}
	msg := fmt.Sprintf("Analysis in progress: %d of %d segments analyzed...", pr.Valid, pr.Expected)
	if pr.Err != nil {
		msg += " (temporary error fetching results, retrying)"
	}
	return msg
}
