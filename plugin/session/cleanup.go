package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/wingman/plugin/clock"
)

const (
	// DefaultRetentionDays is the default number of days to retain analysis results and transcripts.
	DefaultRetentionDays = 30
	// DefaultCleanupInterval is the default interval between cleanup runs.
	DefaultCleanupInterval = 24 * time.Hour
)

// CleanupConfig holds configuration for the cleanup job.
type CleanupConfig struct {
	RetentionDays   int           // default: 30
	CleanupInterval time.Duration // default: 24h
	Clock           clock.Clock
}

// CleanupJob periodically prunes expired session data.
type CleanupJob struct {
	store  RetentionStore
	config CleanupConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(s RetentionStore, config CleanupConfig) *CleanupJob {
	if config.RetentionDays <= 0 {
		config.RetentionDays = DefaultRetentionDays
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCleanupInterval
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &CleanupJob{store: s, config: config}
}

// Start runs a cleanup immediately and then every CleanupInterval. It does not block.
func (j *CleanupJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}
	j.running = true
	j.stopChan = make(chan struct{})
	j.done = make(chan struct{})

	go j.run(ctx, j.stopChan, j.done)

	slog.Info("session cleanup job started",
		"retention_days", j.config.RetentionDays,
		"interval", j.config.CleanupInterval)
}

// Stop stops the job and waits for the current run to finish.
func (j *CleanupJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopChan)
	done := j.done
	j.running = false
	j.mu.Unlock()

	<-done
	slog.Info("session cleanup job stopped")
}

// RunOnce executes a single cleanup run immediately.
func (j *CleanupJob) RunOnce(ctx context.Context) (int64, error) {
	return j.store.CleanupExpired(ctx, j.config.RetentionDays)
}

// IsRunning returns whether the cleanup job is currently running.
func (j *CleanupJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *CleanupJob) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	j.logRun(ctx, "initial session cleanup")
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-j.config.Clock.After(j.config.CleanupInterval):
			j.logRun(ctx, "session cleanup")
		}
	}
}

func (j *CleanupJob) logRun(ctx context.Context, name string) {
	deleted, err := j.RunOnce(ctx)
	if err != nil {
		slog.Error(name+" failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info(name+" completed", "deleted", deleted)
	}
}
