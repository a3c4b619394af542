package media

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/hrygo/wingman/internal/errors"
	"github.com/hrygo/wingman/plugin/timeout"
)

// RecordingState is the lifecycle of the session recording.
type RecordingState int

const (
	StateIdle RecordingState = iota
	StateRecording
	StateFinalized
)

func (s RecordingState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// DefaultMimeType is the container of recorded sessions.
const DefaultMimeType = "video/webm"

// Config configures a Controller.
type Config struct {
	Devices Devices
	Encoder Encoder
	// Preview is optional.
	Preview Preview
	// Timeslice defaults to one second.
	Timeslice time.Duration
	// MimeType defaults to DefaultMimeType.
	MimeType string
	// DisableHeaderPrefix stops snapshots from being prefixed with the first chunk.
	DisableHeaderPrefix bool
	Logger              *slog.Logger
}

// Handle is an acquired media stream.
type Handle struct {
	stream Stream
}

// Stream returns the underlying stream.
func (h *Handle) Stream() Stream {
	return h.stream
}

// Controller owns the media devices and the single continuous recording of a session.
type Controller struct {
	mu       sync.Mutex
	cfg      Config
	handle   *Handle
	state    RecordingState
	buffer   *Buffer
	released bool
	logger   *slog.Logger
}

// NewController creates a media controller.
func NewController(cfg Config) *Controller {
	if cfg.Timeslice <= 0 {
		cfg.Timeslice = timeout.DefaultTimeslice
	}
	if cfg.MimeType == "" {
		cfg.MimeType = DefaultMimeType
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:    cfg,
		state:  StateIdle,
		buffer: NewBuffer(cfg.MimeType, !cfg.DisableHeaderPrefix),
		logger: logger,
	}
}

// AcquireDevices opens camera and microphone and attaches the live preview.
func (c *Controller) AcquireDevices(ctx context.Context) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil && !c.released {
		return c.handle, nil
	}
	if c.cfg.Devices == nil {
		return nil, apperrors.DeviceUnavailable(nil)
	}

	stream, err := c.cfg.Devices.Open(ctx)
	if err != nil {
		c.logger.Warn("failed to acquire media devices", "error", err)
		return nil, apperrors.DeviceUnavailable(err)
	}
	if stream == nil || len(stream.Tracks()) == 0 {
		return nil, apperrors.DeviceUnavailable(nil)
	}

	c.handle = &Handle{stream: stream}
	c.released = false
	if c.cfg.Preview != nil {
		c.cfg.Preview.Attach(stream)
	}
	c.logger.Debug("media devices acquired", "stream_id", stream.ID(), "tracks", len(stream.Tracks()))
	return c.handle, nil
}

// StartContinuousRecording begins the one recording that spans the whole session.
func (c *Controller) StartContinuousRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil || c.released {
		return apperrors.RecordingStartFailed("no active media handle", nil)
	}
	switch c.state {
	case StateRecording:
		return apperrors.RecordingStartFailed("recording already in progress", nil)
	case StateFinalized:
		return apperrors.RecordingStartFailed("recording already finalized", nil)
	}
	if c.cfg.Encoder == nil {
		return apperrors.RecordingStartFailed("no encoder configured", nil)
	}

	if err := c.cfg.Encoder.Start(c.handle.stream, c.cfg.Timeslice, func(chunk []byte) {
		c.buffer.Append(chunk)
	}); err != nil {
		return apperrors.RecordingStartFailed("encoder failed to start", err)
	}
	c.state = StateRecording
	c.logger.Info("continuous recording started", "timeslice", c.cfg.Timeslice.String())
	return nil
}

// State returns the recording state.
func (c *Controller) State() RecordingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsRecording reports whether the continuous recording is active.
func (c *Controller) IsRecording() bool {
	return c.State() == StateRecording
}

// MarkAnswerStart marks the beginning of the candidate's answer in the live buffer.
func (c *Controller) MarkAnswerStart() {
	c.buffer.Mark()
}

// Snapshot copies the audio of the current answer without interrupting the recording.
func (c *Controller) Snapshot() Blob {
	return c.buffer.Snapshot()
}

// FinalizeRecording stops the encoder and returns the whole session as one blob.
func (c *Controller) FinalizeRecording() (Blob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateFinalized:
		return Blob{}, apperrors.AlreadyFinalized()
	case StateIdle:
		return Blob{}, apperrors.InvalidArgument("no recording in progress")
	}

	if err := c.cfg.Encoder.Stop(); err != nil {
		c.logger.Warn("encoder stop returned error", "error", err)
	}
	c.buffer.Seal()
	c.state = StateFinalized

	blob := c.buffer.All()
	c.logger.Info("recording finalized", "bytes", blob.Len(), "chunks", blob.Chunks)
	return blob, nil
}

// ReleaseDevices stops every track. It is safe to call on every exit path.
func (c *Controller) ReleaseDevices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released || c.handle == nil {
		return
	}
	if c.state == StateRecording {
		if err := c.cfg.Encoder.Stop(); err != nil {
			c.logger.Warn("encoder stop returned error", "error", err)
		}
		c.buffer.Seal()
		c.state = StateFinalized
	}
	for _, track := range c.handle.stream.Tracks() {
		track.Stop()
	}
	c.released = true
	c.logger.Debug("media devices released")
}

// BufferedBytes returns the size of the live buffer.
func (c *Controller) BufferedBytes() int {
	return c.buffer.Size()
}
