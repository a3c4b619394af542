package media

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockTrack is a Track that counts Stop calls.
type MockTrack struct {
	mu    sync.Mutex
	kind  string
	stops int
}

// NewMockTrack creates a MockTrack of the given kind.
func NewMockTrack(kind string) *MockTrack {
	return &MockTrack{kind: kind}
}

func (t *MockTrack) Kind() string { return t.kind }

// Stop records the call.
func (t *MockTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
}

// Stops returns how many times Stop was called.
func (t *MockTrack) Stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

// Stopped reports whether Stop was called at least once.
func (t *MockTrack) Stopped() bool {
	return t.Stops() > 0
}

// MockStream is a fixed set of tracks.
type MockStream struct {
	id     string
	tracks []Track
}

// NewMockStream creates a stream with one video and one audio track.
func NewMockStream() *MockStream {
	return &MockStream{
		id:     "mock-stream",
		tracks: []Track{NewMockTrack(TrackVideo), NewMockTrack(TrackAudio)},
	}
}

func (s *MockStream) ID() string      { return s.id }
func (s *MockStream) Tracks() []Track { return s.tracks }

// MockTracks returns the tracks as *MockTrack.
func (s *MockStream) MockTracks() []*MockTrack {
	out := make([]*MockTrack, 0, len(s.tracks))
	for _, t := range s.tracks {
		if mt, ok := t.(*MockTrack); ok {
			out = append(out, mt)
		}
	}
	return out
}

// MockDevices returns a fixed stream, or Err when set.
type MockDevices struct {
	Stream *MockStream
	Err    error
	opens  int
}

// NewMockDevices creates devices backed by a fresh MockStream.
func NewMockDevices() *MockDevices {
	return &MockDevices{Stream: NewMockStream()}
}

// Open returns the configured stream.
func (d *MockDevices) Open(ctx context.Context) (Stream, error) {
	d.opens++
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Stream, nil
}

// Opens returns how many times Open was called.
func (d *MockDevices) Opens() int { return d.opens }

// MockEncoder hands chunks to the recorder only when the test calls Emit.
type MockEncoder struct {
	mu       sync.Mutex
	onData   func([]byte)
	running  bool
	StartErr error
	// Pending is flushed on Stop.
	Pending [][]byte
	starts  int
	stops   int
}

// NewMockEncoder creates a MockEncoder.
func NewMockEncoder() *MockEncoder {
	return &MockEncoder{}
}

// Start registers the data callback.
func (e *MockEncoder) Start(stream Stream, timeslice time.Duration, onData func([]byte)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.starts++
	if e.StartErr != nil {
		return e.StartErr
	}
	if e.running {
		return errors.New("encoder already running")
	}
	e.onData = onData
	e.running = true
	return nil
}

// Emit delivers one chunk, as a timeslice tick would.
func (e *MockEncoder) Emit(chunk []byte) {
	e.mu.Lock()
	cb, running := e.onData, e.running
	e.mu.Unlock()
	if running && cb != nil {
		cb(chunk)
	}
}

// Stop flushes Pending and stops emitting.
func (e *MockEncoder) Stop() error {
	e.mu.Lock()
	cb := e.onData
	pending := e.Pending
	e.Pending = nil
	wasRunning := e.running
	e.running = false
	e.stops++
	e.mu.Unlock()

	if wasRunning && cb != nil {
		for _, chunk := range pending {
			cb(chunk)
		}
	}
	return nil
}

// Stops returns how many times Stop was called.
func (e *MockEncoder) Stops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}

// MockPreview records attached streams.
type MockPreview struct {
	Attached []Stream
}

// Attach records the stream.
func (p *MockPreview) Attach(stream Stream) {
	p.Attached = append(p.Attached, stream)
}

var (
	_ Devices = (*MockDevices)(nil)
	_ Encoder = (*MockEncoder)(nil)
	_ Preview = (*MockPreview)(nil)
)
