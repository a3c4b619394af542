// Package media captures the candidate's camera and microphone as one continuous recording
// and cuts per-answer audio snapshots out of it without stopping the encoder.
package media

import (
	"bytes"
	"context"
	"io"
	"time"
)

// Track kinds.
const (
	TrackVideo = "video"
	TrackAudio = "audio"
)

// Track is a single live media track.
type Track interface {
	// Kind returns TrackVideo or TrackAudio.
	Kind() string
	// Stop stops the track. Stopping twice has no effect.
	Stop()
}

// Stream is an acquired set of tracks.
type Stream interface {
	ID() string
	Tracks() []Track
}

// Devices acquires camera and microphone.
type Devices interface {
	Open(ctx context.Context) (Stream, error)
}

// Encoder turns a stream into a chunked container.
// Start must call onData with one chunk every timeslice until Stop is called.
// Stop flushes any pending data through onData before it returns.
type Encoder interface {
	Start(stream Stream, timeslice time.Duration, onData func([]byte)) error
	Stop() error
}

// Preview receives the live stream for display.
type Preview interface {
	Attach(stream Stream)
}

// Blob is an immutable piece of recorded media.
type Blob struct {
	Data     []byte
	MimeType string
	// Chunks is the number of encoder chunks the blob was built from, header included.
	Chunks int
}

// Len returns the number of bytes in the blob.
func (b Blob) Len() int {
	return len(b.Data)
}

// IsEmpty reports whether the blob carries no data.
func (b Blob) IsEmpty() bool {
	return len(b.Data) == 0
}

// Reader returns a reader over the blob data.
func (b Blob) Reader() io.Reader {
	return bytes.NewReader(b.Data)
}
