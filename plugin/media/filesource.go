package media

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/wingman/plugin/clock"
)

// FileDevices replays a recorded media file as if it were a live camera and microphone.
type FileDevices struct {
	Path string
}

// Open opens the file as a stream with one video and one audio track.
func (d *FileDevices) Open(ctx context.Context) (Stream, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open media file %s", d.Path)
	}
	fs := &FileStream{file: f, path: d.Path}
	fs.tracks = []Track{&fileTrack{kind: TrackVideo, stream: fs}, &fileTrack{kind: TrackAudio, stream: fs}}
	return fs, nil
}

// FileStream is a stream backed by a file.
type FileStream struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	tracks []Track
	live   int
}

func (s *FileStream) ID() string      { return s.path }
func (s *FileStream) Tracks() []Track { return s.tracks }

// Read reads from the underlying file.
func (s *FileStream) Read(p []byte) (int, error) {
	return s.file.Read(p)
}

func (s *FileStream) trackStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live++
	if s.live == len(s.tracks) {
		_ = s.file.Close()
	}
}

type fileTrack struct {
	once   sync.Once
	kind   string
	stream *FileStream
}

func (t *fileTrack) Kind() string { return t.kind }

func (t *fileTrack) Stop() {
	t.once.Do(t.stream.trackStopped)
}

// FileEncoder emits a stream that implements io.Reader in fixed-size chunks once per timeslice.
type FileEncoder struct {
	// ChunkSize is the number of bytes emitted per timeslice. Defaults to 64 KiB.
	ChunkSize int
	Clock     clock.Clock

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	reader io.Reader
	onData func([]byte)
}

// Start begins emitting chunks.
func (e *FileEncoder) Start(stream Stream, timeslice time.Duration, onData func([]byte)) error {
	reader, ok := stream.(io.Reader)
	if !ok {
		return errors.New("stream is not readable")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		return errors.New("encoder already running")
	}
	if e.ChunkSize <= 0 {
		e.ChunkSize = 64 * 1024
	}
	if e.Clock == nil {
		e.Clock = clock.New()
	}
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.reader = reader
	e.onData = onData

	go e.loop(timeslice, e.stop, e.done)
	return nil
}

func (e *FileEncoder) loop(timeslice time.Duration, stop, done chan struct{}) {
	defer close(done)
	buf := make([]byte, e.ChunkSize)
	for {
		select {
		case <-stop:
			return
		case <-e.Clock.After(timeslice):
		}
		n, err := io.ReadFull(e.reader, buf)
		if n > 0 {
			e.onData(buf[:n])
		}
		if err != nil {
			// End of file: the capture stays open but silent.
			<-stop
			return
		}
	}
}

// Stop stops emitting and waits for the emit loop to exit.
func (e *FileEncoder) Stop() error {
	e.mu.Lock()
	stop, done := e.stop, e.done
	e.stop = nil
	e.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

var (
	_ Devices = (*FileDevices)(nil)
	_ Encoder = (*FileEncoder)(nil)
)
