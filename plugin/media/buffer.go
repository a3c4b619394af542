package media

import "sync"

// Buffer is the append-only chunk list of one recording.
// The encoder callback appends; snapshots copy under the read lock.
type Buffer struct {
	mu       sync.RWMutex
	chunks   [][]byte
	size     int
	mark     int
	sealed   bool
	header   bool
	mimeType string
}

// NewBuffer creates a buffer. When withHeader is set, the first chunk is treated as the
// container header and prefixed to every snapshot that does not start at chunk zero.
func NewBuffer(mimeType string, withHeader bool) *Buffer {
	return &Buffer{mimeType: mimeType, header: withHeader}
}

// Append copies chunk into the buffer. Empty chunks and appends after Seal are dropped.
func (b *Buffer) Append(chunk []byte) bool {
	if len(chunk) == 0 {
		return false
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return false
	}
	b.chunks = append(b.chunks, c)
	b.size += len(c)
	return true
}

// Mark records the current end of the buffer as the start of the next answer.
func (b *Buffer) Mark() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mark = len(b.chunks)
	return b.mark
}

// Snapshot returns the chunks appended since the last mark and moves the mark to the end,
// so consecutive snapshots never overlap.
func (b *Buffer) Snapshot() Blob {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := b.mark
	b.mark = len(b.chunks)
	if from >= len(b.chunks) {
		return Blob{MimeType: b.mimeType}
	}

	parts := b.chunks[from:]
	if b.header && from > 0 {
		parts = append([][]byte{b.chunks[0]}, parts...)
	}
	return join(parts, b.mimeType)
}

// All returns the whole recording.
func (b *Buffer) All() Blob {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return join(b.chunks, b.mimeType)
}

// Seal rejects further appends.
func (b *Buffer) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
}

// Len returns the number of chunks.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.chunks)
}

// Size returns the number of buffered bytes.
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func join(parts [][]byte, mimeType string) Blob {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	data := make([]byte, 0, n)
	for _, p := range parts {
		data = append(data, p...)
	}
	return Blob{Data: data, MimeType: mimeType, Chunks: len(parts)}
}
