// Package ringbuf provides a fixed-capacity circular byte buffer shared
// between a producer and a consumer goroutine.
package ringbuf

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrFull indicates no space is left for writing.
	ErrFull = errors.New("ringbuf: full")
	// ErrEmpty indicates nothing is left for reading.
	ErrEmpty = errors.New("ringbuf: empty")
)

// Buffer is a circular byte buffer. All methods are safe for concurrent use.
// A Buffer is also a wire cursor: ReadByte and WriteByte implement
// io.ByteReader and io.ByteWriter.
type Buffer struct {
	data  []byte
	start int
	end   int
	full  bool
	lock  sync.Mutex
}

// New creates a Buffer. It panics if capacity is less than 2.
func New(capacity int) *Buffer {
	if capacity < 2 {
		panic(fmt.Sprintf("ringbuf: invalid capacity %d", capacity))
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Capacity returns the size of the buffer.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Available returns the number of bytes ready for reading.
func (b *Buffer) Available() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.available()
}

// Free returns the number of bytes that can be written without ErrFull.
func (b *Buffer) Free() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.data) - b.available()
}

// IsEmpty reports whether nothing can be read.
func (b *Buffer) IsEmpty() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.end == b.start && !b.full
}

// IsFull reports whether nothing can be written.
func (b *Buffer) IsFull() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.full
}

// Clear drops all buffered bytes.
func (b *Buffer) Clear() {
	b.lock.Lock()
	b.start, b.end, b.full = 0, 0, false
	b.lock.Unlock()
}

// WriteByte appends one byte.
func (b *Buffer) WriteByte(c byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.full {
		return ErrFull
	}
	b.put(c)
	return nil
}

// ReadByte removes the oldest byte.
func (b *Buffer) ReadByte() (byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.end == b.start && !b.full {
		return 0, ErrEmpty
	}
	return b.take(), nil
}

// Write appends as many bytes of p as fit. It returns ErrFull if not all
// of p was written.
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for ; n < len(p); n++ {
		if b.full {
			return n, ErrFull
		}
		b.put(p[n])
	}
	return n, nil
}

// Read removes up to len(p) bytes. It returns ErrEmpty only when nothing
// was buffered.
func (b *Buffer) Read(p []byte) (n int, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(p) > 0 && b.end == b.start && !b.full {
		return 0, ErrEmpty
	}
	for ; n < len(p) && (b.end != b.start || b.full); n++ {
		p[n] = b.take()
	}
	return n, nil
}

func (b *Buffer) available() int {
	switch {
	case b.full:
		return len(b.data)
	case b.start <= b.end:
		return b.end - b.start
	default:
		return len(b.data) + b.end - b.start
	}
}

func (b *Buffer) put(c byte) {
	b.data[b.end] = c
	b.end = (b.end + 1) % len(b.data)
	b.full = b.end == b.start
}

func (b *Buffer) take() byte {
	c := b.data[b.start]
	b.start = (b.start + 1) % len(b.data)
	b.full = false
	return c
}
