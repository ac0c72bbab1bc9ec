package buffer

import (
	"fmt"
	"io"
	"sync"
)

// Buffer is a thread-safe growable accumulator. Writers append segments in
// order; Drain hands the whole content to the caller and leaves the buffer
// empty in one step, so no segment can be observed by two drains.
//
// Unlike a pipe, Buffer never blocks: an empty buffer drains to a zero-length
// slice. The buffer counts the segments written since the last Drain or
// Reset, which callers use for diagnostics only.
type Buffer[T any] struct {
	mu       sync.Mutex
	closeErr error
	buf      []T
	segments int
}

// N creates a new Buffer with an initial capacity hint of n elements.
func N[T any](n int) *Buffer[T] {
	return &Buffer[T]{
		buf: make([]T, 0, n),
	}
}

// Write appends a copy of p to the tail of the buffer.
//
// Returns len(p) on success. Writing to a closed buffer returns the close
// error wrapped with the buffer prefix.
func (b *Buffer[T]) Write(p []T) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closeErr != nil {
		return 0, fmt.Errorf("buffer: write to closed buffer: %w", b.closeErr)
	}
	b.buf = append(b.buf, p...)
	b.segments++
	return len(p), nil
}

// Drain returns every element written since the last Drain or Reset, in write
// order, and empties the buffer. The returned slice is owned by the caller.
// Draining an empty buffer returns a non-nil zero-length slice.
func (b *Buffer[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf
	if out == nil {
		out = []T{}
	}
	b.buf = make([]T, 0, cap(out))
	b.segments = 0
	return out
}

// Reset discards all buffered elements without returning them.
func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = b.buf[:0]
	b.segments = 0
}

// Len returns the number of buffered elements.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Segments returns how many Write calls contributed to the current content.
func (b *Buffer[T]) Segments() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.segments
}

// CloseWithError closes the buffer. Subsequent writes fail with err; buffered
// data is released. If err is nil, io.ErrClosedPipe is used.
func (b *Buffer[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closeErr != nil {
		return nil
	}
	b.closeErr = err
	b.buf = nil
	b.segments = 0
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe).
func (b *Buffer[T]) Close() error {
	return b.CloseWithError(io.ErrClosedPipe)
}

// Error returns the error the buffer was closed with, or nil.
func (b *Buffer[T]) Error() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeErr
}
