package stream

import (
	"github.com/psycho-baller/text2dot/pkg/buffer"
)

// ChunkBuffer accumulates the binary chunks of one epoch. It is owned by the
// event loop.
//
// Epoch numbers increase monotonically: Begin, DrainAll and Reset each end
// the current epoch. After DrainAll the buffer stays active and the next
// chunk belongs to the new epoch; after Reset no chunk is accepted until the
// next Begin.
type ChunkBuffer struct {
	buf    *buffer.BytesBuffer
	epoch  uint64
	active bool
}

// NewChunkBuffer returns an inactive, empty buffer.
func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{buf: buffer.Bytes()}
}

// Begin discards any content and starts a fresh active epoch. It returns the
// new epoch number.
func (b *ChunkBuffer) Begin() uint64 {
	b.buf.Reset()
	b.epoch++
	b.active = true
	return b.epoch
}

// Append adds chunk to the tail of the current epoch. It returns ErrNoEpoch
// when no epoch is active.
func (b *ChunkBuffer) Append(chunk []byte) error {
	if !b.active {
		return ErrNoEpoch
	}
	_, err := b.buf.Write(chunk)
	return err
}

// DrainAll returns the concatenation of every chunk appended in the current
// epoch, in arrival order, and starts the next epoch with an empty buffer.
// An empty epoch drains to a zero-length slice.
func (b *ChunkBuffer) DrainAll() []byte {
	out := b.buf.Drain()
	b.epoch++
	return out
}

// Reset discards the content and deactivates the buffer.
func (b *ChunkBuffer) Reset() {
	b.buf.Reset()
	b.epoch++
	b.active = false
}

// Len returns the number of buffered bytes.
func (b *ChunkBuffer) Len() int {
	return b.buf.Len()
}

// Chunks returns the number of chunks in the current epoch.
func (b *ChunkBuffer) Chunks() int {
	return b.buf.Segments()
}

// Epoch returns the current epoch number.
func (b *ChunkBuffer) Epoch() uint64 {
	return b.epoch
}

// Active reports whether chunks are accepted.
func (b *ChunkBuffer) Active() bool {
	return b.active
}
