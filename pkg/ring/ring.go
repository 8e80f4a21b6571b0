// SPDX-License-Identifier: MIT
/*
Package ring provides fixed-capacity circular buffers for audio sample plumbing.

Two flavours are provided:

  - Buffer is an unsynchronized ring with a logical start (oldest unread element)
    and a write index. Callers serialize access themselves.
  - SPSC is a single-producer/single-consumer ring built on monotonic atomic
    counters. The producer and consumer never touch the same slot.

All index arithmetic is taken modulo capacity. A zero capacity turns every
operation into a no-op.
*/
package ring

// Buffer is a fixed-capacity circular buffer over a value type.
type Buffer[T any] struct {
	data       []T
	start      int
	writeIndex int
	size       int
}

// New returns a Buffer with the given capacity.
func New[T any](capacity int) *Buffer[T] {
	b := &Buffer[T]{}
	b.Init(capacity)
	return b
}

// Init (re)allocates the backing storage and resets both cursors.
// Negative or zero capacities leave the buffer empty.
func (b *Buffer[T]) Init(capacity int) {
	b.Destroy()
	if capacity <= 0 {
		return
	}
	b.data = make([]T, capacity)
}

// Destroy releases the backing storage. Safe to call repeatedly.
func (b *Buffer[T]) Destroy() {
	b.data = nil
	b.start = 0
	b.writeIndex = 0
	b.size = 0
}

// Cap returns the capacity of the buffer.
func (b *Buffer[T]) Cap() int {
	return len(b.data)
}

// Size returns the number of unread elements.
func (b *Buffer[T]) Size() int {
	return b.size
}

// Start returns the index of the oldest unread element.
func (b *Buffer[T]) Start() int {
	return b.start
}

// WriteIndex returns the index of the next write slot.
func (b *Buffer[T]) WriteIndex() int {
	return b.writeIndex
}

// Write appends one element. When the buffer is full the oldest element is
// overwritten, so capacity must be sized by the caller to avoid loss.
func (b *Buffer[T]) Write(v T) {
	n := len(b.data)
	if n == 0 {
		return
	}

	b.data[b.writeIndex] = v
	if b.writeIndex++; b.writeIndex >= n {
		b.writeIndex = 0
	}

	if b.size == n {
		b.start = b.writeIndex
	} else {
		b.size++
	}
}

// Overwrite stores v at index rel counted from the start of the buffer.
func (b *Buffer[T]) Overwrite(v T, rel int) {
	n := len(b.data)
	if n == 0 {
		return
	}
	b.data[b.Index(b.start, rel)] = v
}

// At returns the element at index rel counted from the start of the buffer.
func (b *Buffer[T]) At(rel int) T {
	var zero T
	if len(b.data) == 0 {
		return zero
	}
	return b.data[b.Index(b.start, rel)]
}

// Index returns base moved by offset positions, wrapped into [0, Cap()).
func (b *Buffer[T]) Index(base, offset int) int {
	n := len(b.data)
	if n == 0 {
		return 0
	}
	return ((base+offset)%n + n) % n
}

// Read copies the oldest n elements into dst without consuming them and
// returns the number copied. n is clamped to the capacity and to len(dst).
func (b *Buffer[T]) Read(n int, dst []T) int {
	return b.copyOut(n, dst)
}

// ReadAndRemove behaves like Read and then advances the start past the
// copied elements.
func (b *Buffer[T]) ReadAndRemove(n int, dst []T) int {
	n = b.copyOut(n, dst)
	b.RemoveBeginning(n)
	return n
}

// RemoveBeginning advances the start by n positions without copying.
func (b *Buffer[T]) RemoveBeginning(n int) {
	c := len(b.data)
	if c == 0 || n <= 0 {
		return
	}
	b.start = (b.start + n%c) % c
	b.size = max(b.size-n, 0)
	if b.size == 0 {
		b.start = b.writeIndex
	}
}

// SetWriteIndex moves the write cursor. Occupancy follows the new distance
// from the start.
func (b *Buffer[T]) SetWriteIndex(i int) {
	if len(b.data) == 0 {
		return
	}
	b.writeIndex = b.Index(i, 0)
	b.size = b.Index(b.writeIndex-b.start, 0)
}

// SetStartIndex moves the start cursor. Occupancy follows the new distance
// to the write index.
func (b *Buffer[T]) SetStartIndex(i int) {
	if len(b.data) == 0 {
		return
	}
	b.start = b.Index(i, 0)
	b.size = b.Index(b.writeIndex-b.start, 0)
}

// copyOut splits the read across the wrap boundary into at most two spans.
func (b *Buffer[T]) copyOut(n int, dst []T) int {
	c := len(b.data)
	if c == 0 || n <= 0 {
		return 0
	}
	n = min(n, c, len(dst))

	first := min(n, c-b.start)
	copy(dst[:first], b.data[b.start:b.start+first])
	if first < n {
		copy(dst[first:n], b.data[:n-first])
	}
	return n
}
