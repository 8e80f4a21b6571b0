// SPDX-License-Identifier: MIT
package ring

import "sync/atomic"

// SPSC is a single-producer/single-consumer ring. The producer publishes a
// monotonic committed-write count and the consumer a monotonic committed-read
// count; a slot is owned by exactly one side at any time.
//
// Init and Destroy must not run concurrently with any other method.
type SPSC[T any] struct {
	data    []T
	written atomic.Uint64
	read    atomic.Uint64
	dropped atomic.Uint64
}

// NewSPSC returns an SPSC ring with the given capacity.
func NewSPSC[T any](capacity int) *SPSC[T] {
	r := &SPSC[T]{}
	r.Init(capacity)
	return r
}

// Init (re)allocates the ring and resets all counters.
func (r *SPSC[T]) Init(capacity int) {
	r.Destroy()
	if capacity <= 0 {
		return
	}
	r.data = make([]T, capacity)
}

// Destroy releases the backing storage. Safe to call repeatedly.
func (r *SPSC[T]) Destroy() {
	r.data = nil
	r.written.Store(0)
	r.read.Store(0)
	r.dropped.Store(0)
}

// Cap returns the capacity of the ring.
func (r *SPSC[T]) Cap() int {
	return len(r.data)
}

// Size returns the number of committed but unread elements.
func (r *SPSC[T]) Size() int {
	// read first: it can never overtake a later load of written.
	rd := r.read.Load()
	return int(r.written.Load() - rd)
}

// WriteIndex returns the slot the next Write lands in.
func (r *SPSC[T]) WriteIndex() int {
	if len(r.data) == 0 {
		return 0
	}
	return int(r.written.Load() % uint64(len(r.data)))
}

// Dropped returns how many writes were refused because the ring was full.
func (r *SPSC[T]) Dropped() uint64 {
	return r.dropped.Load()
}

// Write appends v. Producer only. When the ring is full the element is
// dropped and counted instead of overwriting a slot the consumer owns.
func (r *SPSC[T]) Write(v T) bool {
	c := uint64(len(r.data))
	if c == 0 {
		return false
	}

	w := r.written.Load()
	if w-r.read.Load() >= c {
		r.dropped.Add(1)
		return false
	}

	r.data[w%c] = v
	r.written.Store(w + 1)
	return true
}

// Read copies up to n of the oldest unread elements into dst without
// consuming them. Consumer only.
func (r *SPSC[T]) Read(n int, dst []T) int {
	c := uint64(len(r.data))
	if c == 0 || n <= 0 {
		return 0
	}

	rd := r.read.Load()
	avail := int(r.written.Load() - rd)
	n = min(n, avail, len(dst))
	if n <= 0 {
		return 0
	}

	start := int(rd % c)
	first := min(n, int(c)-start)
	copy(dst[:first], r.data[start:start+first])
	if first < n {
		copy(dst[first:n], r.data[:n-first])
	}
	return n
}

// RemoveBeginning commits n elements as consumed, handing their slots back
// to the producer. Consumer only.
func (r *SPSC[T]) RemoveBeginning(n int) {
	if len(r.data) == 0 || n <= 0 {
		return
	}

	rd := r.read.Load()
	avail := int(r.written.Load() - rd)
	r.read.Store(rd + uint64(min(n, avail)))
}
