// SPDX-License-Identifier: MIT
/*
Package audio moves rendered PCM from the synthesizer to a playback device.

The device side is modelled as a looping sample buffer addressed by absolute
positions that wrap at the device buffer length. Buffer mirrors that address
space on the application side; Streamer pumps samples from the synthesizer
into it and copies fresh spans into the locked device segments.

Backends: PortAudio and oto (excluded by the headless build tag) and a
clock-driven headless device that is always available.
*/
package audio

import "math"

// Buffer is a flat int16 store addressed by absolute device positions. It is
// not safe for concurrent use.
type Buffer struct {
	samples         []int16
	sampleRate      int
	offsetToSeconds float64
	writePointer    int
}

// NewBuffer returns an initialized Buffer.
func NewBuffer(sampleRate, size int) *Buffer {
	b := &Buffer{}
	b.Initialize(sampleRate, size)
	return b
}

// Initialize allocates size samples of silence.
func (b *Buffer) Initialize(sampleRate, size int) {
	b.Destroy()
	b.sampleRate = sampleRate
	if sampleRate > 0 {
		b.offsetToSeconds = 1 / float64(sampleRate)
	}
	if size > 0 {
		b.samples = make([]int16, size)
	}
}

// Destroy releases the samples. Safe to call repeatedly.
func (b *Buffer) Destroy() {
	b.samples = nil
	b.writePointer = 0
}

// Size returns the capacity in samples.
func (b *Buffer) Size() int {
	return len(b.samples)
}

// WritePointer returns the offset the next block is written at.
func (b *Buffer) WritePointer() int {
	return b.writePointer
}

// SetWritePointer moves the write pointer to p, wrapped into the buffer.
func (b *Buffer) SetWritePointer(p int) {
	b.writePointer = b.BufferIndex(p, 0)
}

// OffsetToTime converts a sample count to seconds.
func (b *Buffer) OffsetToTime(offset int) float64 {
	return float64(offset) * b.offsetToSeconds
}

// TimeDelta is OffsetDelta in seconds.
func (b *Buffer) TimeDelta(offset0, offset1 int) float64 {
	return b.OffsetToTime(b.OffsetDelta(offset0, offset1))
}

// OffsetDelta returns the forward distance from offset0 to offset1, wrapping
// at the buffer size.
func (b *Buffer) OffsetDelta(offset0, offset1 int) int {
	n := len(b.samples)
	switch {
	case n == 0 || offset0 == offset1:
		return 0
	case offset1 < offset0:
		return n - offset0 + offset1
	default:
		return offset1 - offset0
	}
}

// BufferIndex returns offset+index wrapped into [0, Size()).
func (b *Buffer) BufferIndex(offset, index int) int {
	n := len(b.samples)
	if n == 0 {
		return 0
	}
	return ((offset+index)%n + n) % n
}

// WriteSample stores sample at offset+index.
func (b *Buffer) WriteSample(sample int16, offset, index int) {
	if len(b.samples) == 0 {
		return
	}
	b.samples[b.BufferIndex(offset, index)] = sample
}

// ReadSample returns the sample at offset+index.
func (b *Buffer) ReadSample(offset, index int) int16 {
	if len(b.samples) == 0 {
		return 0
	}
	return b.samples[b.BufferIndex(offset, index)]
}

// CommitBlock advances the write pointer by length samples.
func (b *Buffer) CommitBlock(length int) {
	if len(b.samples) == 0 {
		return
	}
	b.writePointer = b.BufferIndex(b.writePointer, length)
}

// CopyBuffer copies length samples starting at offset into dst, splitting at
// the end of the buffer. length is clamped to the buffer size and len(dst).
func (b *Buffer) CopyBuffer(dst []int16, offset, length int) {
	n := len(b.samples)
	if n == 0 || length <= 0 || len(dst) == 0 {
		return
	}

	length = min(length, n, len(dst))
	start := b.BufferIndex(offset, 0)
	first := min(length, n-start)
	copy(dst[:first], b.samples[start:start+first])
	if rest := length - first; rest > 0 {
		copy(dst[first:length], b.samples[:rest])
	}
}

// Seconds converts a duration in seconds to a whole number of samples.
func (b *Buffer) Seconds(s float64) int {
	return int(math.Round(s * float64(b.sampleRate)))
}
