// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync"
	"time"

	"enginesound/internal/log"
)

var logger = log.New("audio")

var (
	_ Device = (*LoopDevice)(nil)
	_ Device = (*ClockDevice)(nil)
)

// ErrBackendUnavailable is returned when a backend was compiled out.
var ErrBackendUnavailable = errors.New("audio backend not available in this build")

// Device is a looping playback buffer drained by a backend. Positions are
// sample offsets into the loop and wrap at Size.
type Device interface {
	Size() int
	SampleRate() int
	// SafeWritePosition is the first sample the backend has not consumed yet.
	SafeWritePosition() int
	// LockSegment exposes n samples starting at offset as up to two spans.
	// The backend cannot drain the loop until UnlockSegment is called.
	LockSegment(offset, n int) (d0, d1 []int16)
	UnlockSegment()
	Start() error
	Close() error
}

// HostDevice describes a device reported by the host audio API.
type HostDevice struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// LoopDevice is the shared looping buffer behind every backend. Backends call
// Render from their pull callback.
type LoopDevice struct {
	mu         sync.Mutex
	samples    []int16
	sampleRate int
	playCursor int
	consumed   uint64
}

// NewLoopDevice returns a silent loop of size samples at sampleRate.
func NewLoopDevice(sampleRate, size int) *LoopDevice {
	return &LoopDevice{
		samples:    make([]int16, max(size, 1)),
		sampleRate: sampleRate,
	}
}

// Size returns the loop length in samples.
func (d *LoopDevice) Size() int { return len(d.samples) }

// SampleRate returns the playback rate in Hz.
func (d *LoopDevice) SampleRate() int { return d.sampleRate }

// Start is a no-op: a bare loop only advances when Render is called.
func (d *LoopDevice) Start() error { return nil }

// Close is a no-op for a bare loop.
func (d *LoopDevice) Close() error { return nil }

// SafeWritePosition returns the play cursor.
func (d *LoopDevice) SafeWritePosition() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playCursor
}

// Consumed returns the total number of samples handed to the backend.
func (d *LoopDevice) Consumed() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.consumed
}

// LockSegment holds the loop lock until UnlockSegment.
func (d *LoopDevice) LockSegment(offset, n int) (d0, d1 []int16) {
	d.mu.Lock()

	size := len(d.samples)
	n = min(max(n, 0), size)
	start := ((offset % size) + size) % size
	first := min(n, size-start)
	d0 = d.samples[start : start+first]
	if n > first {
		d1 = d.samples[:n-first]
	}
	return d0, d1
}

// UnlockSegment releases the lock taken by LockSegment.
func (d *LoopDevice) UnlockSegment() {
	d.mu.Unlock()
}

// Render copies the next len(dst) samples at the play cursor into dst and
// silences them in the loop, so a stalled writer yields silence instead of a
// repeating loop.
func (d *LoopDevice) Render(dst []int16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := len(d.samples)
	for i := range dst {
		dst[i] = d.samples[d.playCursor]
		d.samples[d.playCursor] = 0
		if d.playCursor++; d.playCursor == size {
			d.playCursor = 0
		}
	}
	d.consumed += uint64(len(dst))
}

// ClockDevice drains a LoopDevice in real time without any audio hardware.
// Rendered blocks are discarded or handed to the optional Monitor.
type ClockDevice struct {
	*LoopDevice

	// Monitor receives every drained block on the clock goroutine.
	Monitor func([]int16)

	framesPerBuffer int
	mu              sync.Mutex
	doneChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// NewClockDevice returns a stopped clock draining framesPerBuffer samples
// per tick.
func NewClockDevice(sampleRate, size, framesPerBuffer int) *ClockDevice {
	return &ClockDevice{
		LoopDevice:      NewLoopDevice(sampleRate, size),
		framesPerBuffer: max(framesPerBuffer, 1),
	}
}

// Start begins draining the loop in real time.
func (c *ClockDevice) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doneChan != nil {
		return errors.New("clock device already started")
	}
	if c.sampleRate <= 0 {
		return errors.New("clock device needs a positive sample rate")
	}

	c.doneChan = make(chan struct{})
	period := time.Duration(float64(time.Second) * float64(c.framesPerBuffer) / float64(c.sampleRate))

	c.wg.Add(1)
	go c.run(max(period, time.Millisecond))

	logger.Infof("Headless clock started (%d Hz, %d frames per tick)", c.sampleRate, c.framesPerBuffer)
	return nil
}

func (c *ClockDevice) run(period time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]int16, c.framesPerBuffer)
	for {
		select {
		case <-c.doneChan:
			return
		case <-ticker.C:
			c.Render(buf)
			if c.Monitor != nil {
				c.Monitor(buf)
			}
		}
	}
}

// Close stops the clock. It is safe to call more than once.
func (c *ClockDevice) Close() error {
	c.mu.Lock()
	done := c.doneChan
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	c.stopOnce.Do(func() {
		close(done)
	})
	c.wg.Wait()
	return nil
}
