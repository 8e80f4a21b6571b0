// SPDX-License-Identifier: MIT
package sim

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"enginesound/internal/log"
)

var logger = log.New("sim")

// maxFrameTime caps the wall clock a single frame may simulate after a stall.
const maxFrameTime = 100 * time.Millisecond

// Synth is the synthesizer surface the runner drives. It is satisfied by
// *synth.Synthesizer.
type Synth interface {
	WriteInput(data []float64)
	EndInputBlock()
	WaitProcessed()
	Latency() float64
	SetInputSampleRate(rate float64)
	ReadAudioOutput(dst []int16) int
	OutputSize() int
	AudioSampleRate() float64
	EndAudioRenderingThread()
}

// Runner steps a PulseSource into a synthesizer one frame at a time.
type Runner struct {
	source        *PulseSource
	synth         Synth
	frameRate     float64
	targetLatency float64

	frame     []float64
	stepDebt  float64
	lastFrame time.Time
	steps     atomic.Uint64

	mu       sync.Mutex
	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRunner(source *PulseSource, s Synth, frameRate, targetLatency float64) (*Runner, error) {
	if source == nil || s == nil {
		return nil, errors.New("runner needs a source and a synthesizer")
	}
	if frameRate <= 0 {
		return nil, errors.New("frame rate must be positive")
	}
	return &Runner{
		source:        source,
		synth:         s,
		frameRate:     frameRate,
		targetLatency: targetLatency,
		frame:         make([]float64, source.Channels()),
	}, nil
}

// Steps returns the number of simulation steps written so far.
func (r *Runner) Steps() uint64 {
	return r.steps.Load()
}

// stepsFor converts dt of wall clock into whole steps, carrying the
// fractional remainder into the next frame.
func (r *Runner) stepsFor(dt float64) int {
	r.stepDebt += dt * r.source.SampleRate()
	n := math.Floor(r.stepDebt)
	r.stepDebt -= n
	return int(n)
}

// adjust steers the step count toward the target input latency by ten
// percent per frame.
func (r *Runner) adjust(steps int) int {
	if r.targetLatency <= 0 {
		return steps
	}
	switch latency := r.synth.Latency(); {
	case latency < r.targetLatency:
		return int(float64(steps+1) * 1.1)
	case latency > r.targetLatency:
		return max(0, int(float64(steps-1)*0.9))
	}
	return steps
}

// Frame writes steps simulation samples and closes the input block.
func (r *Runner) Frame(steps int) {
	r.synth.SetInputSampleRate(r.source.SampleRate())
	for range steps {
		r.source.Next(r.frame)
		r.synth.WriteInput(r.frame)
	}
	r.synth.EndInputBlock()
	r.steps.Add(uint64(steps))
}

// Start runs frames on a ticker at the frame rate, sizing each frame from
// the measured wall clock.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ticker != nil {
		return errors.New("runner already started")
	}

	r.ticker = time.NewTicker(time.Duration(float64(time.Second) / r.frameRate))
	r.doneChan = make(chan struct{})
	r.stopOnce = sync.Once{}
	r.lastFrame = time.Now()

	r.wg.Add(1)
	go r.run(r.ticker, r.doneChan)

	logger.Infof("Simulation running at %.0f frames/s, %.0f steps/s, %.0f RPM",
		r.frameRate, r.source.SampleRate(), r.source.RPM())
	return nil
}

func (r *Runner) run(ticker *time.Ticker, done <-chan struct{}) {
	defer r.wg.Done()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			dt := min(now.Sub(r.lastFrame), maxFrameTime)
			r.lastFrame = now
			r.Frame(r.adjust(r.stepsFor(dt.Seconds())))
		}
	}
}

// Stop halts the frame loop. Safe to call repeatedly.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.ticker == nil {
		r.mu.Unlock()
		return
	}
	r.stopOnce.Do(func() {
		r.ticker.Stop()
		close(r.doneChan)
	})
	r.ticker = nil
	r.mu.Unlock()

	r.wg.Wait()
	logger.Infof("Simulation stopped after %d steps", r.Steps())
}

// RenderOffline renders seconds of audio as fast as the synthesizer allows
// and hands every block to emit. The synthesizer's renderer must be running;
// it is stopped before RenderOffline returns. The silence the output ring
// starts with is discarded.
func (r *Runner) RenderOffline(seconds float64, emit func([]int16) error) error {
	defer r.synth.EndAudioRenderingThread()

	total := int(math.Round(seconds * r.synth.AudioSampleRate()))
	buf := make([]int16, 4096)

	// Drop the priming silence.
	for n := r.synth.OutputSize(); n > 0; n = r.synth.OutputSize() {
		r.synth.ReadAudioOutput(buf[:min(n, len(buf))])
	}

	drain := func() error {
		for n := r.synth.OutputSize(); n > 0 && total > 0; n = r.synth.OutputSize() {
			read := r.synth.ReadAudioOutput(buf[:min(n, len(buf), total)])
			total -= read
			if err := emit(buf[:read]); err != nil {
				return err
			}
		}
		return nil
	}

	for total > 0 {
		steps := r.stepsFor(1 / r.frameRate)
		r.Frame(steps)
		if err := drain(); err != nil {
			return err
		}
		if steps > 0 {
			r.synth.WaitProcessed()
		}
	}

	r.synth.EndAudioRenderingThread()
	return drain()
}
