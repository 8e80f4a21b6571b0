// SPDX-License-Identifier: MIT
/*
Package synth turns per-cylinder simulation samples into 16-bit PCM.

The simulation goroutine (producer) calls WriteInput once per simulation step
and EndInputBlock once per frame. WriteInput resamples the irregular
simulation clock onto the audio clock and appends to one SPSC ring per
channel. A dedicated render goroutine (consumer) waits for an unprocessed
block, copies a transfer window out of every input ring, runs the per-sample
filter chain and appends quantized samples to the output ring. The playback
side drains the output ring with ReadAudioOutput.

Synchronization:
  - One mutex and condition variable guard the processed/running flags, the
    consumed count, the audio parameters and the output ring.
  - Input rings are SPSC; the producer never waits on the renderer except
    through WaitProcessed.
  - Filter state belongs to the render goroutine once it has started. The
    per-channel resampling low-pass belongs to the producer.
*/
package synth

import (
	"math"
	"sync"
	"sync/atomic"

	"enginesound/internal/dsp"
	"enginesound/internal/log"
	"enginesound/pkg/ring"
)

const (
	irNoiseFloor  = 100   // IR samples at or below this magnitude are tail noise
	irMaxTaps     = 10000 // Longest impulse response kept
	maxJitter     = 10    // Jitter history in samples
	dcCutoff      = 10.0  // Hz
	inputAAcutoff = 1900.0
	outputAARatio = 0.45 // Output anti-alias cutoff as a fraction of the audio rate
)

var logger = log.New("synth")

// AudioParameters are the live mix knobs. They are copied by value; the
// renderer takes a snapshot at the start of every chunk.
type AudioParameters struct {
	Volume                          float64
	Convolution                     float64 // FIR wet/dry
	DFFMix                          float64 // Derivative vs. DC-blocked signal
	InputSampleNoise                float64 // Jitter scale
	InputSampleNoiseFrequencyCutoff float64
	AirNoise                        float64
	AirNoiseFrequencyCutoff         float64
	LevelerTarget                   float64
	LevelerMaxGain                  float64
	LevelerMinGain                  float64
}

// DefaultAudioParameters returns the voicing the engine sound was tuned with.
func DefaultAudioParameters() AudioParameters {
	return AudioParameters{
		Volume:                          1,
		Convolution:                     1,
		DFFMix:                          0.01,
		InputSampleNoise:                0.5,
		InputSampleNoiseFrequencyCutoff: 10000,
		AirNoise:                        1,
		AirNoiseFrequencyCutoff:         2000,
		LevelerTarget:                   30000,
		LevelerMaxGain:                  1.9,
		LevelerMinGain:                  0.00001,
	}
}

// Parameters configure a Synthesizer at Initialize.
type Parameters struct {
	InputChannelCount int
	InputBufferSize   int     // Per-channel input ring capacity
	AudioBufferSize   int     // Output ring capacity
	InputSampleRate   float64 // Simulation steps per second
	AudioSampleRate   float64
	TargetFill        int   // Output samples the renderer keeps buffered; clamped to AudioBufferSize
	Seed              int64 // Noise seed

	InitialAudioParameters AudioParameters
}

// DefaultParameters returns a single channel configuration.
func DefaultParameters() Parameters {
	return Parameters{
		InputChannelCount:      1,
		InputBufferSize:        1024,
		AudioBufferSize:        44100,
		InputSampleRate:        10000,
		AudioSampleRate:        44100,
		TargetFill:             2000,
		Seed:                   1,
		InitialAudioParameters: DefaultAudioParameters(),
	}
}

type inputChannel struct {
	data            *ring.SPSC[float64]
	transfer        []float64
	lastInputSample float64
}

// Synthesizer converts simulation samples into PCM. The zero value is an
// uninitialized synthesizer; call Initialize before use.
type Synthesizer struct {
	// Immutable between Initialize and Destroy.
	channels        []inputChannel
	filters         []filterSet
	inputBufferSize int
	audioSampleRate float64
	targetFill      int

	// Producer state.
	inputSampleRate       atomic.Uint64 // float64 bits
	inputWriteOffset      float64
	lastInputSampleOffset float64
	inputWriteIndex       int

	// Render goroutine state.
	antialiasing dsp.LowPass
	leveler      dsp.Leveler
	scratch      []int16

	// Guarded by mu.
	mu           sync.Mutex
	cond         *sync.Cond
	output       ring.Buffer[int16]
	params       AudioParameters
	pendingIR    [][]float64
	samplesRead  int
	processed    bool
	running      bool
	readShortage uint64

	wg sync.WaitGroup

	latency     atomic.Int64  // channel 0 backlog in samples
	levelerGain atomic.Uint64 // float64 bits
	stats       counters
}

// Initialize allocates every channel, configures the filters and fills the
// output ring with silence. An initialized synthesizer is destroyed first.
func (s *Synthesizer) Initialize(p Parameters) {
	s.Destroy()

	if s.cond == nil {
		s.cond = sync.NewCond(&s.mu)
	}

	channelCount := max(0, p.InputChannelCount)
	s.inputBufferSize = max(1, p.InputBufferSize)
	audioBufferSize := max(1, p.AudioBufferSize)
	s.audioSampleRate = positiveOr(p.AudioSampleRate, 1)
	s.inputSampleRate.Store(math.Float64bits(positiveOr(p.InputSampleRate, 1)))
	s.targetFill = audioBufferSize
	if p.TargetFill > 0 {
		s.targetFill = min(p.TargetFill, audioBufferSize)
	}

	s.params = p.InitialAudioParameters
	s.inputWriteOffset = 0
	s.lastInputSampleOffset = 0
	s.inputWriteIndex = 0
	s.samplesRead = 0
	s.readShortage = 0
	s.processed = true
	s.latency.Store(0)
	s.stats.reset()

	s.channels = make([]inputChannel, channelCount)
	s.filters = make([]filterSet, channelCount)
	s.pendingIR = make([][]float64, channelCount)
	for i := range s.channels {
		s.channels[i].data = ring.NewSPSC[float64](s.inputBufferSize)
		s.channels[i].transfer = make([]float64, s.inputBufferSize)
		s.filters[i].initialize(&s.params, s.audioSampleRate, p.Seed+int64(2*i))
	}

	s.leveler = dsp.Leveler{
		Target:  s.params.LevelerTarget,
		MaxGain: s.params.LevelerMaxGain,
		MinGain: s.params.LevelerMinGain,
	}
	s.leveler.Reset()
	s.levelerGain.Store(math.Float64bits(s.leveler.Attenuation()))
	s.antialiasing = dsp.LowPass{}
	s.antialiasing.SetCutoffFrequency(s.audioSampleRate*outputAARatio, s.audioSampleRate)

	s.scratch = make([]int16, min(s.inputBufferSize, s.targetFill))

	s.output.Init(audioBufferSize)
	for range audioBufferSize {
		s.output.Write(0)
	}

	logger.Debugf("initialized channels=%d input_buffer=%d audio_buffer=%d target_fill=%d",
		channelCount, s.inputBufferSize, audioBufferSize, s.targetFill)
}

// Destroy stops the renderer if needed and releases every buffer. Safe to
// call repeatedly and on a zero value.
func (s *Synthesizer) Destroy() {
	s.EndAudioRenderingThread()

	for i := range s.channels {
		s.channels[i].data.Destroy()
		s.channels[i].transfer = nil
		s.filters[i].destroy()
	}
	s.channels = nil
	s.filters = nil
	s.pendingIR = nil
	s.scratch = nil
	s.output.Destroy()
	s.latency.Store(0)
}

// Channels returns the number of input channels.
func (s *Synthesizer) Channels() int {
	return len(s.channels)
}

// InitializeImpulseResponse loads a 16-bit impulse response into the FIR of
// one channel. Samples are trimmed after the last one louder than the noise
// floor, capped at 10000 taps and scaled by volume/32767. An empty or silent
// response installs the identity kernel. Out of range channels are ignored.
//
// While rendering, the kernel is handed to the render goroutine and takes
// effect at the start of its next chunk.
func (s *Synthesizer) InitializeImpulseResponse(samples []int16, volume float64, channel int) {
	if channel < 0 || channel >= len(s.filters) {
		return
	}

	taps := impulseResponseTaps(samples, volume)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.pendingIR[channel] = taps
		return
	}
	s.filters[channel].setImpulseResponse(taps)
}

func impulseResponseTaps(samples []int16, volume float64) []float64 {
	clipped := 0
	for i, v := range samples {
		if x := int(v); x > irNoiseFloor || x < -irNoiseFloor {
			clipped = i + 1
		}
	}

	n := min(irMaxTaps, clipped)
	if n == 0 {
		return []float64{1}
	}

	taps := make([]float64, n)
	for i := range taps {
		taps[i] = volume * float64(samples[i]) / math.MaxInt16
	}
	return taps
}

// AudioParameters returns a snapshot of the live parameters.
func (s *Synthesizer) AudioParameters() AudioParameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetAudioParameters replaces the live parameters. The renderer picks them up
// at its next chunk.
func (s *Synthesizer) SetAudioParameters(p AudioParameters) {
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
}

// LevelerGain returns the gain the leveler applied at the end of the last
// rendered chunk.
func (s *Synthesizer) LevelerGain() float64 {
	return math.Float64frombits(s.levelerGain.Load())
}

// Latency returns the channel 0 input backlog recorded by the last
// EndInputBlock, in seconds.
func (s *Synthesizer) Latency() float64 {
	if s.audioSampleRate <= 0 {
		return 0
	}
	return float64(s.latency.Load()) / s.audioSampleRate
}

// AudioSampleRate returns the output rate in Hz.
func (s *Synthesizer) AudioSampleRate() float64 {
	return s.audioSampleRate
}

// InputSampleRate returns the simulation rate used by the resampler.
func (s *Synthesizer) InputSampleRate() float64 {
	return math.Float64frombits(s.inputSampleRate.Load())
}

// SetInputSampleRate changes the simulation rate. Non-positive rates are
// ignored.
func (s *Synthesizer) SetInputSampleRate(rate float64) {
	if rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
		return
	}
	s.inputSampleRate.Store(math.Float64bits(rate))
}

// ReadAudioOutput drains up to len(dst) samples from the output ring. A
// shortfall is zero-padded and the number of real samples is returned.
func (s *Synthesizer) ReadAudioOutput(dst []int16) int {
	if len(dst) == 0 {
		return 0
	}

	s.mu.Lock()
	n := s.output.ReadAndRemove(min(len(dst), s.output.Size()), dst)
	if n < len(dst) {
		s.readShortage++
	}
	wake := !s.processed && s.output.Size() < s.targetFill
	s.mu.Unlock()

	clear(dst[n:])
	if wake {
		s.broadcast()
	}
	return n
}

// OutputSize returns the number of rendered samples waiting to be read.
func (s *Synthesizer) OutputSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.Size()
}

func (s *Synthesizer) broadcast() {
	if s.cond != nil {
		s.cond.Broadcast()
	}
}

func positiveOr(v, fallback float64) float64 {
	if v > 0 && !math.IsInf(v, 0) {
		return v
	}
	return fallback
}
