// SPDX-License-Identifier: MIT
package synth

import "math"

// WriteInput takes one raw sample per channel for a single simulation step.
// The step is resampled onto the audio clock by linear interpolation between
// the previous and the current sample, low-passed and appended to the
// channel's input ring. Producer only.
//
// data shorter than the channel count is ignored.
func (s *Synthesizer) WriteInput(data []float64) {
	if len(s.channels) == 0 || len(data) < len(s.channels) {
		return
	}

	size := float64(s.inputBufferSize)
	s.inputWriteOffset += s.audioSampleRate / s.InputSampleRate()
	if s.inputWriteOffset >= size {
		s.inputWriteOffset = math.Mod(s.inputWriteOffset, size)
	}

	distance := s.inputDistance(s.inputWriteOffset, s.lastInputSampleOffset)
	if distance <= 1e-12 {
		for i := range s.channels {
			s.channels[i].lastInputSample = data[i]
		}
		s.lastInputSampleOffset = s.inputWriteOffset
		return
	}

	start := s.inputDistance(float64(s.inputWriteIndex), s.lastInputSampleOffset)
	written := 0
	for i := range s.channels {
		ch := &s.channels[i]
		aa := &s.filters[i].antialiasing
		last := ch.lastInputSample

		written = 0
		for x := start; x <= distance; x++ {
			f := x / distance
			ch.data.Write(aa.F(last*(1-f) + data[i]*f))
			written++
		}
		ch.lastInputSample = data[i]
	}

	s.inputWriteIndex = (s.inputWriteIndex + written) % s.inputBufferSize
	s.lastInputSampleOffset = s.inputWriteOffset
}

// inputDistance is the forward distance from s0 to s1 in the input index
// space, wrapping at the input buffer size.
func (s *Synthesizer) inputDistance(s1, s0 float64) float64 {
	if s1 < s0 {
		return float64(s.inputBufferSize) - s0 + s1
	}
	return s1 - s0
}

// EndInputBlock commits the window the renderer consumed last cycle, records
// the channel 0 backlog as latency and wakes the renderer. Called once per
// simulation frame.
func (s *Synthesizer) EndInputBlock() {
	s.mu.Lock()
	for i := range s.channels {
		s.channels[i].data.RemoveBeginning(s.samplesRead)
	}
	if len(s.channels) > 0 {
		s.latency.Store(int64(s.channels[0].data.Size()))
		s.processed = false
	}
	s.samplesRead = 0
	s.mu.Unlock()

	s.broadcast()
}

// WaitProcessed blocks until the renderer has taken the most recent block,
// or until no renderer is running.
func (s *Synthesizer) WaitProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.processed && s.running {
		s.cond.Wait()
	}
}
