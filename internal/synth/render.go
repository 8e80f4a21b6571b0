// SPDX-License-Identifier: MIT
package synth

import (
	"math"
	"time"
)

const (
	heartbeatInterval = time.Second
	minNormal         = 0x1p-1022
)

// StartAudioRenderingThread launches the render goroutine. It is a no-op
// before Initialize and when a renderer is already running.
func (s *Synthesizer) StartAudioRenderingThread() {
	if s.cond == nil {
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.audioRenderingThread()
	logger.Debugf("rendering started")
}

// EndAudioRenderingThread stops the render goroutine and waits for it to
// exit. Safe to call when no renderer is running.
func (s *Synthesizer) EndAudioRenderingThread() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.EndInputBlock()
	s.broadcast()
	s.wg.Wait()
	logger.Debugf("rendering stopped")
}

func (s *Synthesizer) audioRenderingThread() {
	defer s.wg.Done()

	var hb heartbeat
	hb.reset(time.Now())

	for {
		start := time.Now()
		if !s.renderAudio() {
			return
		}
		hb.cycles++
		hb.elapsed += time.Since(start)
		s.stats.cycles.Add(1)

		if len(s.channels) > 0 {
			backlog := s.channels[0].data.Size()
			switch {
			case backlog <= 0:
				hb.underruns++
				s.stats.underruns.Add(1)
			case backlog > s.inputBufferSize*3/4:
				hb.overruns++
				s.stats.overruns.Add(1)
			}
		}

		if now := time.Now(); now.Sub(hb.start) >= heartbeatInterval {
			s.logHeartbeat(&hb)
			hb.reset(now)
		}
	}
}

// renderAudio runs one render cycle and reports whether the renderer should
// keep going.
func (s *Synthesizer) renderAudio() bool {
	s.mu.Lock()
	for s.running && !s.ready() {
		s.cond.Wait()
	}
	if !s.running {
		s.mu.Unlock()
		return false
	}

	n := min(max(0, s.targetFill-s.output.Size()), s.channels[0].data.Size(), len(s.scratch))
	for i := range s.channels {
		s.channels[i].data.Read(n, s.channels[i].transfer)
	}
	s.samplesRead = n
	s.processed = true

	params := s.params
	for i, taps := range s.pendingIR {
		if taps != nil {
			s.filters[i].setImpulseResponse(taps)
			s.pendingIR[i] = nil
		}
	}
	s.mu.Unlock()
	s.cond.Broadcast()

	for i := range s.filters {
		s.filters[i].apply(&params)
	}
	s.leveler.Target = params.LevelerTarget
	s.leveler.MaxGain = params.LevelerMaxGain
	s.leveler.MinGain = params.LevelerMinGain

	out := s.scratch[:n]
	for i := range out {
		out[i] = s.renderSample(i, &params)
	}
	s.levelerGain.Store(math.Float64bits(s.leveler.Attenuation()))

	s.mu.Lock()
	for _, v := range out {
		s.output.Write(v)
	}
	s.mu.Unlock()

	return true
}

// ready reports whether a new block can be rendered. Caller holds mu.
func (s *Synthesizer) ready() bool {
	return len(s.channels) > 0 &&
		s.channels[0].data.Size() > 0 &&
		s.output.Size() < s.targetFill &&
		!s.processed
}

// renderSample runs the per-sample chain for transfer index k across all
// channels and quantizes the mix to 16 bits.
func (s *Synthesizer) renderSample(k int, p *AudioParameters) int16 {
	var signal float64
	for i := range s.channels {
		f := &s.filters[i]

		in := f.jitter.F(s.channels[i].transfer[k])
		x := in - f.inputDCFilter.F(in)
		dx := f.derivative.F(in)

		r := f.airNoiseLowPass.F(f.airNoise.Next())
		rMixed := p.AirNoise*r + (1 - p.AirNoise)

		v := flush(dx*p.DFFMix + x*rMixed*(1-p.DFFMix))
		v = p.Convolution*f.convolution.F(v) + (1-p.Convolution)*v

		signal += v
	}

	signal = s.antialiasing.F(signal)
	return quantize(s.leveler.F(signal) * p.Volume)
}

// flush zeroes subnormal and non-finite values.
func flush(v float64) float64 {
	if a := math.Abs(v); a < minNormal || math.IsInf(a, 0) || math.IsNaN(a) {
		return 0
	}
	return v
}

func quantize(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	switch {
	case r > math.MaxInt16:
		return math.MaxInt16
	case r < math.MinInt16:
		return math.MinInt16
	}
	return int16(r)
}
