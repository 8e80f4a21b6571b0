// SPDX-License-Identifier: MIT
package synth

import "enginesound/internal/dsp"

// filterSet is the private filter chain of one channel.
type filterSet struct {
	airNoiseLowPass dsp.LowPass
	airNoise        *dsp.Noise
	derivative      dsp.Derivative
	inputDCFilter   dsp.LowPass
	jitter          dsp.Jitter
	antialiasing    dsp.LowPass // producer side, applied while resampling
	convolution     dsp.Convolution

	// Last values pushed into the filters, so unchanged knobs cost nothing.
	airNoiseCutoff    float64
	jitterNoiseCutoff float64
}

func (f *filterSet) initialize(p *AudioParameters, audioSampleRate float64, seed int64) {
	f.airNoise = dsp.NewNoise(seed + 1)
	f.airNoiseLowPass = dsp.LowPass{}
	f.airNoiseLowPass.SetCutoffFrequency(p.AirNoiseFrequencyCutoff, audioSampleRate)
	f.airNoiseCutoff = p.AirNoiseFrequencyCutoff

	f.derivative = dsp.Derivative{DT: 1 / audioSampleRate}

	f.inputDCFilter = dsp.LowPass{DT: 1 / audioSampleRate}
	f.inputDCFilter.SetCutoff(dcCutoff)

	f.jitter.Initialize(maxJitter, p.InputSampleNoiseFrequencyCutoff, audioSampleRate, dsp.NewNoise(seed))
	f.jitter.SetJitterScale(p.InputSampleNoise)
	f.jitterNoiseCutoff = p.InputSampleNoiseFrequencyCutoff

	f.antialiasing = dsp.LowPass{}
	f.antialiasing.SetCutoffFrequency(inputAAcutoff, audioSampleRate)

	f.setImpulseResponse(nil)
}

func (f *filterSet) destroy() {
	f.jitter.Destroy()
	f.convolution.Destroy()
}

// apply retunes the parameter-driven filters. Render goroutine only.
func (f *filterSet) apply(p *AudioParameters) {
	if p.AirNoiseFrequencyCutoff != f.airNoiseCutoff {
		f.airNoiseLowPass.SetCutoff(p.AirNoiseFrequencyCutoff)
		f.airNoiseCutoff = p.AirNoiseFrequencyCutoff
	}
	if p.InputSampleNoiseFrequencyCutoff != f.jitterNoiseCutoff {
		f.jitter.NoiseFilter().SetCutoff(p.InputSampleNoiseFrequencyCutoff)
		f.jitterNoiseCutoff = p.InputSampleNoiseFrequencyCutoff
	}
	f.jitter.SetJitterScale(p.InputSampleNoise)
}

// setImpulseResponse installs taps, or the identity kernel when taps is empty.
func (f *filterSet) setImpulseResponse(taps []float64) {
	if len(taps) == 0 {
		taps = []float64{1}
	}
	f.convolution.Initialize(len(taps))
	copy(f.convolution.ImpulseResponse(), taps)
}
