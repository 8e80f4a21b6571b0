// SPDX-License-Identifier: MIT
package dsp

import "math"

// Jitter emulates timing jitter by reading the signal back from a short
// history at a slowly wandering fractional delay.
type Jitter struct {
	history   []float64
	offset    int
	maxJitter int

	noise       *Noise
	noiseFilter LowPass

	jitterScale float64
}

// Initialize sizes the history to maxJitter samples. The delay noise is
// low-passed at cutoffHz for the given sample rate. A nil noise source is
// replaced by one with seed 1.
func (j *Jitter) Initialize(maxJitter int, cutoffHz, sampleRateHz float64, noise *Noise) {
	j.Destroy()

	j.maxJitter = maxJitter
	if maxJitter > 0 {
		j.history = make([]float64, maxJitter)
	}

	if noise == nil {
		noise = NewNoise(1)
	}
	j.noise = noise
	j.noiseFilter.SetCutoffFrequency(cutoffHz, sampleRateHz)
}

// Destroy releases the history.
func (j *Jitter) Destroy() {
	j.history = nil
	j.offset = 0
	j.maxJitter = 0
	j.noiseFilter.Reset()
}

// SetJitterScale sets the delay excursion as a fraction of maxJitter. A
// non-finite scale disables the jitter.
func (j *Jitter) SetJitterScale(scale float64) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 0
	}
	j.jitterScale = scale
}

// JitterScale returns the current delay excursion.
func (j *Jitter) JitterScale() float64 {
	return j.jitterScale
}

// NoiseFilter exposes the delay-noise low-pass so its cutoff can be retuned.
func (j *Jitter) NoiseFilter() *LowPass {
	return &j.noiseFilter
}

// F records x and returns the history interpolated at the current delay.
// Without history the filter is the identity.
func (j *Jitter) F(x float64) float64 {
	m := len(j.history)
	if j.maxJitter <= 0 || m == 0 {
		return x
	}

	j.history[j.offset] = x

	s := math.Abs(j.noiseFilter.F(0.5*j.noise.Next())) * j.jitterScale
	if !(s > 0) {
		s = 0
	}
	delay := math.Min(s, 1) * float64(m-1)

	whole := int(delay)
	frac := delay - float64(whole)

	i0 := (j.offset - whole + m) % m
	i1 := (i0 - 1 + m) % m

	if j.offset++; j.offset >= m {
		j.offset = 0
	}

	return (1-frac)*j.history[i0] + frac*j.history[i1]
}
