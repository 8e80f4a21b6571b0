// SPDX-License-Identifier: MIT
package dsp

import "math"

// LowPass is a single-pole RC low-pass filter with zero initial state.
type LowPass struct {
	DT float64 // Sample period in seconds.
	RC float64 // Time constant derived from the cutoff.

	y float64
}

// SetCutoffFrequency configures the cutoff and the sample period at once.
func (f *LowPass) SetCutoffFrequency(cutoffHz, sampleRateHz float64) {
	if sampleRateHz > 0 {
		f.DT = 1 / sampleRateHz
	}
	f.SetCutoff(cutoffHz)
}

// SetCutoff changes the cutoff and keeps the current sample period. A
// non-positive or NaN cutoff passes the signal through.
func (f *LowPass) SetCutoff(cutoffHz float64) {
	if !(cutoffHz > 0) {
		f.RC = 0
		return
	}
	f.RC = 1 / (2 * math.Pi * cutoffHz)
}

// F filters one sample. An unconfigured filter passes the signal through.
func (f *LowPass) F(x float64) float64 {
	if f.DT <= 0 {
		return x
	}
	alpha := f.DT / (f.RC + f.DT)
	f.y += alpha * (x - f.y)
	return f.y
}

// Reset clears the filter state.
func (f *LowPass) Reset() {
	f.y = 0
}
