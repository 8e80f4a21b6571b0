// SPDX-License-Identifier: MIT
package dsp

import "math"

const (
	levelerPeakRelease = 0.9999 // per-sample peak decay
	levelerSmoothing   = 0.001  // per-sample gain slew
)

// Leveler is a peak-following automatic gain control. It steers its gain
// towards Target/peak, bounded by MinGain and MaxGain.
type Leveler struct {
	Target  float64
	MinGain float64
	MaxGain float64

	peak        float64
	attenuation float64
	primed      bool
}

// F levels one sample.
func (l *Leveler) F(x float64) float64 {
	if !l.primed {
		l.attenuation = 1
		l.primed = true
	}

	l.peak = math.Max(math.Abs(x), l.peak*levelerPeakRelease)

	gain := l.MaxGain
	if l.peak > 0 {
		gain = l.Target / l.peak
	}
	gain = math.Min(gain, l.MaxGain)
	gain = math.Max(gain, l.MinGain)

	l.attenuation += (gain - l.attenuation) * levelerSmoothing
	return x * l.attenuation
}

// Attenuation returns the gain currently applied.
func (l *Leveler) Attenuation() float64 {
	if !l.primed {
		return 1
	}
	return l.attenuation
}

// Reset forgets the tracked peak and returns to unity gain.
func (l *Leveler) Reset() {
	l.peak = 0
	l.attenuation = 1
	l.primed = true
}
