// SPDX-License-Identifier: MIT
package dsp

import "math"

// Derivative computes the backward difference (x[n] - x[n-1]) / DT.
type Derivative struct {
	DT float64

	previous float64
}

// F returns the discrete derivative. A near-zero DT yields 0.
func (d *Derivative) F(x float64) float64 {
	prev := d.previous
	d.previous = x

	if math.Abs(d.DT) <= 1e-12 {
		return 0
	}
	return (x - prev) / d.DT
}
