// SPDX-License-Identifier: MIT
package dsp

import "gonum.org/v1/gonum/floats"

// Convolution is a direct-form FIR filter over a circular shift register.
type Convolution struct {
	shift  []float64
	ir     []float64
	offset int
}

// Initialize allocates n taps, all zero.
func (c *Convolution) Initialize(n int) {
	c.Destroy()
	if n <= 0 {
		return
	}
	c.shift = make([]float64, n)
	c.ir = make([]float64, n)
}

// Destroy releases the taps and the shift register.
func (c *Convolution) Destroy() {
	c.shift = nil
	c.ir = nil
	c.offset = 0
}

// Len returns the number of taps.
func (c *Convolution) Len() int {
	return len(c.ir)
}

// ImpulseResponse exposes the taps for writing.
func (c *Convolution) ImpulseResponse() []float64 {
	return c.ir
}

// F pushes x into the shift register and returns the dot product with the
// impulse response. An uninitialized filter passes x through.
func (c *Convolution) F(x float64) float64 {
	n := len(c.shift)
	if n == 0 {
		return x
	}

	c.shift[c.offset] = x
	// ir[k] pairs with shift[(offset+k) % n]
	y := floats.Dot(c.ir[:n-c.offset], c.shift[c.offset:]) +
		floats.Dot(c.ir[n-c.offset:], c.shift[:c.offset])

	if c.offset--; c.offset < 0 {
		c.offset = n - 1
	}
	return y
}
