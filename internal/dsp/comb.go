// SPDX-License-Identifier: MIT
package dsp

// FeedbackComb computes y[n] = x[n] + AM*y[n-M].
type FeedbackComb struct {
	M  int
	AM float64

	y      []float64
	offset int
}

// Initialize sizes the delay line for M samples. AM defaults to 1.
func (c *FeedbackComb) Initialize(m int) {
	c.Destroy()
	c.M = m
	c.AM = 1
	if m > 0 {
		c.y = make([]float64, m)
	}
}

// Destroy releases the delay line.
func (c *FeedbackComb) Destroy() {
	c.y = nil
	c.offset = 0
}

// F filters one sample. With M <= 0 the filter is the identity.
func (c *FeedbackComb) F(x float64) float64 {
	if c.M <= 0 || len(c.y) == 0 {
		return x
	}

	// y[offset] holds y[n-M] until it is replaced by y[n].
	y := x + c.AM*c.y[c.offset]
	c.y[c.offset] = y
	if c.offset++; c.offset >= len(c.y) {
		c.offset = 0
	}
	return y
}
