// SPDX-License-Identifier: MIT
package dsp

import "math/rand"

// Noise is a seedable uniform white noise source.
type Noise struct {
	rand *rand.Rand
}

// NewNoise creates a noise source. Equal seeds produce equal streams.
func NewNoise(seed int64) *Noise {
	return &Noise{rand: rand.New(rand.NewSource(seed))}
}

// Next returns a uniform sample in [-1, 1].
func (n *Noise) Next() float64 {
	return 2*n.rand.Float64() - 1
}
