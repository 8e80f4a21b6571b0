// SPDX-License-Identifier: MIT
package dsp

import "math"

// cacheGuard is the number of table entries kept beyond the interpolated
// range so the ceil lookup never leaves the table.
const cacheGuard = 32

const minRadius = 1e-9

// Gaussian is a truncated Gaussian kernel that reaches exactly zero at
// Radius. Evaluate reads from a precomputed table when one was built.
type Gaussian struct {
	alpha  float64
	radius float64
	expS   float64
	invR   float64

	cache      []float64
	cacheSteps int
}

// Initialize precomputes cacheSteps table entries. Alpha is clamped to be
// non-negative, radius to at least minRadius and cacheSteps to at least
// cacheGuard+1.
func (g *Gaussian) Initialize(alpha, radius float64, cacheSteps int) {
	g.Destroy()

	if !(alpha > 0) {
		alpha = 0
	}
	if !(radius > minRadius) {
		radius = minRadius
	}
	cacheSteps = max(cacheSteps, cacheGuard+1)

	g.alpha = alpha
	g.radius = radius
	g.expS = math.Exp(-alpha * radius * radius)
	g.invR = 1 / radius

	g.cacheSteps = cacheSteps
	g.cache = make([]float64, cacheSteps)
	steps := cacheSteps - cacheGuard
	for i := 0; i <= steps; i++ {
		g.cache[i] = g.Calculate(float64(i) / float64(steps) * radius)
	}
}

// Destroy drops the lookup table.
func (g *Gaussian) Destroy() {
	g.cache = nil
	g.cacheSteps = 0
}

// Radius returns the distance at which the kernel reaches zero.
func (g *Gaussian) Radius() float64 {
	return g.radius
}

// Calculate evaluates max(0, exp(-alpha*s*s) - exp(-alpha*radius*radius)).
func (g *Gaussian) Calculate(s float64) float64 {
	return math.Max(0, math.Exp(-g.alpha*s*s)-g.expS)
}

// Evaluate interpolates the kernel at s from the table. An uninitialized
// kernel calculates directly.
func (g *Gaussian) Evaluate(s float64) float64 {
	if g.cache == nil {
		return g.Calculate(s)
	}

	steps := g.cacheSteps - cacheGuard
	x := float64(steps) * math.Abs(s) * g.invR
	if !(x < float64(steps)) {
		x = float64(steps) // beyond the radius, Inf or NaN
	}

	i0 := int(math.Floor(x))
	i1 := int(math.Ceil(x))
	d := x - float64(i0)

	return (1-d)*g.cache[i0] + d*g.cache[i1]
}
