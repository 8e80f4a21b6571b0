// SPDX-License-Identifier: MIT
/*
Package sim stands in for an engine simulation. PulseSource produces one
exhaust pressure value per channel and step; Runner feeds those steps to a
synthesizer frame by frame.
*/
package sim

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"enginesound/internal/dsp"
)

const (
	// Fraction of the four-stroke cycle the exhaust valve stays open.
	exhaustFraction = 1.0 / 3
	pulseAlpha      = 4.0
	pulseGain       = 18000.0
	// Cycle-to-cycle combustion variation.
	combustionNoise = 0.04
	// Reflection coefficient of the open pipe end.
	pipeReflection = -0.35
	speedOfSound   = 343.0
	basePipeLength = 1.8
	minPipeDelay   = 2
)

// PulseConfig describes the engine the source imitates.
type PulseConfig struct {
	RPM         float64
	Cylinders   int
	FiringOrder []int // Zero-based; empty fires cylinders in sequence.
	Channels    int   // Exhaust pipes; cylinder i feeds pipe i % Channels.
	SampleRate  float64
	Seed        int64
}

// PulseSource generates exhaust pressure pulses. Next must be called from a
// single goroutine; SetRPM may be called from any goroutine.
type PulseSource struct {
	rpm        atomic.Uint64 // float64 bits
	sampleRate float64
	cylinders  int
	channels   int

	crank   float64   // Position in the four-stroke cycle, [0, 1)
	fireAt  []float64 // Per cylinder firing phase
	pipe    []int     // Per cylinder channel
	charge  []float64 // Per cylinder strength of the current combustion
	lastPos []float64 // Per cylinder phase since firing at the previous step

	pulse dsp.Gaussian
	pipes []dsp.FeedbackComb
	noise *dsp.Noise
}

func NewPulseSource(cfg PulseConfig) (*PulseSource, error) {
	if cfg.Cylinders < 1 {
		return nil, errors.New("pulse source needs at least one cylinder")
	}
	if cfg.Channels < 1 {
		return nil, errors.New("pulse source needs at least one channel")
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %v", cfg.SampleRate)
	}

	order := cfg.FiringOrder
	if len(order) == 0 {
		order = make([]int, cfg.Cylinders)
		for i := range order {
			order[i] = i
		}
	}
	if len(order) != cfg.Cylinders {
		return nil, fmt.Errorf("firing order has %d entries for %d cylinders", len(order), cfg.Cylinders)
	}

	p := &PulseSource{
		sampleRate: cfg.SampleRate,
		cylinders:  cfg.Cylinders,
		channels:   cfg.Channels,
		fireAt:     make([]float64, cfg.Cylinders),
		pipe:       make([]int, cfg.Cylinders),
		charge:     make([]float64, cfg.Cylinders),
		lastPos:    make([]float64, cfg.Cylinders),
		pipes:      make([]dsp.FeedbackComb, cfg.Channels),
		noise:      dsp.NewNoise(cfg.Seed),
	}

	seen := make([]bool, cfg.Cylinders)
	for slot, cyl := range order {
		if cyl < 0 || cyl >= cfg.Cylinders || seen[cyl] {
			return nil, fmt.Errorf("invalid firing order %v", order)
		}
		seen[cyl] = true
		p.fireAt[cyl] = float64(slot) / float64(cfg.Cylinders)
	}
	for i := range p.pipe {
		p.pipe[i] = i % cfg.Channels
		p.charge[i] = 1
		p.lastPos[i] = 1
	}

	// Each pipe is 7% longer than the one before it.
	for i := range p.pipes {
		length := basePipeLength * (1 + 0.07*float64(i))
		p.pipes[i].Initialize(max(minPipeDelay, int(math.Round(2*length/speedOfSound*cfg.SampleRate))))
		p.pipes[i].AM = pipeReflection
	}

	p.pulse.Initialize(pulseAlpha, 1, 1024)
	p.SetRPM(cfg.RPM)
	return p, nil
}

func (p *PulseSource) SetRPM(rpm float64) {
	p.rpm.Store(math.Float64bits(math.Max(0, rpm)))
}

func (p *PulseSource) RPM() float64 {
	return math.Float64frombits(p.rpm.Load())
}

func (p *PulseSource) Channels() int {
	return p.channels
}

func (p *PulseSource) SampleRate() float64 {
	return p.sampleRate
}

// Next advances one step and writes one pressure sample per channel into
// dst, which must hold Channels() values.
func (p *PulseSource) Next(dst []float64) {
	// Four-stroke: one full cycle every two crank revolutions.
	p.crank += p.RPM() / 120 / p.sampleRate
	p.crank -= math.Floor(p.crank)

	clear(dst[:p.channels])
	for cyl := range p.fireAt {
		pos := p.crank - p.fireAt[cyl]
		pos -= math.Floor(pos)

		if pos < p.lastPos[cyl] {
			p.charge[cyl] = 1 + combustionNoise*p.noise.Next()
		}
		p.lastPos[cyl] = pos

		if pos < exhaustFraction {
			s := 2*pos/exhaustFraction - 1
			dst[p.pipe[cyl]] += pulseGain * p.charge[cyl] * p.pulse.Evaluate(s)
		}
	}

	for i := range p.pipes {
		dst[i] = p.pipes[i].F(dst[i])
	}
}
