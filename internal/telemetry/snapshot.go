// SPDX-License-Identifier: MIT
/*
Package telemetry samples the synthesizer, the device pump and the output
spectrum into Snapshots and publishes them on a fixed interval.
*/
package telemetry

import (
	"sync"
	"time"

	"enginesound/internal/analysis"
	"enginesound/internal/synth"
)

// Band is the RMS level of one analysis band in [0, 1].
type Band struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

// Snapshot is one telemetry sample.
type Snapshot struct {
	Type           string  `json:"type"`
	Timestamp      int64   `json:"timestamp"`    // Nanoseconds since epoch
	Latency        float64 `json:"latency"`      // Seconds of input not yet rendered
	LevelerGain    float64 `json:"leveler_gain"` // Gain applied by the output leveler
	OutputFill     int     `json:"output_fill"`  // Rendered samples waiting for the pump
	LeadFill       float64 `json:"lead_fill"`    // Device lead over target lead
	Underruns      uint64  `json:"underruns"`
	Overruns       uint64  `json:"overruns"`
	DroppedInput   uint64  `json:"dropped_input"`
	OutputShortage uint64  `json:"output_shortage"`
	Resyncs        uint64  `json:"resyncs"`
	Bands          []Band  `json:"bands"`
}

const SnapshotType = "telemetry"

// SynthSource is satisfied by *synth.Synthesizer.
type SynthSource interface {
	Stats() synth.Stats
	Latency() float64
	LevelerGain() float64
}

// PumpSource is satisfied by *audio.Streamer.
type PumpSource interface {
	LeadFill() float64
	Resyncs() uint64
}

// BandSource is satisfied by *analysis.Bands.
type BandSource interface {
	Bands() []analysis.FrequencyBand
	Levels(dst []float64) error
}

// Collector assembles Snapshots. The pump and band sources are optional.
type Collector struct {
	synth SynthSource
	pump  PumpSource
	bands BandSource

	mu     sync.Mutex
	levels []float64
	now    func() time.Time
}

func NewCollector(s SynthSource, pump PumpSource, bands BandSource) *Collector {
	c := &Collector{synth: s, pump: pump, bands: bands, now: time.Now}
	if bands != nil {
		c.levels = make([]float64, len(bands.Bands()))
	}
	return c
}

// Snapshot samples every source. Safe for concurrent use.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Type:      SnapshotType,
		Timestamp: c.now().UnixNano(),
	}

	if c.synth != nil {
		st := c.synth.Stats()
		snap.Latency = c.synth.Latency()
		snap.LevelerGain = c.synth.LevelerGain()
		snap.OutputFill = st.OutputFill
		snap.Underruns = st.Underruns
		snap.Overruns = st.Overruns
		snap.DroppedInput = st.DroppedInput
		snap.OutputShortage = st.OutputShortage
	}

	if c.pump != nil {
		snap.LeadFill = c.pump.LeadFill()
		snap.Resyncs = c.pump.Resyncs()
	}

	if c.bands != nil {
		if err := c.bands.Levels(c.levels); err != nil {
			logger.Warnf("Band levels unavailable: %v", err)
		} else {
			names := c.bands.Bands()
			snap.Bands = make([]Band, len(names))
			for i, b := range names {
				snap.Bands[i] = Band{Name: b.Name, Level: c.levels[i]}
			}
		}
	}

	return snap
}
