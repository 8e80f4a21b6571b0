// SPDX-License-Identifier: MIT
package synth

import (
	"sync/atomic"
	"time"
)

// Stats are cumulative renderer counters since Initialize.
type Stats struct {
	Cycles         uint64 // Render cycles completed
	Underruns      uint64 // Cycles that left channel 0 without backlog
	Overruns       uint64 // Cycles that left channel 0 more than 3/4 full
	DroppedInput   uint64 // Resampled samples refused by full input rings
	OutputShortage uint64 // ReadAudioOutput calls that had to zero-pad
	InputBacklog   int    // Channel 0 samples waiting to be rendered
	OutputFill     int    // Rendered samples waiting to be read
}

type counters struct {
	cycles    atomic.Uint64
	underruns atomic.Uint64
	overruns  atomic.Uint64
}

func (c *counters) reset() {
	c.cycles.Store(0)
	c.underruns.Store(0)
	c.overruns.Store(0)
}

// Stats returns a snapshot of the renderer counters.
func (s *Synthesizer) Stats() Stats {
	st := Stats{
		Cycles:    s.stats.cycles.Load(),
		Underruns: s.stats.underruns.Load(),
		Overruns:  s.stats.overruns.Load(),
	}
	for i := range s.channels {
		st.DroppedInput += s.channels[i].data.Dropped()
	}
	if len(s.channels) > 0 {
		st.InputBacklog = s.channels[0].data.Size()
	}

	s.mu.Lock()
	st.OutputFill = s.output.Size()
	st.OutputShortage = s.readShortage
	s.mu.Unlock()

	return st
}

type heartbeat struct {
	start     time.Time
	cycles    int
	underruns int
	overruns  int
	elapsed   time.Duration
}

func (h *heartbeat) reset(now time.Time) {
	*h = heartbeat{start: now}
}

func (s *Synthesizer) logHeartbeat(h *heartbeat) {
	var avg time.Duration
	if h.cycles > 0 {
		avg = h.elapsed / time.Duration(h.cycles)
	}
	backlog := 0
	if len(s.channels) > 0 {
		backlog = s.channels[0].data.Size()
	}
	logger.Debugf("heartbeat cycles=%d channels=%d input_buffer=%d audio_buffer=%d latency=%.6f avg_cycle=%s underrun=%d overrun=%d",
		h.cycles, len(s.channels), backlog, s.OutputSize(), s.Latency(), avg, h.underruns, h.overruns)
}
