// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
	"time"
)

type rampSource struct {
	next  int16
	limit int
}

func (r *rampSource) ReadAudioOutput(dst []int16) int {
	n := len(dst)
	if r.limit >= 0 {
		n = min(n, r.limit)
	}
	for i := range dst[:n] {
		r.next++
		dst[i] = r.next
	}
	return n
}

type collectTap struct{ samples []int16 }

func (c *collectTap) WriteSamples(s []int16) error {
	c.samples = append(c.samples, s...)
	return nil
}

func testStreamerConfig() StreamerConfig {
	return StreamerConfig{LeadSeconds: 0.1, ResyncLeadSeconds: 0.05, ResyncThreshold: 0.5, Interval: time.Millisecond}
}

func TestStreamerKeepsLead(t *testing.T) {
	dev := NewLoopDevice(1000, 1000)
	src := &rampSource{limit: -1}
	tap := &collectTap{}

	s, err := NewStreamer(src, dev, testStreamerConfig(), tap)
	if err != nil {
		t.Fatalf("NewStreamer() error: %v", err)
	}

	if n := s.Update(); n != 100 {
		t.Fatalf("first Update() = %d, want 100", n)
	}
	if n := s.Update(); n != 0 {
		t.Errorf("Update() at full lead = %d, want 0", n)
	}
	if math.Abs(s.LeadFill()-1) > 1e-9 {
		t.Errorf("LeadFill() = %v, want 1", s.LeadFill())
	}

	out := make([]int16, 50)
	dev.Render(out)
	for i, v := range out {
		if v != int16(i+1) {
			t.Fatalf("device sample %d = %d, want %d", i, v, i+1)
		}
	}

	if n := s.Update(); n != 50 {
		t.Errorf("Update() after 50 consumed = %d, want 50", n)
	}
	if s.Written() != 150 || len(tap.samples) != 150 {
		t.Errorf("Written() = %d, tap saw %d; want 150", s.Written(), len(tap.samples))
	}
	if s.Resyncs() != 0 {
		t.Errorf("Resyncs() = %d, want 0", s.Resyncs())
	}
}

func TestStreamerResyncsAfterUnderrun(t *testing.T) {
	dev := NewLoopDevice(1000, 1000)
	src := &rampSource{limit: -1}

	s, err := NewStreamer(src, dev, testStreamerConfig())
	if err != nil {
		t.Fatalf("NewStreamer() error: %v", err)
	}
	s.Update()

	// The device runs 200 samples past everything written.
	dev.Render(make([]int16, 300))

	if n := s.Update(); n != 50 {
		t.Fatalf("Update() after resync = %d, want 50", n)
	}
	if s.Resyncs() != 1 {
		t.Errorf("Resyncs() = %d, want 1", s.Resyncs())
	}
	if got := s.buffer.WritePointer(); got != 400 {
		t.Errorf("WritePointer() = %d, want 400", got)
	}

	d0, _ := dev.LockSegment(350, 1)
	first := d0[0]
	dev.UnlockSegment()
	if first != 101 {
		t.Errorf("first resynced sample = %d, want 101", first)
	}
}

func TestStreamerShortSource(t *testing.T) {
	dev := NewLoopDevice(1000, 1000)
	s, err := NewStreamer(&rampSource{limit: 0}, dev, testStreamerConfig())
	if err != nil {
		t.Fatalf("NewStreamer() error: %v", err)
	}
	if n := s.Update(); n != 0 {
		t.Errorf("Update() = %d, want 0", n)
	}
	if s.buffer.WritePointer() != 0 {
		t.Error("write pointer moved without data")
	}
}

func TestNewStreamerRejects(t *testing.T) {
	dev := NewLoopDevice(1000, 50)
	tests := []struct {
		name string
		src  Source
		dev  Device
		cfg  StreamerConfig
	}{
		{"nil source", nil, dev, testStreamerConfig()},
		{"nil device", &rampSource{}, nil, testStreamerConfig()},
		{"lead beyond device", &rampSource{}, dev, testStreamerConfig()},
		{"zero lead", &rampSource{}, NewLoopDevice(1000, 1000), StreamerConfig{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStreamer(tt.src, tt.dev, tt.cfg); err == nil {
				t.Error("NewStreamer() accepted invalid input")
			}
		})
	}
}

func TestStreamerStartStop(t *testing.T) {
	dev := NewClockDevice(8000, 8000, 64)
	s, err := NewStreamer(&rampSource{limit: -1}, dev, testStreamerConfig())
	if err != nil {
		t.Fatalf("NewStreamer() error: %v", err)
	}

	if err := dev.Start(); err != nil {
		t.Fatalf("device Start() error: %v", err)
	}
	defer dev.Close()

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start() should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for dev.Consumed() < 1600 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	if s.Written() == 0 || dev.Consumed() == 0 {
		t.Errorf("Written() = %d, Consumed() = %d; want both > 0", s.Written(), dev.Consumed())
	}
}
