// SPDX-License-Identifier: MIT
package telemetry

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"enginesound/internal/analysis"
	"enginesound/internal/synth"
	"enginesound/pkg/utils"
)

type fakeSynth struct{}

func (fakeSynth) Stats() synth.Stats {
	return synth.Stats{Underruns: 2, Overruns: 1, DroppedInput: 7, OutputShortage: 3, OutputFill: 1500}
}
func (fakeSynth) Latency() float64     { return 0.02 }
func (fakeSynth) LevelerGain() float64 { return 1.25 }

type fakePump struct{}

func (fakePump) LeadFill() float64 { return 0.9 }
func (fakePump) Resyncs() uint64   { return 4 }

type fakeBands struct{ err error }

func (fakeBands) Bands() []analysis.FrequencyBand {
	return []analysis.FrequencyBand{{Name: "low"}, {Name: "high"}}
}

func (f fakeBands) Levels(dst []float64) error {
	if f.err != nil {
		return f.err
	}
	dst[0], dst[1] = 0.5, 0.125
	return nil
}

func TestCollectorSnapshot(t *testing.T) {
	c := NewCollector(fakeSynth{}, fakePump{}, fakeBands{})
	c.now = func() time.Time { return time.Unix(0, 42) }

	got := c.Snapshot()
	want := Snapshot{
		Type:           SnapshotType,
		Timestamp:      42,
		Latency:        0.02,
		LevelerGain:    1.25,
		OutputFill:     1500,
		LeadFill:       0.9,
		Underruns:      2,
		Overruns:       1,
		DroppedInput:   7,
		OutputShortage: 3,
		Resyncs:        4,
	}
	bands := got.Bands
	got.Bands = nil
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
	if len(bands) != 2 || bands[0] != (Band{"low", 0.5}) || bands[1] != (Band{"high", 0.125}) {
		t.Errorf("Bands = %+v", bands)
	}
}

func TestCollectorOptionalSources(t *testing.T) {
	snap := NewCollector(fakeSynth{}, nil, fakeBands{err: errors.New("not ready")}).Snapshot()
	if snap.Bands != nil || snap.LeadFill != 0 || snap.Resyncs != 0 {
		t.Errorf("missing sources leaked values: %+v", snap)
	}

	empty := NewCollector(nil, nil, nil).Snapshot()
	if empty.Type != SnapshotType || empty.LevelerGain != 0 {
		t.Errorf("empty collector snapshot = %+v", empty)
	}
}

func TestCollectorWithRealSynth(t *testing.T) {
	var s synth.Synthesizer
	s.Initialize(synth.DefaultParameters())
	defer s.Destroy()

	snap := NewCollector(&s, nil, nil).Snapshot()
	if snap.OutputFill != synth.DefaultParameters().AudioBufferSize {
		t.Errorf("OutputFill = %d, want a full silent ring", snap.OutputFill)
	}
	if snap.Latency != 0 {
		t.Errorf("Latency = %v, want 0", snap.Latency)
	}
}

func TestPublisherSends(t *testing.T) {
	mt := &utils.MockTransport{}
	p, err := NewPublisher(time.Millisecond, NewCollector(fakeSynth{}, nil, nil), mt)
	if err != nil {
		t.Fatal(err)
	}

	p.Start()
	p.Start()

	deadline := time.Now().Add(2 * time.Second)
	for mt.Count() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	p.Stop()

	if mt.Count() < 3 {
		t.Fatalf("transport saw %d snapshots, want >= 3", mt.Count())
	}
	if !mt.Closed {
		t.Error("Close() did not close the transport")
	}
	if snap, ok := mt.LastData.(Snapshot); !ok || snap.LevelerGain != 1.25 {
		t.Errorf("LastData = %#v, want a Snapshot", mt.LastData)
	}
}

func TestPublisherFailuresAndValidation(t *testing.T) {
	mt := &utils.MockTransport{SendErr: errors.New("down")}
	p, err := NewPublisher(0, NewCollector(nil, nil, nil), mt)
	if err != nil {
		t.Fatal(err)
	}
	if p.interval <= 0 {
		t.Errorf("interval = %v, want a default", p.interval)
	}
	p.publish()
	p.publish()
	if p.failed != 2 || p.sent != 0 {
		t.Errorf("failed=%d sent=%d, want 2, 0", p.failed, p.sent)
	}

	if _, err := NewPublisher(time.Second, nil, mt); err == nil {
		t.Error("NewPublisher() accepted a nil source")
	}
	if _, err := NewPublisher(time.Second, p.source, nil); err == nil {
		t.Error("NewPublisher() accepted a nil transport")
	}
}
