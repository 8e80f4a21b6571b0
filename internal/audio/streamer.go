// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"enginesound/internal/config"
)

// Source yields rendered samples. It is satisfied by *synth.Synthesizer.
type Source interface {
	ReadAudioOutput(dst []int16) int
}

// Tap observes every block the streamer hands to the device.
type Tap interface {
	WriteSamples(samples []int16) error
}

// StreamerConfig sets the pump timing. Durations are in seconds of device
// audio.
type StreamerConfig struct {
	LeadSeconds       float64
	ResyncLeadSeconds float64
	ResyncThreshold   float64
	// Interval between pump updates when started with Start.
	Interval time.Duration
}

// NewStreamerConfig derives the pump timing from the audio section.
func NewStreamerConfig(cfg config.AudioConfig, frameRate float64) StreamerConfig {
	interval := time.Second / 60
	if frameRate > 0 {
		interval = time.Duration(float64(time.Second) / frameRate)
	}
	return StreamerConfig{
		LeadSeconds:       cfg.LeadSeconds,
		ResyncLeadSeconds: cfg.ResyncLeadSeconds,
		ResyncThreshold:   cfg.ResyncThreshold,
		Interval:          interval,
	}
}

// Streamer keeps the device's looping buffer filled a fixed lead ahead of
// its play cursor with samples pulled from a Source.
type Streamer struct {
	source Source
	device Device
	buffer *Buffer
	taps   []Tap

	lead            int
	resyncLead      int
	resyncThreshold int
	interval        time.Duration

	scratch []int16
	written atomic.Uint64
	resyncs atomic.Uint64
	// leadBits holds the last measured lead as a fraction of the target.
	leadBits atomic.Uint64

	mu       sync.Mutex
	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewStreamer(source Source, device Device, cfg StreamerConfig, taps ...Tap) (*Streamer, error) {
	if source == nil || device == nil {
		return nil, errors.New("streamer needs a source and a device")
	}

	b := NewBuffer(device.SampleRate(), device.Size())
	s := &Streamer{
		source:          source,
		device:          device,
		buffer:          b,
		taps:            taps,
		lead:            b.Seconds(cfg.LeadSeconds),
		resyncLead:      b.Seconds(cfg.ResyncLeadSeconds),
		resyncThreshold: b.Seconds(cfg.ResyncThreshold),
		interval:        cfg.Interval,
	}
	if s.lead <= 0 || s.lead >= b.Size() {
		return nil, errors.New("streamer lead must be positive and shorter than the device buffer")
	}
	if s.interval <= 0 {
		s.interval = time.Second / 60
	}
	s.scratch = make([]int16, b.Size())
	return s, nil
}

// Update runs one pump step and returns the number of samples written.
func (s *Streamer) Update() int {
	b := s.buffer

	safeWrite := s.device.SafeWritePosition()
	target := b.BufferIndex(safeWrite, s.lead)
	maxWrite := b.OffsetDelta(b.WritePointer(), target)

	currentLead := b.OffsetDelta(safeWrite, b.WritePointer())
	newLead := b.OffsetDelta(safeWrite, target)

	if currentLead > s.resyncThreshold {
		b.SetWritePointer(b.BufferIndex(safeWrite, s.resyncLead))
		currentLead = b.OffsetDelta(safeWrite, b.WritePointer())
		maxWrite = b.OffsetDelta(b.WritePointer(), target)
		s.resyncs.Add(1)
		logger.Debugf("Resynced write pointer to %d (play cursor %d)", b.WritePointer(), safeWrite)
	}

	if currentLead > newLead {
		maxWrite = 0
	}

	read := 0
	if maxWrite > 0 {
		read = s.source.ReadAudioOutput(s.scratch[:maxWrite])
	}

	if read > 0 {
		writePointer := b.WritePointer()
		for i, v := range s.scratch[:read] {
			b.WriteSample(v, writePointer, i)
		}

		d0, d1 := s.device.LockSegment(writePointer, read)
		b.CopyBuffer(d0, writePointer, len(d0))
		b.CopyBuffer(d1, b.BufferIndex(writePointer, len(d0)), len(d1))
		s.device.UnlockSegment()

		b.CommitBlock(read)
		s.written.Add(uint64(read))

		for _, t := range s.taps {
			if err := t.WriteSamples(s.scratch[:read]); err != nil {
				logger.Warnf("Tap write failed: %v", err)
			}
		}
	}

	fill := float64(b.OffsetDelta(s.device.SafeWritePosition(), b.WritePointer())) / float64(s.lead)
	s.leadBits.Store(math.Float64bits(fill))
	return read
}

// Written returns the total number of samples handed to the device.
func (s *Streamer) Written() uint64 {
	return s.written.Load()
}

// Resyncs returns how many times the write pointer was pulled back.
func (s *Streamer) Resyncs() uint64 {
	return s.resyncs.Load()
}

// LeadFill returns the last measured device lead relative to the target lead.
func (s *Streamer) LeadFill() float64 {
	return math.Float64frombits(s.leadBits.Load())
}

// Start begins pumping on a ticker.
func (s *Streamer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return errors.New("streamer already started")
	}

	s.ticker = time.NewTicker(s.interval)
	s.doneChan = make(chan struct{})
	s.stopOnce = sync.Once{}

	s.wg.Add(1)
	go s.run(s.ticker, s.doneChan)

	logger.Infof("Streamer started (lead %d samples, every %v)", s.lead, s.interval)
	return nil
}

func (s *Streamer) run(ticker *time.Ticker, done <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.Update()
		}
	}
}

// Stop halts the pump and waits for the in-flight update.
func (s *Streamer) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.doneChan)
	})
	s.ticker = nil
	s.mu.Unlock()

	s.wg.Wait()
	logger.Infof("Streamer stopped after %d samples (%d resyncs)", s.Written(), s.Resyncs())
}
