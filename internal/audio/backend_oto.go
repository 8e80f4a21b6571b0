//go:build !headless

package audio

import (
	"encoding/binary"
	"sync"

	"enginesound/internal/config"

	"github.com/ebitengine/oto/v3"
)

type otoDevice struct {
	*LoopDevice
	ctx    *oto.Context
	player *oto.Player

	mu      sync.Mutex
	scratch []int16
}

func openOto(cfg config.AudioConfig, loop *LoopDevice) (Device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   int(cfg.SampleRate),
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	d := &otoDevice{LoopDevice: loop, ctx: ctx}
	d.player = ctx.NewPlayer(d)
	logger.Infof("Opened oto output at %.0f Hz", cfg.SampleRate)
	return d, nil
}

// Read drains the loop as little-endian int16 PCM.
func (d *otoDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(p) / 2
	if cap(d.scratch) < n {
		d.scratch = make([]int16, n)
	}
	samples := d.scratch[:n]
	d.Render(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint16(p[2*i:], uint16(s))
	}
	return 2 * n, nil
}

func (d *otoDevice) Start() error {
	d.player.Play()
	return nil
}

func (d *otoDevice) Close() error {
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}
