//go:build !headless

package audio

import (
	"enginesound/internal/config"

	"github.com/gordonklaus/portaudio"
)

type portAudioDevice struct {
	*LoopDevice
	stream *portaudio.Stream
}

func openPortAudio(cfg config.AudioConfig, loop *LoopDevice) (Device, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	out, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		Terminate()
		return nil, err
	}

	latency := out.DefaultHighOutputLatency
	if cfg.LowLatency {
		latency = out.DefaultLowOutputLatency
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   out,
			Latency:  latency,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, loop.Render)
	if err != nil {
		Terminate()
		return nil, err
	}

	logger.Infof("Opened %s at %.0f Hz (latency %.2fms)", out.Name, cfg.SampleRate, latency.Seconds()*1000)
	return &portAudioDevice{LoopDevice: loop, stream: stream}, nil
}

func (d *portAudioDevice) Start() error {
	return d.stream.Start()
}

func (d *portAudioDevice) Close() error {
	if d.stream == nil {
		return nil
	}
	stopErr := d.stream.Stop()
	closeErr := d.stream.Close()
	d.stream = nil
	termErr := Terminate()

	if stopErr != nil {
		return stopErr
	}
	if closeErr != nil {
		return closeErr
	}
	return termErr
}
