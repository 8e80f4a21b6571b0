package cmd

import (
	"errors"
	"fmt"
	"time"

	"enginesound/internal/analysis"
	"enginesound/internal/audio"
	"enginesound/internal/config"
	"enginesound/internal/log"
	"enginesound/internal/sim"
	"enginesound/internal/synth"
	"enginesound/internal/telemetry"
	"enginesound/internal/transport"
	"enginesound/internal/transport/udp"
)

// Engine wires the synthesizer between the pulse source and the output
// device, with recording and telemetry hanging off the pump.
type Engine struct {
	cfg *config.Config

	synth    *synth.Synthesizer
	source   *sim.PulseSource
	runner   *sim.Runner
	device   audio.Device
	streamer *audio.Streamer
	recorder *audio.Recorder

	collector *telemetry.Collector
	publisher *telemetry.Publisher
	websocket *transport.WebSocketTransport
}

// processorTap lets an analysis.Processor observe the pump output.
type processorTap struct {
	analysis.Processor
}

func (p processorTap) WriteSamples(samples []int16) error {
	p.Process(samples)
	return nil
}

func synthParameters(cfg *config.Config) synth.Parameters {
	return synth.Parameters{
		InputChannelCount:      cfg.Synth.Channels,
		InputBufferSize:        cfg.Synth.InputBufferSize,
		AudioBufferSize:        cfg.Synth.AudioBufferSize,
		InputSampleRate:        cfg.Synth.InputSampleRate,
		AudioSampleRate:        cfg.Audio.SampleRate,
		TargetFill:             cfg.Synth.TargetFill,
		Seed:                   cfg.Synth.Seed,
		InitialAudioParameters: audioParameters(cfg.Synth.Parameters),
	}
}

func audioParameters(p config.ParametersConfig) synth.AudioParameters {
	return synth.AudioParameters{
		Volume:                          p.Volume,
		Convolution:                     p.Convolution,
		DFFMix:                          p.DFFMix,
		InputSampleNoise:                p.InputSampleNoise,
		InputSampleNoiseFrequencyCutoff: p.InputSampleNoiseFrequencyCutoff,
		AirNoise:                        p.AirNoise,
		AirNoiseFrequencyCutoff:         p.AirNoiseFrequencyCutoff,
		LevelerTarget:                   p.LevelerTarget,
		LevelerMaxGain:                  p.LevelerMaxGain,
		LevelerMinGain:                  p.LevelerMinGain,
	}
}

// loadImpulseResponses installs every configured impulse response. Channel -1
// applies a response to all channels.
func loadImpulseResponses(s *synth.Synthesizer, irs []config.ImpulseResponseConfig, audioRate float64) error {
	for _, ir := range irs {
		samples, rate, err := audio.LoadImpulseResponse(ir.File)
		if err != nil {
			return err
		}
		if float64(rate) != audioRate {
			log.Warnf("Impulse response %s is %d Hz, output runs at %.0f Hz", ir.File, rate, audioRate)
		}

		if ir.Channel >= 0 {
			s.InitializeImpulseResponse(samples, ir.Volume, ir.Channel)
			continue
		}
		for ch := range s.Channels() {
			s.InitializeImpulseResponse(samples, ir.Volume, ch)
		}
	}
	return nil
}

// newSynth initializes a synthesizer and its pulse source from cfg.
func newSynth(cfg *config.Config) (*synth.Synthesizer, *sim.PulseSource, error) {
	s := &synth.Synthesizer{}
	s.Initialize(synthParameters(cfg))
	if err := loadImpulseResponses(s, cfg.ImpulseResponses, cfg.Audio.SampleRate); err != nil {
		s.Destroy()
		return nil, nil, err
	}

	source, err := sim.NewPulseSource(sim.PulseConfig{
		RPM:         cfg.Simulation.RPM,
		Cylinders:   cfg.Simulation.Cylinders,
		FiringOrder: cfg.Simulation.FiringOrder,
		Channels:    cfg.Synth.Channels,
		SampleRate:  cfg.Synth.InputSampleRate,
		Seed:        cfg.Synth.Seed,
	})
	if err != nil {
		s.Destroy()
		return nil, nil, fmt.Errorf("failed to create pulse source: %w", err)
	}
	return s, source, nil
}

// newTelemetry fans snapshots out to every enabled transport. The logging
// transport is always present and only writes at debug level.
func newTelemetry(tc config.TransportConfig, source telemetry.Source) (*telemetry.Publisher, *transport.WebSocketTransport, error) {
	outputs := transport.Multi{transport.NewLoggingTransport()}
	var ws *transport.WebSocketTransport

	if tc.UDPEnabled {
		sender, err := udp.NewUDPSender(tc.UDPTargetAddress)
		if err != nil {
			return nil, nil, err
		}
		st, err := udp.NewSnapshotTransport(sender)
		if err != nil {
			sender.Close()
			return nil, nil, err
		}
		outputs = append(outputs, st)
	}

	if tc.WebSocketEnabled {
		ws = transport.NewWebSocketTransport(tc.WebSocketAddress, tc.WebSocketPath, tc.UDPSendInterval)
		outputs = append(outputs, ws)
	}

	p, err := telemetry.NewPublisher(tc.UDPSendInterval, source, outputs)
	if err != nil {
		outputs.Close()
		return nil, nil, err
	}
	return p, ws, nil
}

// NewEngine builds every component of a live run without starting any of
// them.
func NewEngine(cfg *config.Config) (*Engine, error) {
	e := &Engine{cfg: cfg}

	var err error
	e.synth, e.source, err = newSynth(cfg)
	if err != nil {
		return nil, err
	}

	e.runner, err = sim.NewRunner(e.source, e.synth, cfg.Simulation.FrameRate, cfg.Simulation.TargetLatency)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.device, err = audio.OpenDevice(cfg.Audio)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to open %s output: %w", cfg.Audio.Backend, err)
	}

	var taps []audio.Tap
	if cfg.Recording.Enabled {
		path := audio.RecordingPath(cfg.Recording, time.Now())
		e.recorder, err = audio.NewRecorder(path, int(cfg.Audio.SampleRate), cfg.Recording.MaxDuration)
		if err != nil {
			e.Close()
			return nil, err
		}
		taps = append(taps, e.recorder)
	}

	window, err := analysis.ParseWindowFunc(cfg.Analysis.FFTWindow)
	if err != nil {
		e.Close()
		return nil, err
	}
	spectrum, err := analysis.NewSpectrum(cfg.Analysis.FFTSize, cfg.Audio.SampleRate, window)
	if err != nil {
		e.Close()
		return nil, err
	}
	bands, err := analysis.NewBands(spectrum, analysis.EngineBands())
	if err != nil {
		e.Close()
		return nil, err
	}
	taps = append(taps, processorTap{spectrum})

	e.streamer, err = audio.NewStreamer(e.synth, e.device,
		audio.NewStreamerConfig(cfg.Audio, cfg.Simulation.FrameRate), taps...)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.collector = telemetry.NewCollector(e.synth, e.streamer, bands)
	e.publisher, e.websocket, err = newTelemetry(cfg.Transport, e.collector)
	if err != nil {
		e.Close()
		return nil, err
	}

	return e, nil
}

// Start brings the pipeline up from the renderer outwards.
func (e *Engine) Start() error {
	e.synth.StartAudioRenderingThread()

	if err := e.device.Start(); err != nil {
		return fmt.Errorf("failed to start output device: %w", err)
	}
	if err := e.streamer.Start(); err != nil {
		return err
	}
	if err := e.runner.Start(); err != nil {
		return err
	}
	if e.websocket != nil {
		if err := e.websocket.Start(); err != nil {
			return err
		}
	}
	e.publisher.Start()
	return nil
}

// Close stops and releases everything NewEngine created. It is safe on a
// partially built Engine.
func (e *Engine) Close() error {
	var errs []error

	if e.publisher != nil {
		errs = append(errs, e.publisher.Close())
	}
	if e.runner != nil {
		e.runner.Stop()
	}
	if e.streamer != nil {
		e.streamer.Stop()
	}
	if e.synth != nil {
		e.synth.EndAudioRenderingThread()
	}
	if e.device != nil {
		errs = append(errs, e.device.Close())
	}
	if e.recorder != nil {
		errs = append(errs, e.recorder.Close())
		log.Infof("Recording saved to: %s (%s)", e.recorder.Path(),
			time.Duration(float64(e.recorder.Samples())/e.cfg.Audio.SampleRate*float64(time.Second)))
	}
	if e.synth != nil {
		e.synth.Destroy()
	}

	return errors.Join(errs...)
}

// Synth returns the synthesizer for live parameter changes.
func (e *Engine) Synth() *synth.Synthesizer { return e.synth }

// Source returns the pulse source for RPM changes.
func (e *Engine) Source() *sim.PulseSource { return e.source }

// Telemetry returns the snapshot collector.
func (e *Engine) Telemetry() *telemetry.Collector { return e.collector }
