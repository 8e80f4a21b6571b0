package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enginesound/internal/audio"
	"enginesound/internal/log"
	"enginesound/internal/sim"
	"enginesound/internal/tui"
	"enginesound/pkg/build"
)

// Run executes the command opts selects.
func Run(opts *Options) error {
	cfg := opts.Config
	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}

	switch cfg.Command {
	case CommandList:
		return runList(opts.Interactive)
	case CommandRender:
		return runRender(opts)
	default:
		return runEngine(opts)
	}
}

func runList(interactive bool) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !interactive {
		return audio.ListDevices()
	}

	id, ok, err := tui.PickDevice()
	if err != nil {
		return err
	}
	if ok {
		fmt.Println(id)
	}
	return nil
}

// runRender renders offline into a WAV file. No device is opened, so the
// render runs as fast as the synthesizer allows.
func runRender(opts *Options) error {
	cfg := opts.Config

	s, source, err := newSynth(cfg)
	if err != nil {
		return err
	}
	defer s.Destroy()

	runner, err := sim.NewRunner(source, s, cfg.Simulation.FrameRate, cfg.Simulation.TargetLatency)
	if err != nil {
		return err
	}

	path := audio.RecordingPath(cfg.Recording, time.Now())
	recorder, err := audio.NewRecorder(path, int(cfg.Audio.SampleRate), 0)
	if err != nil {
		return err
	}

	start := time.Now()
	s.StartAudioRenderingThread()
	renderErr := runner.RenderOffline(opts.RenderSeconds, recorder.WriteSamples)
	if err := recorder.Close(); err != nil && renderErr == nil {
		renderErr = err
	}
	if renderErr != nil {
		return fmt.Errorf("render failed: %w", renderErr)
	}

	log.Infof("Rendered %.1fs (%d samples) to %s in %s",
		opts.RenderSeconds, recorder.Samples(), path, time.Since(start).Round(time.Millisecond))
	return nil
}

// runEngine plays until interrupted, or until the mixer quits when the TUI
// is enabled.
func runEngine(opts *Options) error {
	cfg := opts.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := NewEngine(cfg)
	if err != nil {
		return err
	}

	if err := engine.Start(); err != nil {
		engine.Close()
		return err
	}

	if cfg.TUI {
		if err := tui.RunMixer(engine.Synth(), engine.Source(), engine.Telemetry()); err != nil {
			log.Errorf("Mixer: %v", err)
		}
	} else {
		log.Infof("Running %s, press Ctrl+C to stop. '%s --help' for usage information.",
			cfg.Audio.Backend, build.GetBuildFlags().Name)
		<-ctx.Done()
	}

	return engine.Close()
}
