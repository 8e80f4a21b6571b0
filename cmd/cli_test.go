package cmd

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"enginesound/internal/audio"
	"enginesound/internal/config"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, o *Options)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, o *Options) {
				if o.Config.Command != CommandRun {
					t.Errorf("Command = %q, want run", o.Config.Command)
				}
				if o.Config.Audio.Backend != config.DefaultBackend || o.Config.Simulation.RPM != config.DefaultRPM {
					t.Errorf("defaults not applied: %+v", o.Config.Audio)
				}
			},
		},
		{
			name: "overrides",
			args: []string{"--backend", "headless", "-d", "3", "--rpm", "2500", "-r", "-o", "take.wav", "--tui", "-v"},
			check: func(t *testing.T, o *Options) {
				c := o.Config
				if c.Audio.Backend != config.BackendHeadless || c.Audio.OutputDevice != 3 {
					t.Errorf("audio = %+v", c.Audio)
				}
				if c.Simulation.RPM != 2500 {
					t.Errorf("RPM = %v", c.Simulation.RPM)
				}
				if !c.Recording.Enabled || c.Recording.OutputFile != "take.wav" {
					t.Errorf("recording = %+v", c.Recording)
				}
				if !c.TUI || c.LogLevel != "debug" {
					t.Errorf("TUI = %v, LogLevel = %q", c.TUI, c.LogLevel)
				}
			},
		},
		{
			name: "list interactive",
			args: []string{"list", "-i"},
			check: func(t *testing.T, o *Options) {
				if o.Config.Command != CommandList || !o.Interactive {
					t.Errorf("Command = %q, Interactive = %v", o.Config.Command, o.Interactive)
				}
			},
		},
		{
			name: "render with inherited flags",
			args: []string{"render", "-n", "2.5", "--rpm", "4000"},
			check: func(t *testing.T, o *Options) {
				if o.Config.Command != CommandRender || o.RenderSeconds != 2.5 {
					t.Errorf("Command = %q, RenderSeconds = %v", o.Config.Command, o.RenderSeconds)
				}
				if o.Config.Simulation.RPM != 4000 {
					t.Errorf("RPM = %v", o.Config.Simulation.RPM)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs() error = %v", err)
			}
			if o == nil || o.Config == nil {
				t.Fatal("ParseArgs() returned no options")
			}
			tt.check(t, o)
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("audio: [not, a, map]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, args := range [][]string{
		{"--backend", "alsa"},
		{"--rpm", "-1"},
		{"render", "-n", "0"},
		{"--config", bad},
		{"--config", filepath.Join(dir, "missing.yaml")},
		{"extra"},
	} {
		if _, err := ParseArgs(args); err == nil {
			t.Errorf("ParseArgs(%q) succeeded", args)
		}
	}
}

func TestParseArgsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	data := "simulation:\n  rpm: 1500\n  cylinders: 6\naudio:\n  backend: oto\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	o, err := ParseArgs([]string{"--config", path, "--rpm", "1800"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if o.Config.Simulation.Cylinders != 6 || o.Config.Audio.Backend != config.BackendOto {
		t.Errorf("file values not loaded: %+v", o.Config.Simulation)
	}
	if o.Config.Simulation.RPM != 1800 {
		t.Errorf("flag did not override file: RPM = %v", o.Config.Simulation.RPM)
	}
}

func TestParseArgsHelp(t *testing.T) {
	o, err := ParseArgs([]string{"--help"})
	if err != nil || o != nil {
		t.Errorf("ParseArgs(--help) = %v, %v, want nil, nil", o, err)
	}
}

func headlessConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.Backend = config.BackendHeadless
	cfg.Recording.OutputDir = t.TempDir()
	return cfg
}

func TestRunRender(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.Command = CommandRender
	cfg.Recording.OutputFile = "render.wav"

	if err := Run(&Options{Config: cfg, RenderSeconds: 0.2}); err != nil {
		t.Fatalf("Run(render) error = %v", err)
	}

	samples, rate, err := audio.LoadImpulseResponse(filepath.Join(cfg.Recording.OutputDir, "render.wav"))
	if err != nil {
		t.Fatalf("reading render: %v", err)
	}
	if rate != int(cfg.Audio.SampleRate) {
		t.Errorf("rate = %d, want %v", rate, cfg.Audio.SampleRate)
	}
	if want := int(math.Round(0.2 * cfg.Audio.SampleRate)); len(samples) != want {
		t.Errorf("rendered %d samples, want %d", len(samples), want)
	}
}

func TestEngineHeadless(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.Recording.Enabled = true
	cfg.Recording.OutputFile = "live.wav"

	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.Start(); err != nil {
		e.Close()
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for e.streamer.Written() == 0 || e.runner.Steps() == 0 {
		if time.Now().After(deadline) {
			e.Close()
			t.Fatal("engine produced no audio")
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap := e.Telemetry().Snapshot()
	if len(snap.Bands) != 4 {
		t.Errorf("snapshot has %d bands, want 4", len(snap.Bands))
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if e.recorder.Samples() == 0 {
		t.Error("recorder captured nothing")
	}
	if _, err := os.Stat(filepath.Join(cfg.Recording.OutputDir, "live.wav")); err != nil {
		t.Errorf("recording missing: %v", err)
	}
}

func TestEngineBadImpulseResponse(t *testing.T) {
	cfg := headlessConfig(t)
	cfg.ImpulseResponses = []config.ImpulseResponseConfig{
		{File: filepath.Join(t.TempDir(), "missing.wav"), Volume: 1, Channel: -1},
	}
	if _, err := NewEngine(cfg); err == nil {
		t.Error("NewEngine() accepted a missing impulse response")
	}
}
