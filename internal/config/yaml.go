// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"enginesound/internal/log"
	"enginesound/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug    bool   `yaml:"debug"`             // Enable debug mode (verbose logging).
	LogLevel string `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command  string `yaml:"command,omitempty"` // One-off command to run instead of the engine ("list", "render").
	TUI      bool   `yaml:"tui"`               // Run the terminal mixer.

	Audio            AudioConfig             `yaml:"audio"`
	Synth            SynthConfig             `yaml:"synth"`
	ImpulseResponses []ImpulseResponseConfig `yaml:"impulse_responses"`
	Simulation       SimulationConfig        `yaml:"simulation"`
	Recording        RecordingConfig         `yaml:"recording"`
	Analysis         AnalysisConfig          `yaml:"analysis"`
	Transport        TransportConfig         `yaml:"transport"`
}

// AudioConfig holds settings for the playback device and the pump feeding it.
type AudioConfig struct {
	Backend         string  `yaml:"backend"`           // "portaudio", "oto" or "headless".
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Output sample rate in Hz; also the synthesizer's audio rate.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per device callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from the device.
	DeviceBuffer    int     `yaml:"device_buffer"`     // Samples in the device-side looping buffer.

	LeadSeconds       float64 `yaml:"lead_seconds"`        // Target lead of the write cursor over the play cursor.
	ResyncLeadSeconds float64 `yaml:"resync_lead_seconds"` // Lead restored after falling too far ahead.
	ResyncThreshold   float64 `yaml:"resync_threshold"`    // Lead in seconds beyond which the pump resyncs.
}

// SynthConfig holds the synthesizer construction parameters and the initial
// audio parameters.
type SynthConfig struct {
	Channels        int     `yaml:"channels"`
	InputBufferSize int     `yaml:"input_buffer_size"` // Per-channel resampled input capacity.
	AudioBufferSize int     `yaml:"audio_buffer_size"` // Output ring capacity in samples.
	InputSampleRate float64 `yaml:"input_sample_rate"` // Simulation rate in Hz.
	TargetFill      int     `yaml:"target_fill"`       // Output samples to keep buffered ahead of the device.
	Seed            int64   `yaml:"seed"`              // Noise seed; equal seeds render identical audio.

	Parameters ParametersConfig `yaml:"parameters"`
}

// ParametersConfig mirrors the live-adjustable audio parameters.
type ParametersConfig struct {
	Volume                          float64 `yaml:"volume"`
	Convolution                     float64 `yaml:"convolution"`
	DFFMix                          float64 `yaml:"dff_mix"`
	InputSampleNoise                float64 `yaml:"input_sample_noise"`
	InputSampleNoiseFrequencyCutoff float64 `yaml:"input_sample_noise_frequency_cutoff"`
	AirNoise                        float64 `yaml:"air_noise"`
	AirNoiseFrequencyCutoff         float64 `yaml:"air_noise_frequency_cutoff"`
	LevelerTarget                   float64 `yaml:"leveler_target"`
	LevelerMaxGain                  float64 `yaml:"leveler_max_gain"`
	LevelerMinGain                  float64 `yaml:"leveler_min_gain"`
}

// ImpulseResponseConfig names an impulse response WAV file for one channel,
// or for every channel when Channel is -1.
type ImpulseResponseConfig struct {
	File    string  `yaml:"file"`
	Volume  float64 `yaml:"volume"`
	Channel int     `yaml:"channel"`
}

// SimulationConfig drives the pulse source that stands in for the engine model.
type SimulationConfig struct {
	RPM         float64 `yaml:"rpm"`
	Cylinders   int     `yaml:"cylinders"`
	FiringOrder []int   `yaml:"firing_order"` // Zero-based cylinder order; empty means sequential.
	FrameRate   float64 `yaml:"frame_rate"`   // Simulation frames per second.

	TargetLatency float64 `yaml:"target_latency"` // Synthesizer input backlog to steer toward, in seconds.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Capture rendered output to file.
	OutputDir   string `yaml:"output_dir"`           // Directory to save recorded audio files.
	OutputFile  string `yaml:"output_file"`          // Explicit file name; generated when empty.
	Format      string `yaml:"format"`               // File format ("wav").
	BitDepth    int    `yaml:"bit_depth"`            // Bit depth for recorded audio (16).
	MaxDuration int    `yaml:"max_duration_seconds"` // Maximum recording length in seconds (0 for unlimited).
}

// AnalysisConfig configures the spectrum computed for telemetry.
type AnalysisConfig struct {
	FFTSize   int    `yaml:"fft_size"`   // Power of two.
	FFTWindow string `yaml:"fft_window"` // "Hann", "Hamming", "Blackman", "BlackmanHarris", "FlatTop" or "Rectangular".
}

// TransportConfig holds settings related to sending telemetry over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending telemetry over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.

	WebSocketEnabled bool   `yaml:"websocket_enabled"` // Serve telemetry to browsers.
	WebSocketAddress string `yaml:"websocket_address"` // Listen address (e.g., ":8080").
	WebSocketPath    string `yaml:"websocket_path"`    // Upgrade path (e.g., "/ws").
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Backend:           DefaultBackend,
			OutputDevice:      DefaultOutputDevice,
			SampleRate:        DefaultSampleRate,
			FramesPerBuffer:   DefaultFramesPerBuffer,
			LowLatency:        DefaultLowLatency,
			DeviceBuffer:      DefaultDeviceBuffer,
			LeadSeconds:       DefaultLeadSeconds,
			ResyncLeadSeconds: DefaultResyncLeadSeconds,
			ResyncThreshold:   DefaultResyncThreshold,
		},
		Synth: SynthConfig{
			Channels:        DefaultChannels,
			InputBufferSize: DefaultInputBufferSize,
			AudioBufferSize: DefaultAudioBufferSize,
			InputSampleRate: DefaultInputSampleRate,
			TargetFill:      DefaultTargetFill,
			Seed:            DefaultSeed,
			Parameters: ParametersConfig{
				Volume:                          DefaultVolume,
				Convolution:                     DefaultConvolution,
				DFFMix:                          DefaultDFFMix,
				InputSampleNoise:                DefaultInputSampleNoise,
				InputSampleNoiseFrequencyCutoff: DefaultInputSampleNoiseFrequencyCutoff,
				AirNoise:                        DefaultAirNoise,
				AirNoiseFrequencyCutoff:         DefaultAirNoiseFrequencyCutoff,
				LevelerTarget:                   DefaultLevelerTarget,
				LevelerMaxGain:                  DefaultLevelerMaxGain,
				LevelerMinGain:                  DefaultLevelerMinGain,
			},
		},
		Simulation: SimulationConfig{
			RPM:           DefaultRPM,
			Cylinders:     DefaultCylinders,
			FrameRate:     DefaultFrameRate,
			TargetLatency: DefaultTargetLatency,
		},
		Recording: RecordingConfig{
			Enabled:   DefaultRecordOutput,
			OutputDir: DefaultOutputDir,
			Format:    DefaultFormat,
			BitDepth:  DefaultBitDepth,
		},
		Analysis: AnalysisConfig{
			FFTSize:   DefaultFFTSize,
			FFTWindow: DefaultFFTWindow,
		},
		Transport: TransportConfig{
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
			WebSocketAddress: ":8080",
			WebSocketPath:    "/ws",
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches "config.yaml" in the working directory and falls back
// to built-in defaults when none is found. Environment overrides are applied
// last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, v ...any) {
		errs = append(errs, fmt.Errorf(format, v...))
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		fail("log_level %q is not a known level", c.LogLevel)
	}

	// Audio
	switch c.Audio.Backend {
	case BackendPortAudio, BackendOto, BackendHeadless:
	default:
		fail("audio.backend %q must be one of %s, %s, %s",
			c.Audio.Backend, BackendPortAudio, BackendOto, BackendHeadless)
	}
	if c.Audio.OutputDevice < MinDeviceID {
		fail("audio.output_device must be >= %d", MinDeviceID)
	}
	if !(c.Audio.SampleRate >= MinSampleRate && c.Audio.SampleRate <= MaxSampleRate) {
		fail("audio.sample_rate %v outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxBufferFrames {
		fail("audio.frames_per_buffer %d must be a power of two <= %d", c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if c.Audio.DeviceBuffer <= 0 {
		fail("audio.device_buffer must be positive")
	}
	if c.Audio.LeadSeconds <= 0 || c.Audio.ResyncLeadSeconds <= 0 {
		fail("audio lead times must be positive")
	}
	if c.Audio.ResyncThreshold <= c.Audio.LeadSeconds {
		fail("audio.resync_threshold must exceed audio.lead_seconds")
	}

	// Synth
	if c.Synth.Channels < 1 || c.Synth.Channels > MaxChannels {
		fail("synth.channels %d outside [1, %d]", c.Synth.Channels, MaxChannels)
	}
	if c.Synth.InputBufferSize <= 0 || c.Synth.AudioBufferSize <= 0 {
		fail("synth buffer sizes must be positive")
	}
	if !(c.Synth.InputSampleRate > 0) || math.IsInf(c.Synth.InputSampleRate, 1) {
		fail("synth.input_sample_rate must be positive")
	}
	if c.Synth.TargetFill <= 0 {
		fail("synth.target_fill must be positive")
	}
	p := c.Synth.Parameters
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"volume", p.Volume},
		{"convolution", p.Convolution},
		{"dff_mix", p.DFFMix},
		{"input_sample_noise", p.InputSampleNoise},
		{"input_sample_noise_frequency_cutoff", p.InputSampleNoiseFrequencyCutoff},
		{"air_noise", p.AirNoise},
		{"air_noise_frequency_cutoff", p.AirNoiseFrequencyCutoff},
		{"leveler_target", p.LevelerTarget},
		{"leveler_max_gain", p.LevelerMaxGain},
		{"leveler_min_gain", p.LevelerMinGain},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			fail("synth.parameters.%s must be finite", f.name)
		}
	}
	if p.LevelerMinGain <= 0 || p.LevelerMaxGain < p.LevelerMinGain {
		fail("synth.parameters leveler gains must satisfy 0 < min <= max")
	}
	if p.InputSampleNoiseFrequencyCutoff <= 0 || p.AirNoiseFrequencyCutoff <= 0 {
		fail("synth.parameters cutoff frequencies must be positive")
	}

	for i, ir := range c.ImpulseResponses {
		if ir.File == "" {
			fail("impulse_responses[%d].file must be set", i)
		}
		if ir.Channel < -1 || ir.Channel >= c.Synth.Channels {
			fail("impulse_responses[%d].channel %d outside [-1, %d)", i, ir.Channel, c.Synth.Channels)
		}
	}

	// Simulation
	if !(c.Simulation.RPM >= 0 && c.Simulation.RPM <= MaxRPM) {
		fail("simulation.rpm %v outside [0, %d]", c.Simulation.RPM, MaxRPM)
	}
	if c.Simulation.Cylinders < 1 {
		fail("simulation.cylinders must be positive")
	}
	if c.Simulation.FrameRate <= 0 {
		fail("simulation.frame_rate must be positive")
	}
	if c.Simulation.TargetLatency <= 0 {
		fail("simulation.target_latency must be positive")
	}
	for _, cyl := range c.Simulation.FiringOrder {
		if cyl < 0 || cyl >= c.Simulation.Cylinders {
			fail("simulation.firing_order entry %d outside [0, %d)", cyl, c.Simulation.Cylinders)
		}
	}

	// Recording
	if c.Recording.Format != "wav" {
		fail("recording.format %q is not supported", c.Recording.Format)
	}
	if c.Recording.BitDepth != 16 {
		fail("recording.bit_depth must be 16")
	}

	// Analysis
	if !bitint.IsPowerOfTwo(c.Analysis.FFTSize) {
		fail("analysis.fft_size %d must be a power of two", c.Analysis.FFTSize)
	}

	// Transport
	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			fail("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			fail("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.WebSocketEnabled && !strings.HasPrefix(c.Transport.WebSocketPath, "/") {
		fail("transport.websocket_path %q must start with /", c.Transport.WebSocketPath)
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of file values. Values
// that fail to parse are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	boolVar := func(name string, dst *bool) {
		if val, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				log.Warnf("Configuration: ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = b
			log.Debugf("Configuration: %s overrides to %v", name, b)
		}
	}
	floatVar := func(name string, dst *float64) {
		if val, ok := os.LookupEnv(name); ok {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				log.Warnf("Configuration: ignoring %s=%q: %v", name, val, err)
				return
			}
			*dst = f
			log.Debugf("Configuration: %s overrides to %v", name, f)
		}
	}
	stringVar := func(name string, dst *string) {
		if val, ok := os.LookupEnv(name); ok {
			*dst = val
			log.Debugf("Configuration: %s overrides to %q", name, val)
		}
	}

	// ENV_{...} general overrides
	boolVar("ENV_DEBUG", &c.Debug)
	stringVar("ENV_LOG_LEVEL", &c.LogLevel)

	// ENV_AUDIO_{...}
	stringVar("ENV_AUDIO_BACKEND", &c.Audio.Backend)
	floatVar("ENV_AUDIO_SAMPLE_RATE", &c.Audio.SampleRate)

	// ENV_SIM_{...}
	floatVar("ENV_SIM_RPM", &c.Simulation.RPM)

	// ENV_UDP_{...}
	boolVar("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	stringVar("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			log.Debugf("Configuration: ENV_UDP_SEND_INTERVAL overrides to %s", dur)
		} else {
			log.Warnf("Configuration: ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}

	// ENV_WS_{...}
	boolVar("ENV_WS_ENABLED", &c.Transport.WebSocketEnabled)
	stringVar("ENV_WS_ADDRESS", &c.Transport.WebSocketAddress)
}
