package config

// Defaults and limits for the synthesizer host. The synthesizer values mirror
// the tuning the engine sound was voiced with.
const (
	// Audio device
	DefaultBackend           = BackendPortAudio
	DefaultOutputDevice      = MinDeviceID // System default output
	DefaultSampleRate        = 44100       // CD-quality audio
	DefaultFramesPerBuffer   = 512         // Balanced latency/performance
	DefaultLowLatency        = false       // Standard latency mode
	DefaultDeviceBuffer      = 44100       // One second of device-side looping buffer
	DefaultLeadSeconds       = 0.1         // Write position lead over the play cursor
	DefaultResyncLeadSeconds = 0.05        // Lead restored after a resync
	DefaultResyncThreshold   = 0.5         // Lead that triggers a resync

	// Synthesizer
	DefaultChannels        = 1
	DefaultInputBufferSize = 1024
	DefaultAudioBufferSize = 4096
	DefaultInputSampleRate = 10000
	DefaultTargetFill      = 2000
	DefaultSeed            = 1

	// Audio parameters
	DefaultVolume                          = 1.0
	DefaultConvolution                     = 1.0
	DefaultDFFMix                          = 0.01
	DefaultInputSampleNoise                = 0.5
	DefaultInputSampleNoiseFrequencyCutoff = 10000.0
	DefaultAirNoise                        = 1.0
	DefaultAirNoiseFrequencyCutoff         = 2000.0
	DefaultLevelerTarget                   = 30000.0
	DefaultLevelerMaxGain                  = 1.9
	DefaultLevelerMinGain                  = 0.00001

	// Simulation stand-in
	DefaultRPM           = 900.0
	DefaultCylinders     = 4
	DefaultFrameRate     = 60.0
	DefaultTargetLatency = 0.01 // Input backlog the simulation steers toward, in seconds

	// Recording
	DefaultRecordOutput = false
	DefaultFormat       = "wav"
	DefaultOutputDir    = "./recordings"
	DefaultBitDepth     = 16

	// Analysis
	DefaultFFTSize   = 1024
	DefaultFFTWindow = "Hann"

	DefaultVerbosity = false

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MaxChannels     = 64     // Cylinders/exhaust channels per synthesizer
	MaxRPM          = 20000
)

// Output backends.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
	BackendHeadless  = "headless"
)
