package cmd

import (
	"fmt"

	"enginesound/internal/config"
	"enginesound/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected on the command line.
const (
	CommandRun    = ""
	CommandList   = "list"
	CommandRender = "render"
)

// Options is the parsed command line: the loaded configuration plus the
// values that only make sense for one invocation.
type Options struct {
	Config *config.Config

	// list
	Interactive bool

	// render
	RenderSeconds float64
}

// flagValues holds raw flag values until the config file is loaded; only
// flags the user actually set override the file.
type flagValues struct {
	configPath string
	backend    string
	device     int
	rpm        float64
	record     bool
	output     string
	tui        bool
	verbose    bool
}

// ParseArgs parses args (without the program name) into Options.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	opts := &Options{}
	var flags flagValues

	load := func(cmd *cobra.Command, command string) error {
		cfg, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg, &flags)
		cfg.Command = command
		opts.Config = cfg
		return cfg.Validate()
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return load(cmd, CommandRun)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return load(cmd, CommandList)
		},
	}
	listCmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false,
		"Pick a device interactively and print its ID")
	rootCmd.AddCommand(listCmd)

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render audio offline to a WAV file without an output device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.RenderSeconds <= 0 {
				return fmt.Errorf("--seconds must be positive, got %v", opts.RenderSeconds)
			}
			return load(cmd, CommandRender)
		},
	}
	renderCmd.Flags().Float64VarP(&opts.RenderSeconds, "seconds", "n", 10,
		"Length of the rendered file in seconds")
	rootCmd.AddCommand(renderCmd)

	// Configuration
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"Path to a YAML configuration file (default ./config.yaml when present)")

	// Audio Device Configuration
	rootCmd.PersistentFlags().StringVarP(&flags.backend, "backend", "B", config.DefaultBackend,
		"Output backend: portaudio, oto or headless")
	rootCmd.PersistentFlags().IntVarP(&flags.device, "device", "d", config.DefaultOutputDevice,
		"Output device ID. Use 'list' command to see available devices.")

	// Simulation
	rootCmd.PersistentFlags().Float64Var(&flags.rpm, "rpm", config.DefaultRPM,
		"Engine speed of the pulse source")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&flags.record, "record", "r", config.DefaultRecordOutput,
		"Record rendered audio to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&flags.output, "output", "o", "",
		"Output file name. Default is engine_YYYYMMDD_HHMMSS.wav in the recording directory")

	// Interface
	rootCmd.PersistentFlags().BoolVarP(&flags.tui, "tui", "t", false,
		"Run the terminal mixer")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", config.DefaultVerbosity,
		"Show verbose output")

	// Execute the CLI. A nil slice would make cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	// --help and --version run no command.
	if opts.Config == nil {
		return nil, nil
	}
	return opts, nil
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f *flagValues) {
	changed := cmd.Flags().Changed

	if changed("backend") {
		cfg.Audio.Backend = f.backend
	}
	if changed("device") {
		cfg.Audio.OutputDevice = f.device
	}
	if changed("rpm") {
		cfg.Simulation.RPM = f.rpm
	}
	if changed("record") {
		cfg.Recording.Enabled = f.record
	}
	if changed("output") {
		cfg.Recording.OutputFile = f.output
	}
	if changed("tui") {
		cfg.TUI = f.tui
	}
	if changed("verbose") && f.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}
