// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"spectra/internal/config"
	"spectra/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected on the command line.
const (
	CommandPlay  = "play"
	CommandServe = "serve"
	CommandList  = "list"
)

// Options is the parsed command line: the command to run, its argument and
// the configuration with flag overrides applied.
type Options struct {
	Command     string
	File        string
	Interactive bool
	LogFile     string
	Verbose     bool
	Config      *config.Config
}

type flagValues struct {
	configPath    string
	quality       string
	visualization string
	addr          string
	device        int
	headless      bool
	noServer      bool
	autoplay      bool
}

// ParseArgs parses args (without the program name).
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildInfo()
	options := &Options{}
	var flags flagValues

	// load runs once the selected command is known, so --config is honoured.
	load := func(cmd *cobra.Command, command string, positional []string) error {
		cfg, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, cfg, flags); err != nil {
			return err
		}
		options.Command = command
		options.Config = cfg
		if len(positional) > 0 {
			options.File = positional[0]
		}
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [FILE]",
		Short:         build.Description,
		Version:       buildInfo.String(),
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandPlay, args)
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Play command, also the default when no command is given
	playCmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play a file in the terminal UI with the control API running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandPlay, args)
		},
	}
	rootCmd.AddCommand(playCmd)

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve [FILE]",
		Short: "Run the control API and render stream without the terminal UI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandServe, args)
		},
	}
	rootCmd.AddCommand(serveCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandList, nil)
		},
	}
	listCmd.Flags().BoolVarP(&options.Interactive, "interactive", "i", false,
		"Pick a device in the terminal UI")
	rootCmd.AddCommand(listCmd)

	// Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "",
		"Path to a YAML config file. Defaults to ./config.yaml or ./spectra.yaml")

	// Audio Output
	pf.IntVarP(&flags.device, "device", "d", config.DefaultOutputDevice,
		"Output device ID. Use 'list' command to see available devices.")
	pf.BoolVar(&flags.headless, "headless", false,
		"Pump the graph in real time without opening an output device")

	// Graph and Visualization
	pf.StringVarP(&flags.quality, "quality", "q", config.DefaultQuality,
		"Analyzer quality: low, medium or high")
	pf.StringVar(&flags.visualization, "visualization", config.DefaultVisualization,
		"Visualization type: bars, wave or circular")
	pf.BoolVar(&flags.autoplay, "autoplay", false,
		"Start playing as soon as a file is loaded")

	// Control API
	pf.StringVarP(&flags.addr, "addr", "a", config.DefaultServerAddr,
		"Listen address for the control API and render stream")
	pf.BoolVar(&flags.noServer, "no-server", false,
		"Do not start the control API")

	// Debug Configuration
	pf.BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")
	pf.StringVar(&options.LogFile, "log-file", "",
		"Write logs to this file. The terminal UI logs to a temp file by default")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	// --help and --version return without running a command.
	if options.Config == nil {
		return nil, nil
	}
	return options, nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f flagValues) error {
	changed := cmd.Flags().Changed

	if changed("device") {
		cfg.Audio.OutputDevice = f.device
	}
	if changed("headless") {
		cfg.Audio.Headless = f.headless
	}
	if changed("quality") {
		cfg.Graph.Quality = f.quality
	}
	if changed("visualization") {
		cfg.Visual.Type = f.visualization
	}
	if changed("autoplay") {
		cfg.Playback.Autoplay = f.autoplay
	}
	if changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if changed("no-server") {
		cfg.Server.Enabled = !f.noServer
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
