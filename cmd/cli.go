// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"lcdspectrum/internal/config"
	"lcdspectrum/pkg/build"

	"github.com/spf13/cobra"
)

// Commands handled outside the display loop.
const (
	CommandList   = "list"
	CommandSelect = "select"
)

type flagValues struct {
	configPath string
	source     string
	sink       string
	engine     string
	file       string
	record     string
	device     int
	frames     int
	verbose    bool
}

// ParseArgs parses the command line, loads the configuration file it names
// and applies the flags the user set on top of it.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		flags   flagValues
		command string
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			command = CommandList
		},
	}
	selectCmd := &cobra.Command{
		Use:   CommandSelect,
		Short: "Choose an input device interactively, then visualize it",
		Run: func(cmd *cobra.Command, args []string) {
			command = CommandSelect
		},
	}
	rootCmd.AddCommand(listCmd, selectCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "",
		"Path to a YAML configuration file (default ./config.yaml if present)")
	pf.StringVarP(&flags.source, "source", "s", config.DefaultSource,
		"Sample source: tone, wav or mic")
	pf.StringVarP(&flags.sink, "sink", "o", config.DefaultDisplay,
		"Display sink: terminal, bmp, websocket or discard")
	pf.StringVarP(&flags.engine, "engine", "e", config.DefaultEngine,
		"Transform engine: fourier, dsp or identity")
	pf.StringVarP(&flags.file, "file", "f", "",
		"WAV file for the wav source")
	pf.StringVarP(&flags.record, "record", "r", "",
		"Record acquired samples to this WAV file")
	pf.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Input device ID for the mic source. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.frames, "frames", "n", 0,
		"Stop after this many frames (0 runs until interrupted)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool { return pf.Changed(name) }
	if changed("source") {
		cfg.Source.Type = flags.source
	}
	if changed("sink") {
		cfg.Display.Type = flags.sink
	}
	if changed("engine") {
		cfg.Engine = flags.engine
	}
	if changed("file") {
		cfg.Source.File = flags.file
		if !changed("source") {
			cfg.Source.Type = config.SourceWAV
		}
	}
	if changed("record") {
		cfg.Recording.Enabled = true
		cfg.Recording.Path = flags.record
	}
	if changed("device") {
		cfg.Source.Device = flags.device
	}
	if changed("frames") {
		cfg.Frames = flags.frames
	}
	if flags.verbose {
		cfg.Debug = true
	}
	cfg.Command = command

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}
