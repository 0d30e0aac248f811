// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "lcdspectrum/internal/log"
	"lcdspectrum/internal/spectrum"

	"gopkg.in/yaml.v3"
)

var logger = applog.Scope("config")

// Config is the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // One-off command instead of the display loop (e.g. "list").
	Engine    string          `yaml:"engine"`            // Transform engine ("fourier", "dsp", "identity").
	Frames    int             `yaml:"frames"`            // Frames to render before exiting, 0 runs forever.
	Source    SourceConfig    `yaml:"source"`            // Sample source settings.
	Display   DisplayConfig   `yaml:"display"`           // Display sink settings.
	Recording RecordingConfig `yaml:"recording"`         // Capture recording settings.
	Transport TransportConfig `yaml:"transport"`         // Spectrum telemetry settings.
	Metrics   MetricsConfig   `yaml:"metrics"`           // Prometheus endpoint settings.
}

// SourceConfig selects and parameterizes the sample source.
type SourceConfig struct {
	Type          string        `yaml:"type"`           // "tone", "wav" or "mic".
	Device        int           `yaml:"device"`         // PortAudio device index (-1 for default).
	File          string        `yaml:"file"`           // WAV file for the "wav" source.
	Loop          bool          `yaml:"loop"`           // Rewind the WAV file at end of stream.
	ToneHz        float64       `yaml:"tone_hz"`        // Tone frequency in Hz.
	ToneAmplitude float64       `yaml:"tone_amplitude"` // Tone peak amplitude in sample units.
	Gate          float64       `yaml:"gate"`           // Noise gate threshold 0.0-1.0, 0 keeps the gate open.
	FramePeriod   time.Duration `yaml:"frame_period"`   // Pacing for tone and wav sources, 0 disables.
}

// DisplayConfig selects and parameterizes the display sink.
type DisplayConfig struct {
	Type    string `yaml:"type"`    // "terminal", "bmp", "websocket" or "discard".
	Address string `yaml:"address"` // Listen address for the websocket sink.
	Path    string `yaml:"path"`    // Output file for the bmp sink.
	Every   int    `yaml:"every"`   // The bmp sink writes every Nth frame.
	Colors  string `yaml:"colors"`  // Terminal colour profile: "auto", "truecolor", "ansi256", "ansi" or "ascii".
}

// RecordingConfig tees acquired frames into a WAV file.
type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TransportConfig holds settings for sending bar heights over the network.
type TransportConfig struct {
	UDPEnabled       bool   `yaml:"udp_enabled"`
	UDPTargetAddress string `yaml:"udp_target_address"`
}

// MetricsConfig holds settings for the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Engine:   DefaultEngine,
		Source: SourceConfig{
			Type:          DefaultSource,
			Device:        DefaultDeviceID,
			Loop:          true,
			ToneHz:        DefaultToneHz,
			ToneAmplitude: DefaultToneAmplitude,
			FramePeriod:   DefaultFramePeriod,
		},
		Display: DisplayConfig{
			Type:    DefaultDisplay,
			Address: DefaultWSAddress,
			Path:    DefaultBMPPath,
			Every:   DefaultBMPEvery,
			Colors:  DefaultColors,
		},
		Recording: RecordingConfig{
			Path: DefaultRecordingPath,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTarget,
		},
		Metrics: MetricsConfig{
			Address: DefaultMetricsAddr,
		},
	}
}

// LoadConfig loads configuration from the YAML file at path. If path is
// empty, it looks for "config.yaml" in the working directory and falls back to
// the built-in defaults. Environment overrides are applied last, then the
// result is validated.
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

// Validate checks collaborator names and the settings each one needs.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not a known level", c.LogLevel)
	}
	if !spectrum.KnownEngine(c.Engine) {
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	if c.Frames < 0 {
		return fmt.Errorf("frames must not be negative, got %d", c.Frames)
	}

	switch c.Source.Type {
	case SourceTone:
		if c.Source.ToneHz <= 0 {
			return fmt.Errorf("source.tone_hz must be positive, got %g", c.Source.ToneHz)
		}
	case SourceWAV:
		if c.Source.File == "" {
			return fmt.Errorf("source.file must be set for the wav source")
		}
	case SourceMic:
		if c.Source.Device < MinDeviceID {
			return fmt.Errorf("source.device %d is invalid", c.Source.Device)
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}
	if c.Source.Gate < 0 || c.Source.Gate > 1 {
		return fmt.Errorf("source.gate must be within 0.0-1.0, got %g", c.Source.Gate)
	}
	if c.Source.FramePeriod < 0 {
		return fmt.Errorf("source.frame_period must not be negative")
	}

	switch c.Display.Type {
	case DisplayTerminal:
		switch c.Display.Colors {
		case ColorsAuto, ColorsTrueColor, ColorsANSI256, ColorsANSI, ColorsNone:
		default:
			return fmt.Errorf("unknown display.colors %q", c.Display.Colors)
		}
	case DisplayDiscard:
	case DisplayBMP:
		if c.Display.Path == "" {
			return fmt.Errorf("display.path must be set for the bmp display")
		}
		if c.Display.Every <= 0 {
			return fmt.Errorf("display.every must be positive, got %d", c.Display.Every)
		}
	case DisplayWebSocket:
		if c.Display.Address == "" {
			return fmt.Errorf("display.address must be set for the websocket display")
		}
	default:
		return fmt.Errorf("unknown display type %q", c.Display.Type)
	}

	if c.Recording.Enabled && c.Recording.Path == "" {
		return fmt.Errorf("recording.path must be set when recording is enabled")
	}
	if c.Transport.UDPEnabled && !strings.Contains(c.Transport.UDPTargetAddress, ":") {
		return fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address must be set when metrics are enabled")
	}
	return nil
}

// applyEnvOverrides lets ENV_* variables override file settings, for
// container deployments without a config file.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			logger.Infof("overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		logger.Infof("overriding log_level from env: %s", val)
	}
	// ENV_SOURCE
	if val, ok := os.LookupEnv("ENV_SOURCE"); ok {
		c.Source.Type = val
		logger.Infof("overriding source.type from env: %s", val)
	}
	// ENV_DISPLAY
	if val, ok := os.LookupEnv("ENV_DISPLAY"); ok {
		c.Display.Type = val
		logger.Infof("overriding display.type from env: %s", val)
	}

	// ENV_UDP_{...}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			logger.Infof("overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		logger.Infof("overriding transport.udp_target_address from env: %s", val)
	}
}
