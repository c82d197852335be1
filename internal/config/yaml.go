// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode.
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Output sink settings.
	Graph     GraphConfig     `yaml:"graph"`     // Signal graph and analyzer settings.
	Playback  PlaybackConfig  `yaml:"playback"`  // Transport settings.
	Visual    VisualConfig    `yaml:"visual"`    // Render loop settings.
	Server    ServerConfig    `yaml:"server"`    // HTTP control API and render-state websocket.
	Transport TransportConfig `yaml:"transport"` // Optional UDP spectrum packets.
}

// AudioConfig holds settings related to the audio output sink.
type AudioConfig struct {
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Graph and sink sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames pulled from the graph per callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	Headless        bool    `yaml:"headless"`          // Pump the graph in real time without a device.
}

// GraphConfig describes the fixed filter chain and the analyzer.
type GraphConfig struct {
	Quality     string       `yaml:"quality"`      // low, medium or high.
	BassHz      float64      `yaml:"bass_hz"`      // Lowshelf corner frequency.
	TrebleHz    float64      `yaml:"treble_hz"`    // Highshelf corner frequency.
	Bands       []BandConfig `yaml:"bands"`        // Peaking EQ bands in chain order.
	Window      string       `yaml:"window"`       // Analyzer window function name.
	MinDecibels float64      `yaml:"min_decibels"` // Byte spectrum floor.
	MaxDecibels float64      `yaml:"max_decibels"` // Byte spectrum ceiling.
	Smoothing   float64      `yaml:"smoothing"`    // Analyzer smoothing time constant [0,1).
}

// PlaybackConfig holds transport settings.
type PlaybackConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"` // Position poll period.
	Autoplay     bool          `yaml:"autoplay"`      // Start playing as soon as a file is loaded.
	Volume       float64       `yaml:"volume"`        // Initial volume 0..1.
}

// VisualConfig holds render loop settings.
type VisualConfig struct {
	Type      string `yaml:"type"`       // bars, wave or circular.
	FrameRate int    `yaml:"frame_rate"` // Frames per second.
}

// ServerConfig holds the HTTP control API settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TransportConfig holds settings related to sending spectrum data over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending spectrum packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between packets.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"spectra.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer %d outside (0, %d]", c.Audio.FramesPerBuffer, MaxBufferFrames))
	}
	if c.Audio.OutputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio.output_device %d is invalid", c.Audio.OutputDevice))
	}

	switch strings.ToLower(c.Graph.Quality) {
	case "low", "medium", "high":
	default:
		errs = append(errs, fmt.Errorf("graph.quality %q must be low, medium or high", c.Graph.Quality))
	}
	nyquist := c.Audio.SampleRate / 2
	if c.Graph.BassHz <= 0 || c.Graph.BassHz >= nyquist {
		errs = append(errs, fmt.Errorf("graph.bass_hz %.1f outside (0, %.1f)", c.Graph.BassHz, nyquist))
	}
	if c.Graph.TrebleHz <= 0 || c.Graph.TrebleHz >= nyquist {
		errs = append(errs, fmt.Errorf("graph.treble_hz %.1f outside (0, %.1f)", c.Graph.TrebleHz, nyquist))
	}
	for i, b := range c.Graph.Bands {
		if b.FrequencyHz <= 0 || b.FrequencyHz >= nyquist {
			errs = append(errs, fmt.Errorf("graph.bands[%d].frequency_hz %.1f outside (0, %.1f)", i, b.FrequencyHz, nyquist))
		}
		if b.Q <= 0 {
			errs = append(errs, fmt.Errorf("graph.bands[%d].q must be positive", i))
		}
	}
	if c.Graph.MinDecibels >= c.Graph.MaxDecibels {
		errs = append(errs, fmt.Errorf("graph.min_decibels %.1f must be below max_decibels %.1f", c.Graph.MinDecibels, c.Graph.MaxDecibels))
	}
	if c.Graph.Smoothing < 0 || c.Graph.Smoothing >= 1 {
		errs = append(errs, fmt.Errorf("graph.smoothing %.2f outside [0, 1)", c.Graph.Smoothing))
	}

	if c.Playback.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("playback.poll_interval must be positive"))
	}
	if c.Playback.Volume < 0 || c.Playback.Volume > 1 {
		errs = append(errs, fmt.Errorf("playback.volume %.2f outside [0, 1]", c.Playback.Volume))
	}

	switch strings.ToLower(c.Visual.Type) {
	case "bars", "wave", "circular":
	default:
		errs = append(errs, fmt.Errorf("visual.type %q must be bars, wave or circular", c.Visual.Type))
	}
	if c.Visual.FrameRate <= 0 || c.Visual.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("visual.frame_rate %d outside (0, 240]", c.Visual.FrameRate))
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		errs = append(errs, fmt.Errorf("server.addr must be set when the server is enabled"))
	}

	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			errs = append(errs, fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets ENV_* variables override file values. Unparseable
// values are ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}

	// ENV_AUDIO_{...}
	if val, ok := os.LookupEnv("ENV_AUDIO_HEADLESS"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Audio.Headless = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_AUDIO_OUTPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.OutputDevice = iVal
		}
	}

	// ENV_QUALITY, ENV_VISUALIZATION
	if val, ok := os.LookupEnv("ENV_QUALITY"); ok {
		cfg.Graph.Quality = val
	}
	if val, ok := os.LookupEnv("ENV_VISUALIZATION"); ok {
		cfg.Visual.Type = val
	}

	// ENV_SERVER_ADDR
	if val, ok := os.LookupEnv("ENV_SERVER_ADDR"); ok {
		cfg.Server.Addr = val
	}

	// ENV_UDP_{...}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
		}
	}
}
