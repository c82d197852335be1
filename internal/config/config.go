// SPDX-License-Identifier: MIT
package config

import "time"

// Boundaries and defaults for the player. Ranges that belong to a single
// component (EQ clamps, rate limits) live with that component.
const (
	DefaultOutputDevice    = MinDeviceID // System default output
	DefaultSampleRate      = 44100
	DefaultFramesPerBuffer = 512
	DefaultLowLatency      = false
	DefaultQuality         = "medium"
	DefaultVisualization   = "bars"
	DefaultFrameRate       = 60
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultVolume          = 1.0
	DefaultWindow          = "Blackman"
	DefaultMinDecibels     = -100.0
	DefaultMaxDecibels     = -30.0
	DefaultServerAddr      = "127.0.0.1:8080"

	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
)

// BandConfig describes one peaking EQ band.
type BandConfig struct {
	FrequencyHz float64 `yaml:"frequency_hz"`
	Q           float64 `yaml:"q"`
}

// DefaultBands are the five peaking bands of the equalizer.
func DefaultBands() []BandConfig {
	return []BandConfig{
		{FrequencyHz: 60, Q: 1},
		{FrequencyHz: 170, Q: 1},
		{FrequencyHz: 350, Q: 1},
		{FrequencyHz: 1000, Q: 1},
		{FrequencyHz: 3500, Q: 1},
	}
}

// Default returns the built-in configuration used when no file is found and
// as the base that a YAML file is unmarshalled over.
func Default() Config {
	return Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			OutputDevice:    DefaultOutputDevice,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			Headless:        false,
		},
		Graph: GraphConfig{
			Quality:     DefaultQuality,
			BassHz:      200,
			TrebleHz:    2000,
			Bands:       DefaultBands(),
			Window:      DefaultWindow,
			MinDecibels: DefaultMinDecibels,
			MaxDecibels: DefaultMaxDecibels,
			Smoothing:   0,
		},
		Playback: PlaybackConfig{
			PollInterval: DefaultPollInterval,
			Autoplay:     false,
			Volume:       DefaultVolume,
		},
		Visual: VisualConfig{
			Type:      DefaultVisualization,
			FrameRate: DefaultFrameRate,
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    DefaultServerAddr,
		},
		Transport: TransportConfig{
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
		},
	}
}
