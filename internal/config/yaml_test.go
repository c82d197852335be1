// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Graph.Quality != DefaultQuality {
		t.Errorf("Graph.Quality = %q, want %q", cfg.Graph.Quality, DefaultQuality)
	}
	if len(cfg.Graph.Bands) != 5 {
		t.Errorf("len(Graph.Bands) = %d, want 5", len(cfg.Graph.Bands))
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
graph:
  quality: high
playback:
  poll_interval: 50ms
  volume: 0.5
visual:
  type: circular
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Graph.Quality != "high" {
		t.Errorf("Graph.Quality = %q, want high", cfg.Graph.Quality)
	}
	if cfg.Playback.PollInterval != 50*time.Millisecond {
		t.Errorf("Playback.PollInterval = %v, want 50ms", cfg.Playback.PollInterval)
	}
	if cfg.Playback.Volume != 0.5 {
		t.Errorf("Playback.Volume = %v, want 0.5", cfg.Playback.Volume)
	}
	if cfg.Visual.Type != "circular" {
		t.Errorf("Visual.Type = %q, want circular", cfg.Visual.Type)
	}
	// Untouched sections keep their defaults.
	if cfg.Graph.BassHz != 200 || cfg.Graph.TrebleHz != 2000 {
		t.Errorf("shelf frequencies = %v/%v, want 200/2000", cfg.Graph.BassHz, cfg.Graph.TrebleHz)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_QUALITY", "low")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_UDP_SEND_INTERVAL", "10ms")
	t.Setenv("ENV_AUDIO_HEADLESS", "true")

	path := writeTempConfig(t, "graph:\n  quality: high\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Graph.Quality != "low" {
		t.Errorf("Graph.Quality = %q, want env override low", cfg.Graph.Quality)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPSendInterval != 10*time.Millisecond {
		t.Errorf("UDP overrides not applied: %+v", cfg.Transport)
	}
	if !cfg.Audio.Headless {
		t.Error("Audio.Headless override not applied")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"bad quality", func(c *Config) { c.Graph.Quality = "ultra" }, "graph.quality"},
		{"bad visual", func(c *Config) { c.Visual.Type = "plasma" }, "visual.type"},
		{"band above nyquist", func(c *Config) { c.Graph.Bands[0].FrequencyHz = 30000 }, "graph.bands[0]"},
		{"zero q", func(c *Config) { c.Graph.Bands[2].Q = 0 }, "graph.bands[2].q"},
		{"decibel range", func(c *Config) { c.Graph.MinDecibels = -20 }, "min_decibels"},
		{"volume", func(c *Config) { c.Playback.Volume = 2 }, "playback.volume"},
		{"poll", func(c *Config) { c.Playback.PollInterval = 0 }, "poll_interval"},
		{"udp address", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, "udp_target_address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.substr)
			}
		})
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
