// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := ParseArgs(nil)
	require.NoError(t, err)
	require.NotNil(t, opts)

	assert.Equal(t, CommandPlay, opts.Command)
	assert.Empty(t, opts.File)
	assert.Equal(t, "medium", opts.Config.Graph.Quality)
	assert.True(t, opts.Config.Server.Enabled)
}

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		args        []string
		command     string
		file        string
		interactive bool
	}{
		{[]string{"song.mp3"}, CommandPlay, "song.mp3", false},
		{[]string{"play", "song.mp3"}, CommandPlay, "song.mp3", false},
		{[]string{"serve"}, CommandServe, "", false},
		{[]string{"serve", "song.flac"}, CommandServe, "song.flac", false},
		{[]string{"list"}, CommandList, "", false},
		{[]string{"list", "-i"}, CommandList, "", true},
	}
	for _, tt := range tests {
		opts, err := ParseArgs(tt.args)
		require.NoError(t, err, "%v", tt.args)
		assert.Equal(t, tt.command, opts.Command, "%v", tt.args)
		assert.Equal(t, tt.file, opts.File, "%v", tt.args)
		assert.Equal(t, tt.interactive, opts.Interactive, "%v", tt.args)
	}
}

func TestParseArgsFlagOverrides(t *testing.T) {
	opts, err := ParseArgs([]string{
		"serve", "--quality", "high", "--visualization", "circular",
		"--addr", "127.0.0.1:0", "--headless", "--no-server", "--autoplay", "-d", "2", "-v",
	})
	require.NoError(t, err)

	cfg := opts.Config
	assert.Equal(t, "high", cfg.Graph.Quality)
	assert.Equal(t, "circular", cfg.Visual.Type)
	assert.Equal(t, "127.0.0.1:0", cfg.Server.Addr)
	assert.True(t, cfg.Audio.Headless)
	assert.False(t, cfg.Server.Enabled)
	assert.True(t, cfg.Playback.Autoplay)
	assert.Equal(t, 2, cfg.Audio.OutputDevice)
	assert.True(t, opts.Verbose)
}

func TestParseArgsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  quality: low\nvisual:\n  type: wave\n"), 0o644))

	opts, err := ParseArgs([]string{"--config", path, "--visualization", "bars"})
	require.NoError(t, err)
	assert.Equal(t, "low", opts.Config.Graph.Quality)
	assert.Equal(t, "bars", opts.Config.Visual.Type, "flags win over the file")
}

func TestParseArgsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--quality", "ultra"},
		{"--visualization", "spiral"},
		{"a.mp3", "b.mp3"},
		{"list", "extra"},
		{"play"},
		{"--config", filepath.Join(t.TempDir(), "missing.yaml")},
	} {
		_, err := ParseArgs(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestParseArgsVersion(t *testing.T) {
	opts, err := ParseArgs([]string{"--version"})
	require.NoError(t, err)
	assert.Nil(t, opts)
}
