// SPDX-License-Identifier: MIT
//
// Package build carries the metadata stamped into the binary with -ldflags:
//
//	go build -ldflags "-X spectra/pkg/build.buildName=spectra \
//	  -X spectra/pkg/build.buildTime=$(date -u +%FT%TZ) \
//	  -X spectra/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X spectra/pkg/build.buildVersion=v0.1.0"
//
// Development builds keep the defaults and report "dev".
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown by the CLI.
const Description = "Audio player with a live equalizer and spectrum visualizer"

// ErrMissingFlag is returned by Initialize when a linker flag is empty.
var ErrMissingFlag = errors.New("build flag missing")

// Info is the build metadata.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders the line printed by --version.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        "spectra",
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies the linker flags into the build info. A missing flag
// leaves the defaults in place and returns an error wrapping ErrMissingFlag.
func Initialize() error {
	for _, f := range []struct{ name, value string }{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrMissingFlag, f.name)
		}
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion
	return nil
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
