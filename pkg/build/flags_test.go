// SPDX-License-Identifier: MIT
package build

import (
	"errors"
	"os"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = *buildInfo

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildInfo = origInfo

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", "build flag missing: BuildName is required"},
		{"Missing BuildTime", "testapp", "", "abcdef123", "v1.0.0", "build flag missing: BuildTime is required"},
		{"Missing BuildCommit", "testapp", "2025-04-13", "", "v1.0.0", "build flag missing: BuildCommit is required"},
		{"Missing BuildVersion", "testapp", "2025-04-13", "abcdef123", "", "build flag missing: BuildVersion is required"},
		{"Success Case", "testapp", "2025-04-13", "abcdef123", "v1.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildInfo = defaultInfo()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if !errors.Is(err, ErrMissingFlag) {
					t.Fatalf("Initialize() error = %v, want ErrMissingFlag", err)
				}
				if err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
				if buildInfo.Version != "dev" {
					t.Errorf("failed Initialize changed Version to %q", buildInfo.Version)
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			want := Info{
				Name:        tt.buildName,
				Description: Description,
				Time:        tt.buildTime,
				Commit:      tt.buildCommit,
				Version:     tt.buildVer,
			}
			if *buildInfo != want {
				t.Errorf("buildInfo = %+v, want %+v", *buildInfo, want)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	buildInfo = &Info{Name: "testapp", Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"}

	want := "testapp v1.0.0 (commit abcdef123, built 2025-04-13)"
	if got := GetBuildInfo().String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
