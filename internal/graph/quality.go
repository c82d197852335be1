// SPDX-License-Identifier: MIT
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownQuality is returned by ParseQuality for unrecognized names.
var ErrUnknownQuality = errors.New("unknown quality")

// Quality selects the analyzer FFT size and the number of bins handed to the
// visualization.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality converts a case-insensitive name to a Quality.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case QualityLow, QualityMedium, QualityHigh:
		return q, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownQuality, s)
	}
}

// FFTSize returns the analyzer FFT size for the quality.
func (q Quality) FFTSize() int {
	switch q {
	case QualityLow:
		return 1024
	case QualityHigh:
		return 4096
	default:
		return 2048
	}
}

// BinCount returns how many of the analyzer's fftSize/2 bins are used.
// Always a prefix, never a resample of the full spectrum.
func (q Quality) BinCount() int {
	switch q {
	case QualityLow:
		return 64
	case QualityHigh:
		return 256
	default:
		return 128
	}
}
