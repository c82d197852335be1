// SPDX-License-Identifier: MIT

// Package utils generates test signals and inspects spectra.
package utils

import (
	"cmp"
	"math"

	"github.com/gopxl/beep/v2"
)

// GenerateSineWave returns size stereo frames of a sine at frequency Hz.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) [][2]float64 {
	frames := make([][2]float64, size)
	for i := range frames {
		v := amplitude * math.Sin(2*math.Pi*frequency*float64(i)/sampleRate)
		frames[i] = [2]float64{v, v}
	}
	return frames
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics,
// peaking below 1.
func GenerateComplexWave(size int, sampleRate float64) [][2]float64 {
	frames := make([][2]float64, size)
	for i := range frames {
		tm := float64(i) / sampleRate
		v := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		frames[i] = [2]float64{v * 0.9, v * 0.9}
	}
	return frames
}

// Frames streams a fixed buffer once and then reports exhaustion.
func Frames(frames [][2]float64) beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		n := copy(samples, frames)
		frames = frames[n:]
		return n, n > 0
	})
}

// FindPeakBin returns the index of the largest value in
// values[startBin:endBin+1]. The range is clamped to the slice; an empty
// slice yields 0.
func FindPeakBin[T cmp.Ordered](values []T, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}
	startBin = max(startBin, 0)
	endBin = min(endBin, len(values)-1)
	if startBin > endBin {
		return startBin
	}

	peak := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > values[peak] {
			peak = bin
		}
	}
	return peak
}
