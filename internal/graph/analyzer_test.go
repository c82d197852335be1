// SPDX-License-Identifier: MIT
package graph

import (
	"testing"

	"spectra/pkg/utils"
)

func TestNewAnalyzerValidation(t *testing.T) {
	opts := DefaultAnalyzerOptions()
	tests := []struct {
		name    string
		size    int
		rate    float64
		opts    AnalyzerOptions
		wantErr bool
	}{
		{"valid", 1024, testRate, opts, false},
		{"not power of two", 1000, testRate, opts, true},
		{"too small", 16, testRate, opts, true},
		{"zero rate", 1024, 0, opts, true},
		{"inverted range", 1024, testRate, AnalyzerOptions{MinDecibels: -30, MaxDecibels: -100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalyzer(tt.size, tt.rate, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAnalyzer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalyzerSilenceIsZero(t *testing.T) {
	a, err := NewAnalyzer(1024, testRate, DefaultAnalyzerOptions())
	if err != nil {
		t.Fatal(err)
	}
	buf := make([][2]float64, 1024)
	a.Stream(buf) // disconnected: silence

	dst := make([]byte, 64)
	for i := range dst {
		dst[i] = 7
	}
	if n := a.ByteFrequencyData(dst); n != 64 {
		t.Fatalf("ByteFrequencyData wrote %d bins, want 64", n)
	}
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("bin %d = %d, want 0", i, v)
		}
	}
}

func TestAnalyzerPeakBin(t *testing.T) {
	const size = 1024
	const bin = 40
	a, err := NewAnalyzer(size, testRate, DefaultAnalyzerOptions())
	if err != nil {
		t.Fatal(err)
	}
	a.Connect(sine(a.FrequencyForBin(bin), 0.01))

	buf := make([][2]float64, 256)
	for range size / len(buf) {
		n, ok := a.Stream(buf)
		if n != len(buf) || !ok {
			t.Fatalf("Stream() = %d, %v", n, ok)
		}
	}

	dst := make([]byte, 128)
	a.ByteFrequencyData(dst)
	if got := utils.FindPeakBin(dst, 0, len(dst)-1); got != bin {
		t.Errorf("peak bin = %d, want %d (spectrum %v)", got, bin, dst[bin-3:bin+4])
	}
	if dst[bin] == 0 || dst[bin] == 255 {
		t.Errorf("peak byte %d should sit inside the dB range", dst[bin])
	}
}

func TestAnalyzerPassesAudioThrough(t *testing.T) {
	a, _ := NewAnalyzer(1024, testRate, DefaultAnalyzerOptions())
	a.Connect(constant(0.25))
	buf := make([][2]float64, 64)
	a.Stream(buf)
	for i, s := range buf {
		if s != [2]float64{0.25, 0.25} {
			t.Fatalf("sample %d = %v, want 0.25", i, s)
		}
	}
}

func TestAnalyzerCapsBinsAtHalfSize(t *testing.T) {
	a, _ := NewAnalyzer(64, testRate, DefaultAnalyzerOptions())
	dst := make([]byte, 100)
	if n := a.ByteFrequencyData(dst); n != 32 {
		t.Errorf("wrote %d bins, want fftSize/2 = 32", n)
	}
}

func TestByteFrequencyDataNoAllocs(t *testing.T) {
	a, _ := NewAnalyzer(2048, testRate, DefaultAnalyzerOptions())
	a.Connect(sine(1000, 0.5))
	buf := make([][2]float64, 512)
	a.Stream(buf)
	dst := make([]byte, 128)

	allocs := testing.AllocsPerRun(50, func() {
		a.ByteFrequencyData(dst)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in ByteFrequencyData, got %.1f", allocs)
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowFunc
		wantErr bool
	}{
		{"blackman", Blackman, false},
		{"", Blackman, false},
		{"Hanning", Hann, false},
		{"HAMMING", Hamming, false},
		{"none", Rectangular, false},
		{"kaiser", Blackman, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.in)
			if got != tt.want || (err != nil) != tt.wantErr {
				t.Errorf("ParseWindowFunc(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func BenchmarkByteFrequencyData(b *testing.B) {
	a, _ := NewAnalyzer(4096, testRate, DefaultAnalyzerOptions())
	a.Connect(sine(440, 0.5))
	buf := make([][2]float64, 4096)
	a.Stream(buf)
	dst := make([]byte, 256)

	b.ReportAllocs()
	for b.Loop() {
		a.ByteFrequencyData(dst)
	}
}
