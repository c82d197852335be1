// SPDX-License-Identifier: MIT
package graph

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"spectra/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// AnalyzerOptions configure the byte spectrum.
type AnalyzerOptions struct {
	Window      WindowFunc
	MinDecibels float64 // maps to byte 0
	MaxDecibels float64 // maps to byte 255
	Smoothing   float64 // time constant in [0,1); 0 is a raw snapshot
}

// DefaultAnalyzerOptions returns Blackman, -100..-30 dB and no smoothing.
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		Window:      Blackman,
		MinDecibels: -100,
		MaxDecibels: -30,
		Smoothing:   0,
	}
}

// fftWorkspace holds the buffers used by ByteFrequencyData.
type fftWorkspace struct {
	mu       sync.Mutex
	input    []float64
	output   []complex128
	smoothed []float64
	window   []float64
}

// Analyzer is the last node of the chain. It passes audio through unchanged
// and records a mono mix of the most recent fftSize samples; the spectrum is
// computed on demand from that ring.
type Analyzer struct {
	link
	fftSize    int
	sampleRate float64
	opts       AnalyzerOptions
	fft        *fourier.FFT

	ringMu sync.Mutex
	ring   []float64
	pos    int

	ws fftWorkspace
}

// NewAnalyzer creates an analyzer. fftSize must be a power of two.
func NewAnalyzer(fftSize int, sampleRate float64, opts AnalyzerOptions) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) || fftSize < 32 {
		return nil, fmt.Errorf("fft size must be a power of 2 >= 32, got %d (try %d)", fftSize, bitint.NextPowerOfTwo(max(fftSize, 32)))
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if opts.MinDecibels >= opts.MaxDecibels {
		return nil, fmt.Errorf("min decibels %.1f must be below max decibels %.1f", opts.MinDecibels, opts.MaxDecibels)
	}
	opts.Smoothing = min(max(opts.Smoothing, 0), 0.999)

	return &Analyzer{
		fftSize:    fftSize,
		sampleRate: sampleRate,
		opts:       opts,
		fft:        fourier.NewFFT(fftSize),
		ring:       make([]float64, fftSize),
		ws: fftWorkspace{
			input:    make([]float64, fftSize),
			output:   make([]complex128, fftSize/2+1),
			smoothed: make([]float64, fftSize/2),
			window:   windowCoefficients(fftSize, opts.Window),
		},
	}, nil
}

// FFTSize returns the number of points of the transform.
func (a *Analyzer) FFTSize() int {
	return a.fftSize
}

// FrequencyBinCount is fftSize/2.
func (a *Analyzer) FrequencyBinCount() int {
	return a.fftSize / 2
}

// FrequencyForBin returns the centre frequency of bin i.
func (a *Analyzer) FrequencyForBin(i int) float64 {
	if i < 0 || i >= a.FrequencyBinCount() {
		return 0
	}
	return float64(i) * a.sampleRate / float64(a.fftSize)
}

// Stream passes audio through while capturing a mono mix into the ring buffer.
func (a *Analyzer) Stream(samples [][2]float64) (int, bool) {
	a.pull(samples)
	a.ringMu.Lock()
	for i := range samples {
		a.ring[a.pos] = (samples[i][0] + samples[i][1]) / 2
		a.pos++
		if a.pos == a.fftSize {
			a.pos = 0
		}
	}
	a.ringMu.Unlock()
	return len(samples), true
}

// ByteFrequencyData writes the first min(len(dst), fftSize/2) bins of the
// current spectrum into dst, scaled so MinDecibels maps to 0 and MaxDecibels
// to 255. It returns the number of bins written.
func (a *Analyzer) ByteFrequencyData(dst []byte) int {
	ws := &a.ws
	ws.mu.Lock()
	defer ws.mu.Unlock()

	a.ringMu.Lock()
	n := copy(ws.input, a.ring[a.pos:])
	copy(ws.input[n:], a.ring[:a.pos])
	a.ringMu.Unlock()

	for i := range ws.input {
		ws.input[i] *= ws.window[i]
	}
	a.fft.Coefficients(ws.output, ws.input)

	tau := a.opts.Smoothing
	scale := 1 / float64(a.fftSize)
	for k := range ws.smoothed {
		mag := cmplx.Abs(ws.output[k]) * scale
		ws.smoothed[k] = tau*ws.smoothed[k] + (1-tau)*mag
	}

	count := min(len(dst), len(ws.smoothed))
	rangeScale := 255 / (a.opts.MaxDecibels - a.opts.MinDecibels)
	for k := range count {
		db := 20 * math.Log10(ws.smoothed[k])
		v := rangeScale * (db - a.opts.MinDecibels)
		switch {
		case math.IsNaN(v) || v <= 0:
			dst[k] = 0
		case v >= 255:
			dst[k] = 255
		default:
			dst[k] = byte(v)
		}
	}
	return count
}
