// SPDX-License-Identifier: MIT
package analysis

import (
	"sync"
	"testing"

	"spectra/internal/graph"
	"spectra/pkg/utils"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixed is a provider returning a constant ramp.
type fixed struct {
	bins  int
	calls int
}

func (f *fixed) ByteFrequencyData(dst []byte) int {
	f.calls++
	n := min(len(dst), f.bins)
	for i := range n {
		dst[i] = byte(i + 1)
	}
	return n
}

func (f *fixed) FrequencyForBin(i int) float64 {
	return float64(i) * 100
}

func TestSamplerWithoutProviderIsSilent(t *testing.T) {
	s := NewSampler(func() Provider { return nil }, 64)
	data := s.Sample()
	require.Len(t, data, 64)
	assert.Equal(t, make([]byte, 64), data)
	assert.Zero(t, s.Frequency(3))

	assert.Len(t, NewSampler(nil, 8).Sample(), 8)
}

func TestSamplerReusesBuffer(t *testing.T) {
	p := &fixed{bins: 1024}
	s := NewSampler(func() Provider { return p }, 128)

	first := s.Sample()
	second := s.Sample()
	assert.Equal(t, 2, p.calls)
	assert.Same(t, &first[0], &second[0])
	assert.Equal(t, byte(128), second[127])

	allocs := testing.AllocsPerRun(100, func() { s.Sample() })
	assert.Zero(t, allocs)
}

func TestSampleIntoIsConsistentUnderConcurrency(t *testing.T) {
	s := NewSampler(func() Provider { return &fixed{bins: 64} }, 64)
	want := make([]byte, 64)
	for i := range want {
		want[i] = byte(i + 1)
	}

	var wg sync.WaitGroup
	errs := make(chan []byte, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dst := make([]byte, 64)
			for range 500 {
				clear(dst)
				if n := s.SampleInto(dst); n != 64 || string(dst) != string(want) {
					errs <- append([]byte(nil), dst...)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		assert.Equal(t, want, got)
	}
}

func TestSamplerZeroFillsShortProvider(t *testing.T) {
	p := &fixed{bins: 4}
	s := NewSampler(func() Provider { return p }, 8)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, s.Sample())
}

func TestSamplerSetBinCount(t *testing.T) {
	p := &fixed{bins: 1024}
	s := NewSampler(func() Provider { return p }, 64)
	before := s.Sample()

	s.SetBinCount(64)
	assert.Same(t, &before[0], &s.Sample()[0], "same count keeps the buffer")

	s.SetBinCount(256)
	assert.Equal(t, 256, s.BinCount())
	assert.Len(t, s.Sample(), 256)

	dst := make([]byte, 10)
	assert.Equal(t, 10, s.SampleInto(dst))
	assert.Equal(t, byte(10), dst[9])
}

func TestSamplerOverGraphAnalyzer(t *testing.T) {
	const rate = 44100
	g, err := graph.Build(beep.SampleRate(rate), graph.QualityMedium, graph.DefaultChain(), graph.DefaultAnalyzerOptions())
	require.NoError(t, err)
	g.Input().Attach(beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		return 0, false
	}))

	s := NewSampler(func() Provider { return g.Analyzer() }, graph.QualityMedium.BinCount())
	assert.Equal(t, make([]byte, 128), s.Sample(), "silence maps to zero")

	// 1 kHz lands in bin 1000/(44100/2048) ~ 46.
	g.Input().Attach(utils.Frames(utils.GenerateSineWave(4096, rate, 1000, 0.01)))
	buf := make([][2]float64, 4096)
	_, _ = g.Stream(buf)

	data := s.Sample()
	peak := utils.FindPeakBin(data, 0, len(data)-1)
	assert.InDelta(t, 46, peak, 1)
	assert.InDelta(t, 1000, s.Frequency(peak), 30)
}

func TestBandMeter(t *testing.T) {
	m := NewBandMeter([]FrequencyBand{
		{Name: "low", LowHz: 0, HighHz: 250},
		{Name: "high", LowHz: 250, HighHz: 1000},
		{Name: "empty", LowHz: 5000, HighHz: 6000},
	})
	spectrum := []byte{255, 255, 255, 0, 51, 102}
	levels := m.Measure(spectrum, func(i int) float64 { return float64(i) * 100 })

	require.Len(t, levels, 3)
	assert.Equal(t, "low", levels[0].Name)
	assert.InDelta(t, 1.0, levels[0].Level, 1e-9)
	assert.InDelta(t, 153.0/3/255, levels[1].Level, 1e-9)
	assert.Zero(t, levels[2].Level)

	levels = m.Measure(make([]byte, 6), func(i int) float64 { return float64(i) * 100 })
	assert.Zero(t, levels[0].Level, "levels reset between calls")
}

func TestDefaultBands(t *testing.T) {
	bands := DefaultBands()
	for i := 1; i < len(bands); i++ {
		assert.Equal(t, bands[i-1].HighHz, bands[i].LowHz, "bands are contiguous")
	}
}
