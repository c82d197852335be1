// SPDX-License-Identifier: MIT
package analysis

// FrequencyBand is a named frequency range.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands are the ranges shown by the terminal level meter.
func DefaultBands() []FrequencyBand {
	return []FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: 20000},
	}
}

// BandLevel is the mean byte magnitude of a band scaled to [0, 1].
type BandLevel struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

// BandMeter averages a byte spectrum into named bands.
type BandMeter struct {
	bands  []FrequencyBand
	levels []BandLevel
	counts []int
}

// NewBandMeter creates a meter over bands.
func NewBandMeter(bands []FrequencyBand) *BandMeter {
	m := &BandMeter{
		bands:  bands,
		levels: make([]BandLevel, len(bands)),
		counts: make([]int, len(bands)),
	}
	for i, b := range bands {
		m.levels[i].Name = b.Name
	}
	return m
}

// Measure maps each bin of spectrum to its band using freq and returns the
// per-band levels. The returned slice is reused by the next call. Bands that
// no bin falls into read 0.
func (m *BandMeter) Measure(spectrum []byte, freq func(bin int) float64) []BandLevel {
	for i := range m.levels {
		m.levels[i].Level = 0
		m.counts[i] = 0
	}
	for i, v := range spectrum {
		f := freq(i)
		for j, b := range m.bands {
			if f >= b.LowHz && f < b.HighHz {
				m.levels[j].Level += float64(v)
				m.counts[j]++
				break
			}
		}
	}
	for i := range m.levels {
		if m.counts[i] > 0 {
			m.levels[i].Level /= float64(m.counts[i]) * 255
		}
	}
	return m.levels
}
