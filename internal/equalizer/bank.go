// SPDX-License-Identifier: MIT

// Package equalizer is the user-facing parameter surface over the graph's
// shelf and peaking filters. It clamps every value and never touches
// playback state.
package equalizer

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"spectra/internal/graph"
)

// Gain limits in dB.
const (
	MinShelfDB = -10.0
	MaxShelfDB = 10.0
	MinBandDB  = -12.0
	MaxBandDB  = 12.0
)

// ErrInvalidBand is returned for a band index outside the bank.
var ErrInvalidBand = errors.New("invalid eq band")

// GainParam is a filter whose gain can be set in dB. *graph.Biquad
// satisfies it.
type GainParam interface {
	SetGainDB(db float64)
	GainDB() float64
}

// State is the current set of effect gains.
type State struct {
	BassDB   float64   `json:"bass_db"`
	TrebleDB float64   `json:"treble_db"`
	BandsDB  []float64 `json:"bands_db"`
}

// Band describes one peaking band for display.
type Band struct {
	Label       string  `json:"label"`
	FrequencyHz float64 `json:"frequency_hz"`
	GainDB      float64 `json:"gain_db"`
}

// Bank holds the effect state and the filters it drives. State survives
// Detach/Attach so settings carry over when a new file is loaded.
type Bank struct {
	mu     sync.Mutex
	state  State
	labels []string
	freqs  []float64

	bass   GainParam
	treble GainParam
	bands  []GainParam
}

// New creates a flat bank for the given peaking band centre frequencies.
func New(bandsHz []float64) *Bank {
	b := &Bank{
		state:  State{BandsDB: make([]float64, len(bandsHz))},
		labels: make([]string, len(bandsHz)),
		freqs:  append([]float64(nil), bandsHz...),
	}
	for i, hz := range bandsHz {
		b.labels[i] = graph.BandLabel(hz)
	}
	return b
}

// Attach binds the bank to a graph's filters by role and applies the current
// state to them.
func (b *Bank) Attach(g *graph.Graph) {
	var bass, treble GainParam
	if f := g.FiltersByRole(graph.RoleBass); len(f) > 0 {
		bass = f[0]
	}
	if f := g.FiltersByRole(graph.RoleTreble); len(f) > 0 {
		treble = f[0]
	}
	filters := g.FiltersByRole(graph.RoleBand)
	bands := make([]GainParam, len(filters))
	for i, f := range filters {
		bands[i] = f
	}
	b.AttachParams(bass, treble, bands)
}

// AttachParams binds explicit parameters. Nil entries are skipped.
func (b *Bank) AttachParams(bass, treble GainParam, bands []GainParam) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bass, b.treble, b.bands = bass, treble, bands
	apply(b.bass, b.state.BassDB)
	apply(b.treble, b.state.TrebleDB)
	for i, p := range b.bands {
		if i < len(b.state.BandsDB) {
			apply(p, b.state.BandsDB[i])
		}
	}
}

// Detach unbinds the filters. Later Set calls only update State.
func (b *Bank) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bass, b.treble, b.bands = nil, nil, nil
}

// SetBass clamps db to [-10, 10], applies it and returns the stored value.
func (b *Bank) SetBass(db float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := clamp(db, MinShelfDB, MaxShelfDB)
	b.state.BassDB = v
	apply(b.bass, v)
	return v
}

// SetTreble clamps db to [-10, 10], applies it and returns the stored value.
func (b *Bank) SetTreble(db float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := clamp(db, MinShelfDB, MaxShelfDB)
	b.state.TrebleDB = v
	apply(b.treble, v)
	return v
}

// SetBand clamps db to [-12, 12] and applies it to band i.
func (b *Bank) SetBand(i int, db float64) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.state.BandsDB) {
		return 0, fmt.Errorf("%w: %d (have %d)", ErrInvalidBand, i, len(b.state.BandsDB))
	}
	v := clamp(db, MinBandDB, MaxBandDB)
	b.state.BandsDB[i] = v
	if i < len(b.bands) {
		apply(b.bands[i], v)
	}
	return v, nil
}

// Reset flattens every gain.
func (b *Bank) Reset() {
	b.SetBass(0)
	b.SetTreble(0)
	for i := range b.BandCount() {
		_, _ = b.SetBand(i, 0)
	}
}

// BandCount returns the number of peaking bands.
func (b *Bank) BandCount() int {
	return len(b.freqs)
}

// State returns a copy of the effect gains.
func (b *Bank) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.state
	s.BandsDB = append([]float64(nil), b.state.BandsDB...)
	return s
}

// Bands returns the bands with labels and current gains.
func (b *Bank) Bands() []Band {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Band, len(b.freqs))
	for i := range out {
		out[i] = Band{Label: b.labels[i], FrequencyHz: b.freqs[i], GainDB: b.state.BandsDB[i]}
	}
	return out
}

// apply skips the write when the filter already has the value.
func apply(p GainParam, db float64) {
	if p == nil || p.GainDB() == db {
		return
	}
	p.SetGainDB(db)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, lo), hi)
}
