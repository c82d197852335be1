// SPDX-License-Identifier: MIT
package graph

import "strconv"

// FilterKind is the biquad response type.
type FilterKind int

const (
	LowShelf FilterKind = iota
	HighShelf
	Peaking
)

func (k FilterKind) String() string {
	switch k {
	case LowShelf:
		return "lowshelf"
	case HighShelf:
		return "highshelf"
	case Peaking:
		return "peaking"
	default:
		return "unknown"
	}
}

// Role tells the equalizer which control a filter answers to.
type Role int

const (
	RoleBass Role = iota
	RoleTreble
	RoleBand
)

// FilterSpec describes one filter in the chain. The chain is built in slice
// order between the gain node and the analyzer.
type FilterSpec struct {
	Name        string
	Role        Role
	Kind        FilterKind
	FrequencyHz float64
	Q           float64 // ignored by shelves
}

// DefaultChain returns bass lowshelf (200 Hz), treble highshelf (2 kHz) and
// five peaking bands at 60, 170, 350, 1000 and 3500 Hz with Q 1.
func DefaultChain() []FilterSpec {
	return Chain(200, 2000, []float64{60, 170, 350, 1000, 3500}, []float64{1, 1, 1, 1, 1})
}

// Chain builds the fixed filter topology from shelf corners and band
// centres. Missing Q values default to 1.
func Chain(bassHz, trebleHz float64, bandsHz, bandsQ []float64) []FilterSpec {
	specs := make([]FilterSpec, 0, 2+len(bandsHz))
	specs = append(specs,
		FilterSpec{Name: "bass", Role: RoleBass, Kind: LowShelf, FrequencyHz: bassHz},
		FilterSpec{Name: "treble", Role: RoleTreble, Kind: HighShelf, FrequencyHz: trebleHz},
	)
	for i, hz := range bandsHz {
		q := 1.0
		if i < len(bandsQ) && bandsQ[i] > 0 {
			q = bandsQ[i]
		}
		specs = append(specs, FilterSpec{
			Name:        BandLabel(hz),
			Role:        RoleBand,
			Kind:        Peaking,
			FrequencyHz: hz,
			Q:           q,
		})
	}
	return specs
}

// BandLabel formats a centre frequency the way the UI shows it: 60Hz, 1kHz, 3.5kHz.
func BandLabel(hz float64) string {
	if hz >= 1000 {
		return strconv.FormatFloat(hz/1000, 'f', -1, 64) + "kHz"
	}
	return strconv.FormatFloat(hz, 'f', -1, 64) + "Hz"
}
