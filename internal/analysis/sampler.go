// SPDX-License-Identifier: MIT

// Package analysis turns the graph analyzer's spectrum into per-frame byte
// snapshots for the visualizations and into coarse band levels for meters.
package analysis

import (
	"sync"
)

// Provider is anything that can fill a byte spectrum. *graph.Analyzer
// satisfies it.
type Provider interface {
	// ByteFrequencyData fills dst with the most recent spectrum and returns
	// the number of bins written.
	ByteFrequencyData(dst []byte) int
	// FrequencyForBin returns the centre frequency (Hz) of bin i.
	FrequencyForBin(i int) float64
}

// Source returns the current provider, or nil when nothing is loaded.
type Source func() Provider

// Sampler takes one spectrum snapshot per call into a reused buffer.
type Sampler struct {
	source Source

	mu   sync.Mutex
	data []byte
}

// NewSampler creates a sampler producing binCount bins per snapshot.
func NewSampler(source Source, binCount int) *Sampler {
	return &Sampler{
		source: source,
		data:   make([]byte, max(binCount, 0)),
	}
}

// Sample returns the current spectrum. The slice is owned by the sampler and
// overwritten on the next call; with no provider it is all zeros.
func (s *Sampler) Sample() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleLocked()
}

// SampleInto copies the current spectrum into dst and returns the number of
// bins copied. The copy happens under the lock, so dst never sees a
// half-written frame.
func (s *Sampler) SampleInto(dst []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copy(dst, s.sampleLocked())
}

func (s *Sampler) sampleLocked() []byte {
	var p Provider
	if s.source != nil {
		p = s.source()
	}
	if p == nil {
		clear(s.data)
		return s.data
	}
	n := p.ByteFrequencyData(s.data)
	clear(s.data[n:])
	return s.data
}

// BinCount returns the snapshot length.
func (s *Sampler) BinCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// SetBinCount resizes the snapshot buffer. It only reallocates when the
// count changes.
func (s *Sampler) SetBinCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n = max(n, 0)
	if n == len(s.data) {
		return
	}
	s.data = make([]byte, n)
}

// Frequency returns the centre frequency of bin i of the current provider,
// or 0 without one.
func (s *Sampler) Frequency(i int) float64 {
	if s.source == nil {
		return 0
	}
	if p := s.source(); p != nil {
		return p.FrequencyForBin(i)
	}
	return 0
}
