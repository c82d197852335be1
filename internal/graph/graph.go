// SPDX-License-Identifier: MIT
package graph

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep/v2"
)

// ErrNotReady is returned by operations that need a decoded asset and a
// built graph when neither exists yet.
var ErrNotReady = errors.New("graph not ready")

// Graph is one built signal chain. It is created once per loaded asset and
// discarded with Close when the asset is replaced.
type Graph struct {
	sampleRate beep.SampleRate
	opts       AnalyzerOptions

	input    *Input
	gain     *Gain
	filters  []*Biquad
	analyzer atomic.Pointer[Analyzer]
	closed   atomic.Bool

	mu      sync.Mutex // serializes analyzer rebuilds and Close
	quality Quality
}

// Build wires input -> gain -> filters (in spec order) -> analyzer.
func Build(sampleRate beep.SampleRate, quality Quality, specs []FilterSpec, opts AnalyzerOptions) (*Graph, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("graph: invalid sample rate %d", sampleRate)
	}
	analyzer, err := NewAnalyzer(quality.FFTSize(), float64(sampleRate), opts)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}

	g := &Graph{
		sampleRate: sampleRate,
		opts:       opts,
		input:      &Input{},
		gain:       NewGain(),
		filters:    make([]*Biquad, len(specs)),
		quality:    quality,
	}

	g.gain.Connect(g.input)
	var prev beep.Streamer = g.gain
	for i, spec := range specs {
		f := NewBiquad(spec, float64(sampleRate))
		f.Connect(prev)
		g.filters[i] = f
		prev = f
	}
	analyzer.Connect(prev)
	g.analyzer.Store(analyzer)
	return g, nil
}

// Stream pulls one buffer from the end of the chain. A closed graph yields
// silence.
func (g *Graph) Stream(samples [][2]float64) (int, bool) {
	if g.closed.Load() {
		clear(samples)
		return len(samples), true
	}
	return g.analyzer.Load().Stream(samples)
}

func (g *Graph) Err() error {
	return nil
}

// SampleRate is the rate the chain runs at (the output sink's rate).
func (g *Graph) SampleRate() beep.SampleRate {
	return g.sampleRate
}

// Input returns the source attachment point.
func (g *Graph) Input() *Input {
	return g.input
}

// Gain returns the master gain node.
func (g *Graph) Gain() *Gain {
	return g.gain
}

// Filters returns the filter nodes in chain order.
func (g *Graph) Filters() []*Biquad {
	return g.filters
}

// FiltersByRole returns the filters answering to a role, in chain order.
func (g *Graph) FiltersByRole(role Role) []*Biquad {
	var out []*Biquad
	for _, f := range g.filters {
		if f.spec.Role == role {
			out = append(out, f)
		}
	}
	return out
}

// Analyzer returns the current analyzer.
func (g *Graph) Analyzer() *Analyzer {
	return g.analyzer.Load()
}

// Quality returns the quality the analyzer was built for.
func (g *Graph) Quality() Quality {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.quality
}

// Nodes returns every node from input to analyzer.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.filters)+3)
	nodes = append(nodes, g.input, g.gain)
	for _, f := range g.filters {
		nodes = append(nodes, f)
	}
	return append(nodes, g.analyzer.Load())
}

// RebuildAnalyzer replaces the analyzer with one sized for q. The filters
// and their gains are untouched.
func (g *Graph) RebuildAnalyzer(q Quality) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed.Load() {
		return ErrNotReady
	}
	if q == g.quality {
		return nil
	}
	next, err := NewAnalyzer(q.FFTSize(), float64(g.sampleRate), g.opts)
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}

	var tail beep.Streamer = g.gain
	if len(g.filters) > 0 {
		tail = g.filters[len(g.filters)-1]
	}
	next.Connect(tail)
	prev := g.analyzer.Swap(next)
	prev.Disconnect()
	g.quality = q
	return nil
}

// Close disconnects every node. The graph produces silence afterwards and
// cannot be reused.
func (g *Graph) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed.Swap(true) {
		return
	}
	nodes := g.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		nodes[i].Disconnect()
	}
}

// Closed reports whether Close has been called.
func (g *Graph) Closed() bool {
	return g.closed.Load()
}
