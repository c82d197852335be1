// SPDX-License-Identifier: MIT
package graph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"spectra/internal/asset"
	"spectra/internal/log"

	"github.com/gopxl/beep/v2"
)

var logger = log.Named("graph")

// DecodeFunc turns file bytes into an asset.
type DecodeFunc func(ctx context.Context, data []byte, mimeType, name string) (*asset.Asset, error)

// Manager owns the current asset and the graph built for it. It builds
// exactly one graph per installed asset and tears the previous one down
// first.
type Manager struct {
	sampleRate beep.SampleRate
	specs      []FilterSpec
	opts       AnalyzerOptions
	decode     DecodeFunc

	mu      sync.RWMutex
	asset   *asset.Asset
	quality Quality
	current atomic.Pointer[Graph]
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithDecoder replaces asset.Decode, mainly for tests.
func WithDecoder(fn DecodeFunc) ManagerOption {
	return func(m *Manager) { m.decode = fn }
}

// NewManager creates a manager whose graphs run at sampleRate with the given
// filter chain.
func NewManager(sampleRate beep.SampleRate, specs []FilterSpec, quality Quality, opts AnalyzerOptions, options ...ManagerOption) *Manager {
	m := &Manager{
		sampleRate: sampleRate,
		specs:      append([]FilterSpec(nil), specs...),
		opts:       opts,
		decode:     asset.Decode,
		quality:    quality,
	}
	for _, o := range options {
		o(m)
	}
	return m
}

// Decode decodes without touching the current asset or graph, so the old
// graph keeps playing while a replacement decodes.
func (m *Manager) Decode(ctx context.Context, data []byte, mimeType, name string) (*asset.Asset, error) {
	return m.decode(ctx, data, mimeType, name)
}

// Install discards the previous graph and asset and builds a new graph for
// a. Callers must have stopped any source playing through the old graph.
func (m *Manager) Install(a *asset.Asset) (*Graph, error) {
	g, err := m.Prepare()
	if err != nil {
		return nil, err
	}
	m.Commit(a, g)
	return g, nil
}

// Prepare builds a graph at the current quality without installing it. The
// live graph and asset are untouched, also on error.
func (m *Manager) Prepare() (*Graph, error) {
	m.mu.RLock()
	quality := m.quality
	m.mu.RUnlock()
	return Build(m.sampleRate, quality, m.specs, m.opts)
}

// Commit makes g the live graph for a, tearing the previous one down. If the
// quality changed since Prepare, g's analyzer is rebuilt to match.
func (m *Manager) Commit(a *asset.Asset, g *Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g.Quality() != m.quality {
		if err := g.RebuildAnalyzer(m.quality); err != nil {
			logger.Warnf("rebuild analyzer for %q: %v", a.Name, err)
		}
	}
	m.discardLocked()
	m.asset = a
	m.current.Store(g)
	logger.Debugf("built graph for %q (%d filters, fft %d)", a.Name, len(g.filters), m.quality.FFTSize())
}

// Load is Decode followed by Install.
func (m *Manager) Load(ctx context.Context, data []byte, mimeType, name string) (*Graph, error) {
	a, err := m.Decode(ctx, data, mimeType, name)
	if err != nil {
		return nil, err
	}
	return m.Install(a)
}

// SetQuality records q and rebuilds the analyzer of the live graph, if any.
func (m *Manager) SetQuality(q Quality) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := ParseQuality(string(q)); err != nil {
		return err
	}
	m.quality = q
	if g := m.current.Load(); g != nil {
		if err := g.RebuildAnalyzer(q); err != nil {
			return fmt.Errorf("rebuild analyzer: %w", err)
		}
	}
	return nil
}

// Quality returns the configured quality.
func (m *Manager) Quality() Quality {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quality
}

// Graph returns the live graph or nil.
func (m *Manager) Graph() *Graph {
	return m.current.Load()
}

// Asset returns the loaded asset or nil.
func (m *Manager) Asset() *asset.Asset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.asset
}

// Ready reports whether an asset is loaded and its graph built.
func (m *Manager) Ready() bool {
	return m.current.Load() != nil
}

// SampleRate returns the rate graphs are built for.
func (m *Manager) SampleRate() beep.SampleRate {
	return m.sampleRate
}

// Discard tears down the graph and drops the asset.
func (m *Manager) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discardLocked()
}

func (m *Manager) discardLocked() {
	if old := m.current.Swap(nil); old != nil {
		old.Close()
	}
	m.asset = nil
}

// Output returns a streamer for the output sink that always pulls from the
// live graph, or silence when there is none.
func (m *Manager) Output() beep.Streamer {
	return output{m: m}
}

type output struct {
	m *Manager
}

func (o output) Stream(samples [][2]float64) (int, bool) {
	if g := o.m.current.Load(); g != nil {
		return g.Stream(samples)
	}
	clear(samples)
	return len(samples), true
}

func (o output) Err() error {
	return nil
}
