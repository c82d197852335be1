// SPDX-License-Identifier: MIT

// Package graph implements the fixed audio signal chain
//
//	input -> gain -> bass shelf -> treble shelf -> eq[0..n] -> analyzer -> output
//
// Every node is a beep.Streamer that pulls from its upstream. The output sink
// pulls from the analyzer on the audio thread while the control side adjusts
// parameters, so all parameters and connections are published atomically and
// the pull path never takes a control lock.
package graph

import (
	"sync/atomic"

	"github.com/gopxl/beep/v2"
)

// Node is one stage of the chain.
type Node interface {
	beep.Streamer
	Connect(upstream beep.Streamer)
	Disconnect()
	Connected() bool
}

type upstream struct {
	s beep.Streamer
}

// link is the shared upstream connection of every node.
type link struct {
	up atomic.Pointer[upstream]
}

// Connect makes s the node's upstream. A nil s disconnects.
func (l *link) Connect(s beep.Streamer) {
	if s == nil {
		l.up.Store(nil)
		return
	}
	l.up.Store(&upstream{s: s})
}

// Disconnect drops the upstream; the node then produces silence.
func (l *link) Disconnect() {
	l.up.Store(nil)
}

// Connected reports whether the node has an upstream.
func (l *link) Connected() bool {
	return l.up.Load() != nil
}

// Err always returns nil; a finished or failing source is replaced by
// silence rather than ending the graph.
func (l *link) Err() error {
	return nil
}

// pull fills samples from upstream and pads the remainder with silence.
func (l *link) pull(samples [][2]float64) {
	n := 0
	if u := l.up.Load(); u != nil {
		n = fill(u.s, samples)
	}
	clear(samples[n:])
}

// fill streams until samples is full or s is drained.
func fill(s beep.Streamer, samples [][2]float64) int {
	filled := 0
	for filled < len(samples) {
		n, ok := s.Stream(samples[filled:])
		filled += n
		if !ok || n == 0 {
			break
		}
	}
	return filled
}

// Input is the attachment point for the playable source. It never ends:
// with nothing attached, or once the source finishes, it yields silence.
type Input struct {
	link
}

// Attach connects a source to the graph.
func (in *Input) Attach(s beep.Streamer) {
	in.Connect(s)
}

// Detach disconnects the current source, if any.
func (in *Input) Detach() {
	in.Disconnect()
}

func (in *Input) Stream(samples [][2]float64) (int, bool) {
	in.pull(samples)
	return len(samples), true
}

// Gain scales both channels by a linear factor.
type Gain struct {
	link
	bits atomic.Uint64
}

// NewGain returns a unity gain node.
func NewGain() *Gain {
	g := &Gain{}
	g.SetGain(1)
	return g
}

// SetGain sets the linear gain. Negative values are treated as 0.
func (g *Gain) SetGain(v float64) {
	g.bits.Store(floatBits(max(v, 0)))
}

// Gain returns the current linear gain.
func (g *Gain) Gain() float64 {
	return bitsFloat(g.bits.Load())
}

func (g *Gain) Stream(samples [][2]float64) (int, bool) {
	g.pull(samples)
	v := g.Gain()
	if v != 1 {
		for i := range samples {
			samples[i][0] *= v
			samples[i][1] *= v
		}
	}
	return len(samples), true
}
