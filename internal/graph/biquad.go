// SPDX-License-Identifier: MIT
package graph

import (
	"math"
	"math/cmplx"
	"sync/atomic"
)

// coefficients are normalized by a0.
type coefficients struct {
	b0, b1, b2 float64
	a1, a2     float64
}

var identity = &coefficients{b0: 1}

// Biquad is a second-order IIR filter with RBJ cookbook responses. Shelves
// use a slope of 1; peaking filters use the descriptor's Q. Gain changes swap the
// coefficient set atomically and are picked up on the next buffer.
type Biquad struct {
	link
	spec       FilterSpec
	sampleRate float64
	gainBits   atomic.Uint64
	coeffs     atomic.Pointer[coefficients]

	// Direct form I state per channel, owned by the audio thread.
	x1, x2, y1, y2 [2]float64
}

// NewBiquad returns a filter at 0 dB gain, which is an exact pass-through.
func NewBiquad(spec FilterSpec, sampleRate float64) *Biquad {
	b := &Biquad{spec: spec, sampleRate: sampleRate}
	b.coeffs.Store(identity)
	return b
}

// Spec returns the filter's descriptor.
func (b *Biquad) Spec() FilterSpec {
	return b.spec
}

// GainDB returns the current gain in decibels.
func (b *Biquad) GainDB() float64 {
	return bitsFloat(b.gainBits.Load())
}

// SetGainDB recomputes the coefficients for a new gain. Setting the gain it
// already has does nothing.
func (b *Biquad) SetGainDB(db float64) {
	if db == b.GainDB() {
		return
	}
	b.gainBits.Store(floatBits(db))
	b.coeffs.Store(design(b.spec, b.sampleRate, db))
}

func design(spec FilterSpec, sampleRate, db float64) *coefficients {
	if db == 0 {
		return identity
	}

	A := math.Pow(10, db/40)
	w0 := 2 * math.Pi * spec.FrequencyHz / sampleRate
	cosw := math.Cos(w0)
	sinw := math.Sin(w0)

	var b0, b1, b2, a0, a1, a2 float64
	switch spec.Kind {
	case LowShelf, HighShelf:
		// S = 1
		alpha := sinw / 2 * math.Sqrt2
		sqA := 2 * math.Sqrt(A) * alpha
		if spec.Kind == LowShelf {
			b0 = A * ((A + 1) - (A-1)*cosw + sqA)
			b1 = 2 * A * ((A - 1) - (A+1)*cosw)
			b2 = A * ((A + 1) - (A-1)*cosw - sqA)
			a0 = (A + 1) + (A-1)*cosw + sqA
			a1 = -2 * ((A - 1) + (A+1)*cosw)
			a2 = (A + 1) + (A-1)*cosw - sqA
		} else {
			b0 = A * ((A + 1) + (A-1)*cosw + sqA)
			b1 = -2 * A * ((A - 1) + (A+1)*cosw)
			b2 = A * ((A + 1) + (A-1)*cosw - sqA)
			a0 = (A + 1) - (A-1)*cosw + sqA
			a1 = 2 * ((A - 1) - (A+1)*cosw)
			a2 = (A + 1) - (A-1)*cosw - sqA
		}
	default:
		q := spec.Q
		if q <= 0 {
			q = 1
		}
		alpha := sinw / (2 * q)
		b0 = 1 + alpha*A
		b1 = -2 * cosw
		b2 = 1 - alpha*A
		a0 = 1 + alpha/A
		a1 = -2 * cosw
		a2 = 1 - alpha/A
	}

	return &coefficients{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// Response returns the linear magnitude response at freq Hz for the current
// coefficients.
func (b *Biquad) Response(freq float64) float64 {
	c := b.coeffs.Load()
	w := 2 * math.Pi * freq / b.sampleRate
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(c.b0, 0) + complex(c.b1, 0)*z1 + complex(c.b2, 0)*z2
	den := 1 + complex(c.a1, 0)*z1 + complex(c.a2, 0)*z2
	return cmplx.Abs(num / den)
}

func (b *Biquad) Stream(samples [][2]float64) (int, bool) {
	b.pull(samples)
	c := b.coeffs.Load()
	if c == identity {
		// Keep the history current so re-enabling gain does not click.
		n := len(samples)
		for ch := range 2 {
			if n >= 2 {
				b.x2[ch], b.x1[ch] = samples[n-2][ch], samples[n-1][ch]
			} else if n == 1 {
				b.x2[ch], b.x1[ch] = b.x1[ch], samples[0][ch]
			}
			b.y1[ch], b.y2[ch] = b.x1[ch], b.x2[ch]
		}
		return len(samples), true
	}

	for i := range samples {
		for ch := range 2 {
			x := samples[i][ch]
			y := c.b0*x + c.b1*b.x1[ch] + c.b2*b.x2[ch] - c.a1*b.y1[ch] - c.a2*b.y2[ch]
			b.x2[ch], b.x1[ch] = b.x1[ch], x
			b.y2[ch], b.y1[ch] = b.y1[ch], y
			samples[i][ch] = y
		}
	}
	return len(samples), true
}

func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}

func bitsFloat(u uint64) float64 {
	return math.Float64frombits(u)
}
