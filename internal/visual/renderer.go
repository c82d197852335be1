// SPDX-License-Identifier: MIT

// Package visual turns byte spectra into frame geometry for the three
// visualizations. Rendering is pure apart from reused buffers; presentation
// happens wherever the render state is sent.
package visual

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Type selects a visualization.
type Type string

const (
	Bars     Type = "bars"
	Wave     Type = "wave"
	Circular Type = "circular"
)

// ErrUnknownType is returned by ParseType.
var ErrUnknownType = errors.New("unknown visualization type")

// Types lists the visualizations in UI cycling order.
var Types = []Type{Bars, Wave, Circular}

// ParseType accepts a case-insensitive type name.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case Bars, Wave, Circular:
		return t, nil
	default:
		return Bars, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Next returns the type after t in Types.
func (t Type) Next() Type {
	for i, v := range Types {
		if v == t {
			return Types[(i+1)%len(Types)]
		}
	}
	return Bars
}

// Bar layout constants.
const (
	BarWidth = 0.03
	BarGap   = 0.01
)

// Config is the renderer input besides the sample.
type Config struct {
	Type     Type `json:"type"`
	BinCount int  `json:"bin_count"`
}

// Vec3 is a point or scale in scene units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// RGB is an 8-bit colour.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex formats the colour as #rrggbb.
func (c RGB) Hex() string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

var (
	waveColor   = RGB{R: 0x00, G: 0xff, B: 0x00}
	circleColor = RGB{R: 0xff, G: 0x00, B: 0xff}
)

// Bar is one box of the bars visualization.
type Bar struct {
	Position Vec3    `json:"position"`
	Scale    Vec3    `json:"scale"`
	Hue      float64 `json:"hue"` // [0, 1)
	Color    RGB     `json:"color"`
}

// RenderState is one frame of geometry. Only the slice for Type is set.
type RenderState struct {
	Type      Type    `json:"type"`
	BinCount  int     `json:"bin_count"`
	Elapsed   float64 `json:"elapsed"`
	Bars      []Bar   `json:"bars,omitempty"`
	Points    []Vec3  `json:"points,omitempty"`
	Closed    bool    `json:"closed"`
	LineColor RGB     `json:"line_color"`
}

// Renderer keeps one buffer per visualization, sized from the bin count.
// It is not safe for concurrent use; the render loop owns it.
type Renderer struct {
	binCount int
	bars     []Bar
	wave     []Vec3
	circle   []Vec3
	state    RenderState
}

// NewRenderer allocates buffers for binCount bins.
func NewRenderer(binCount int) *Renderer {
	r := &Renderer{}
	r.Resize(binCount)
	return r
}

// BinCount returns the current buffer size.
func (r *Renderer) BinCount() int {
	return r.binCount
}

// Resize reallocates all three buffers when binCount changes.
func (r *Renderer) Resize(binCount int) {
	binCount = max(binCount, 0)
	if binCount == r.binCount && r.bars != nil {
		return
	}
	r.binCount = binCount
	r.bars = make([]Bar, binCount)
	r.wave = make([]Vec3, binCount)
	r.circle = make([]Vec3, binCount+1)
}

// Render computes the frame for cfg at elapsed seconds. The returned state
// and its slices are reused by the next call. Bins missing from sample read
// as zero.
func (r *Renderer) Render(sample []byte, cfg Config, elapsed float64) *RenderState {
	if cfg.BinCount != r.binCount {
		r.Resize(cfg.BinCount)
	}
	s := &r.state
	*s = RenderState{Type: cfg.Type, BinCount: r.binCount, Elapsed: elapsed}

	switch cfg.Type {
	case Wave:
		r.renderWave(sample)
		s.Points = r.wave
		s.LineColor = waveColor
	case Circular:
		r.renderCircle(sample)
		s.Points = r.circle
		s.Closed = true
		s.LineColor = circleColor
	default:
		s.Type = Bars
		r.renderBars(sample, elapsed)
		s.Bars = r.bars
	}
	return s
}

func level(sample []byte, i int) float64 {
	if i < len(sample) {
		return float64(sample[i]) / 255
	}
	return 0
}

func (r *Renderer) renderBars(sample []byte, elapsed float64) {
	n := float64(r.binCount)
	for i := range r.bars {
		fi := float64(i)
		h := level(sample, i)*3 + 0.1
		hue := math.Mod(fi/n+elapsed*0.1, 1)
		if hue < 0 {
			hue++
		}
		red, green, blue := colorful.Hsl(hue*360, 0.8, 0.5).Clamped().RGB255()

		b := &r.bars[i]
		b.Position = Vec3{
			X: (fi - n/2) * (BarWidth + BarGap),
			Y: h/2 - 0.5,
			Z: math.Sin(2*elapsed+fi*0.1) * 0.1,
		}
		b.Scale = Vec3{X: BarWidth, Y: h, Z: BarWidth}
		b.Hue = hue
		b.Color = RGB{R: red, G: green, B: blue}
	}
}

func (r *Renderer) renderWave(sample []byte) {
	n := float64(r.binCount)
	for i := range r.wave {
		r.wave[i] = Vec3{
			X: float64(i)/n*4 - 2,
			Y: level(sample, i)*2 - 1,
		}
	}
}

func (r *Renderer) renderCircle(sample []byte) {
	n := r.binCount
	if n == 0 {
		r.circle[0] = Vec3{}
		return
	}
	for i := range r.circle {
		angle := float64(i) / float64(n) * 2 * math.Pi
		radius := level(sample, i%n)*1.5 + 0.5
		r.circle[i] = Vec3{
			X: math.Cos(angle) * radius,
			Y: math.Sin(angle) * radius,
		}
	}
}
