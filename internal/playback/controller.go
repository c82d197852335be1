// SPDX-License-Identifier: MIT

// Package playback owns the transport: play, pause, seek, rate, reverse, loop
// and volume over a single decoded asset feeding a graph. Positions are in
// seconds of the original asset.
package playback

import (
	"errors"
	"math"
	"sync"
	"time"

	"spectra/internal/asset"
	"spectra/internal/graph"
	"spectra/internal/log"

	"github.com/gopxl/beep/v2"
)

// Rate limits and the step used by the UI rate keys.
const (
	MinRate  = 0.5
	MaxRate  = 2.0
	RateStep = 0.1
)

// DefaultPollInterval is the position update period while playing.
const DefaultPollInterval = 100 * time.Millisecond

var logger = log.Named("playback")

// State is a snapshot of the transport.
type State struct {
	Position         float64 `json:"position"`
	Duration         float64 `json:"duration"`
	Playing          bool    `json:"playing"`
	Rate             float64 `json:"rate"`
	Reversed         bool    `json:"reversed"`
	Looping          bool    `json:"looping"`
	ShuffleRequested bool    `json:"shuffle_requested"`
	Volume           float64 `json:"volume"`
	Muted            bool    `json:"muted"`
}

// Controller drives one Source at a time into the bound graph's input.
// All methods are safe for concurrent use.
type Controller struct {
	outRate  beep.SampleRate
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	asset    *asset.Asset
	graph    *graph.Graph
	source   *Source
	nextID   uint64
	state    State
	poll     *poller
	draining []*poller
	lastTick time.Time
}

type Option func(*Controller)

// WithPollInterval sets how often the position advances while playing.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates an unbound controller whose sources render at outRate.
func NewController(outRate beep.SampleRate, opts ...Option) *Controller {
	c := &Controller{
		outRate:  outRate,
		interval: DefaultPollInterval,
		now:      time.Now,
		state:    State{Rate: 1, Volume: 1},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind attaches a freshly built graph and its asset. Any current playback is
// stopped and the position resets; rate, direction, loop and volume persist.
func (c *Controller) Bind(a *asset.Asset, g *graph.Graph) {
	c.mu.Lock()
	wait := c.teardownLocked()
	c.asset, c.graph = a, g
	c.state.Position = 0
	c.state.Duration = a.Seconds()
	c.applyGainLocked()
	c.mu.Unlock()

	waitAll(wait)
	logger.Debugf("bound %q (%.2fs)", a.Name, a.Seconds())
}

// Unbind stops playback and releases the graph. Transport commands return
// ErrGraphNotReady until the next Bind.
func (c *Controller) Unbind() {
	c.mu.Lock()
	wait := c.teardownLocked()
	c.asset, c.graph = nil, nil
	c.state.Position = 0
	c.state.Duration = 0
	c.mu.Unlock()

	waitAll(wait)
}

// Close stops playback and waits for the poller to exit.
func (c *Controller) Close() {
	c.Unbind()
}

// Bound reports whether a graph is attached.
func (c *Controller) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asset != nil
}

// Play starts a new source at the current position. Playing again is a no-op.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.asset == nil {
		return ErrGraphNotReady
	}
	if c.state.Playing {
		return nil
	}
	if err := c.startSourceLocked(); err != nil {
		return err
	}
	c.state.Playing = true
	c.lastTick = c.now()
	c.poll = startPoller(c.interval, c.tick)
	logger.Debugf("play at %.2fs rate=%.2f reversed=%t", c.state.Position, c.state.Rate, c.state.Reversed)
	return nil
}

// Pause stops the source and freezes the position at its last polled value.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.asset == nil {
		c.mu.Unlock()
		return ErrGraphNotReady
	}
	if !c.state.Playing {
		c.mu.Unlock()
		return nil
	}
	c.stopSourceLocked()
	c.state.Playing = false
	pos := c.state.Position
	p := c.cancelPollLocked()
	c.mu.Unlock()

	p.wait()
	logger.Debugf("pause at %.2fs", pos)
	return nil
}

// Toggle plays when paused and pauses when playing.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	playing := c.state.Playing
	c.mu.Unlock()
	if playing {
		return c.Pause()
	}
	return c.Play()
}

// Seek moves to pos seconds, clamped to the asset. While playing the source
// is rebuilt at the new offset.
func (c *Controller) Seek(pos float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.asset == nil {
		return ErrGraphNotReady
	}
	if math.IsNaN(pos) {
		pos = 0
	}
	c.state.Position = min(max(pos, 0), c.state.Duration)
	if c.state.Playing {
		return c.restartLocked()
	}
	return nil
}

// SeekBy moves relative to the current position.
func (c *Controller) SeekBy(delta float64) error {
	c.mu.Lock()
	pos := c.state.Position + delta
	c.mu.Unlock()
	return c.Seek(pos)
}

// SetRate clamps rate to [MinRate, MaxRate] and returns the stored value.
// Sources fix their rate at start, so a change while playing restarts one.
func (c *Controller) SetRate(rate float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.asset == nil {
		return c.state.Rate, ErrGraphNotReady
	}
	if math.IsNaN(rate) {
		rate = 1
	}
	rate = min(max(rate, MinRate), MaxRate)
	if rate == c.state.Rate {
		return rate, nil
	}
	c.catchUpLocked()
	c.state.Rate = rate
	if c.state.Playing {
		return rate, c.restartLocked()
	}
	return rate, nil
}

// SetReversed sets the direction. Reverse is emulated by starting from the
// mirrored offset; audio is still rendered forward.
func (c *Controller) SetReversed(reversed bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setReversedLocked(reversed)
}

// ToggleReverse flips the direction and returns the new value.
func (c *Controller) ToggleReverse() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := !c.state.Reversed
	if err := c.setReversedLocked(v); err != nil {
		return c.state.Reversed, err
	}
	return v, nil
}

func (c *Controller) setReversedLocked(reversed bool) error {
	if c.asset == nil {
		return ErrGraphNotReady
	}
	if reversed == c.state.Reversed {
		return nil
	}
	c.catchUpLocked()
	c.state.Reversed = reversed
	if c.state.Playing {
		return c.restartLocked()
	}
	return nil
}

// SetLoop sets looping. It applies to the live source without a restart.
func (c *Controller) SetLoop(loop bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLoopLocked(loop)
}

// ToggleLoop flips looping and returns the new value.
func (c *Controller) ToggleLoop() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := !c.state.Looping
	if err := c.setLoopLocked(v); err != nil {
		return c.state.Looping, err
	}
	return v, nil
}

func (c *Controller) setLoopLocked(loop bool) error {
	if c.asset == nil {
		return ErrGraphNotReady
	}
	c.state.Looping = loop
	if c.source != nil {
		if err := c.source.SetLoop(loop); err != nil {
			// The source already ended; the next tick handles it.
			logger.Debugf("loop on finished source: %v", err)
		}
	}
	return nil
}

// ToggleShuffle flips the shuffle flag. With a single asset it has no effect
// on playback.
func (c *Controller) ToggleShuffle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShuffleRequested = !c.state.ShuffleRequested
	return c.state.ShuffleRequested
}

// SetShuffle sets the shuffle flag.
func (c *Controller) SetShuffle(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShuffleRequested = on
}

// SetVolume clamps v to [0, 1], applies it to the graph gain unless muted and
// returns the stored value. Allowed without a graph.
func (c *Controller) SetVolume(v float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsNaN(v) {
		v = 0
	}
	c.state.Volume = min(max(v, 0), 1)
	c.applyGainLocked()
	return c.state.Volume
}

// SetMuted mutes or unmutes without losing the volume.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Muted = muted
	c.applyGainLocked()
}

// ToggleMute flips mute and returns the new value.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Muted = !c.state.Muted
	c.applyGainLocked()
	return c.state.Muted
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartOffset is where a source started now would begin: the position, or
// its mirror when reversed.
func (c *Controller) StartOffset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startOffsetLocked()
}

func (c *Controller) startOffsetLocked() float64 {
	if c.state.Reversed {
		return c.state.Duration - c.state.Position
	}
	return c.state.Position
}

func (c *Controller) applyGainLocked() {
	if c.graph == nil {
		return
	}
	if c.state.Muted {
		c.graph.Gain().SetGain(0)
		return
	}
	c.graph.Gain().SetGain(c.state.Volume)
}

func (c *Controller) startSourceLocked() error {
	c.stopSourceLocked()

	src := NewSource(c.asset, c.outRate)
	c.nextID++
	src.id = c.nextID
	if err := src.SetPlaybackRate(c.state.Rate); err != nil {
		return err
	}
	if err := src.SetLoop(c.state.Looping); err != nil {
		return err
	}
	if err := src.Start(c.startOffsetLocked()); err != nil {
		return err
	}
	c.graph.Input().Attach(src)
	c.source = src
	return nil
}

func (c *Controller) stopSourceLocked() {
	if c.source == nil {
		return
	}
	if c.graph != nil {
		c.graph.Input().Detach()
	}
	if err := c.source.Stop(); err != nil && !errors.Is(err, ErrSourceRestart) {
		logger.Warnf("stop source %d: %v", c.source.id, err)
	}
	c.source = nil
}

// catchUpLocked credits the time since the last poll at the current rate
// and direction. Called before either changes.
func (c *Controller) catchUpLocked() {
	if !c.state.Playing {
		return
	}
	now := c.now()
	if elapsed := now.Sub(c.lastTick); elapsed > 0 {
		c.lastTick = now
		c.advanceLocked(elapsed)
	}
}

// restartLocked replaces the playing source at the current offset.
func (c *Controller) restartLocked() error {
	if err := c.startSourceLocked(); err != nil {
		c.state.Playing = false
		c.draining = append(c.draining, c.cancelPollLocked())
		return err
	}
	c.lastTick = c.now()
	return nil
}

// teardownLocked stops everything and returns the pollers to wait for once
// the lock is released.
func (c *Controller) teardownLocked() []*poller {
	c.stopSourceLocked()
	c.state.Playing = false
	wait := append(c.draining, c.cancelPollLocked())
	c.draining = nil
	return wait
}

func (c *Controller) cancelPollLocked() *poller {
	p := c.poll
	c.poll = nil
	p.cancel()
	return p
}

// tick runs on the poller goroutine.
func (c *Controller) tick(p *poller, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.poll != p {
		return
	}
	elapsed := now.Sub(c.lastTick)
	c.lastTick = now
	c.advanceLocked(elapsed)
}

// advanceLocked moves the position by elapsed wall time scaled by the rate
// and handles the end of the asset in either direction.
func (c *Controller) advanceLocked(elapsed time.Duration) {
	if !c.state.Playing || c.asset == nil {
		return
	}
	d := c.state.Duration
	delta := elapsed.Seconds() * c.state.Rate
	pos := c.state.Position
	if c.state.Reversed {
		pos -= delta
	} else {
		pos += delta
	}

	ended := c.source != nil && c.source.Ended()
	if pos < d && pos > 0 && !ended {
		c.state.Position = pos
		return
	}

	if c.state.Looping {
		if c.state.Reversed {
			c.state.Position = d
		} else {
			c.state.Position = 0
		}
		if ended {
			if err := c.restartLocked(); err != nil {
				logger.Errorf("restart looped source: %v", err)
			}
		}
		return
	}

	c.stopSourceLocked()
	c.state.Playing = false
	c.state.Position = 0
	// Called from the poller itself, so it is only cancelled here.
	c.draining = append(c.draining, c.cancelPollLocked())
	logger.Debugf("playback complete")
}

func waitAll(ps []*poller) {
	for _, p := range ps {
		p.wait()
	}
}
