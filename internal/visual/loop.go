// SPDX-License-Identifier: MIT
package visual

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"spectra/internal/log"
	"spectra/internal/transport"
)

var logger = log.Named("visual")

// SampleSource yields the spectrum for the current frame.
type SampleSource interface {
	Sample() []byte
}

// Loop samples, renders and sends one RenderState per frame. It never
// touches playback state.
type Loop struct {
	source    SampleSource
	transport transport.Transport
	interval  time.Duration

	renderMu sync.Mutex
	renderer *Renderer

	cfgMu sync.Mutex
	cfg   Config

	mu       sync.Mutex // guards start/stop
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  time.Time

	frames atomic.Uint64
}

// NewLoop creates a stopped loop running at frameRate frames per second.
func NewLoop(source SampleSource, t transport.Transport, cfg Config, frameRate int) *Loop {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Loop{
		source:    source,
		transport: t,
		renderer:  NewRenderer(cfg.BinCount),
		interval:  time.Second / time.Duration(frameRate),
		cfg:       cfg,
	}
}

// Config returns the current visualization settings.
func (l *Loop) Config() Config {
	l.cfgMu.Lock()
	defer l.cfgMu.Unlock()
	return l.cfg
}

// SetType switches the visualization from the next frame on.
func (l *Loop) SetType(t Type) {
	l.cfgMu.Lock()
	defer l.cfgMu.Unlock()
	l.cfg.Type = t
}

// SetBinCount changes the bin count; the renderer reallocates on the next
// frame.
func (l *Loop) SetBinCount(n int) {
	l.cfgMu.Lock()
	defer l.cfgMu.Unlock()
	l.cfg.BinCount = n
}

// Frames returns the number of frames rendered.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Start launches the loop goroutine. It stops on Stop or when ctx is done.
// Starting a running loop is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		return
	}
	l.stop = make(chan struct{})
	l.stopOnce = sync.Once{}
	l.started = time.Now()
	stop, started := l.stop, l.started

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		logger.Debugf("render loop started (%s per frame)", l.interval)

		for {
			select {
			case <-ctx.Done():
				l.mu.Lock()
				if l.stop == stop {
					l.stop = nil
				}
				l.mu.Unlock()
				return
			case <-stop:
				return
			case now := <-ticker.C:
				l.Step(now.Sub(started).Seconds())
			}
		}
	}()
}

// Stop ends the loop and waits for the goroutine. Safe to call repeatedly.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stop == nil {
		l.mu.Unlock()
		return
	}
	l.stopOnce.Do(func() { close(l.stop) })
	l.stop = nil
	l.mu.Unlock()

	l.wg.Wait()
	logger.Debugf("render loop stopped after %d frames", l.Frames())
}

// Step renders and sends a single frame at elapsed seconds. The state is
// reused by the next frame.
func (l *Loop) Step(elapsed float64) *RenderState {
	cfg := l.Config()

	l.renderMu.Lock()
	defer l.renderMu.Unlock()
	state := l.renderer.Render(l.source.Sample(), cfg, elapsed)
	l.frames.Add(1)
	if l.transport != nil {
		if err := l.transport.Send(state); err != nil {
			logger.Debugf("send frame: %v", err)
		}
	}
	return state
}
