// SPDX-License-Identifier: MIT
package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"spectra/internal/config"

	"github.com/gopxl/beep/v2"
)

// Pump pulls a streamer at real-time pace and discards the audio. It stands
// in for a device on machines without one.
type Pump struct {
	interval time.Duration

	mu       sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	render renderer
	out    []float32
	pulled atomic.Uint64
}

// NewPump creates a stopped pump that pulls FramesPerBuffer frames every
// FramesPerBuffer/SampleRate seconds.
func NewPump(cfg config.AudioConfig, source beep.Streamer) *Pump {
	frames := max(cfg.FramesPerBuffer, 1)
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = config.DefaultSampleRate
	}
	return &Pump{
		interval: time.Duration(float64(frames) / rate * float64(time.Second)),
		render:   newRenderer(source, frames),
		out:      make([]float32, frames*2),
	}
}

// Start launches the pump goroutine. Starting twice is a no-op.
func (p *Pump) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return nil
	}
	p.stop = make(chan struct{})
	p.stopOnce = sync.Once{}
	stop := p.stop

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		logger.Infof("headless output, %s per buffer", p.interval)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.Pull()
			}
		}
	}()
	return nil
}

// Pull renders one buffer. It must not be called while the pump runs.
func (p *Pump) Pull() {
	p.render.render(p.out)
	p.pulled.Add(uint64(len(p.out) / 2))
}

// Frames returns the number of frames pulled so far.
func (p *Pump) Frames() uint64 {
	return p.pulled.Load()
}

// Stop ends the goroutine and waits for it.
func (p *Pump) Stop() error {
	p.mu.Lock()
	if p.stop == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() { close(p.stop) })
	p.stop = nil
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Pump) Close() error {
	return p.Stop()
}
