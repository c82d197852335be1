// SPDX-License-Identifier: MIT
/*
Package audio plays the signal graph on an output device.

The sink pulls stereo frames from a beep.Streamer (the graph manager's
output) inside the PortAudio callback and converts them to interleaved
float32. When no device is wanted, Pump pulls the same source on a
real-time ticker so the analyzer and position clock still see audio.

Thread Safety:
  - The callback only touches pre-allocated buffers
  - Start/Stop/Close are serialized by a mutex
  - Counters are atomics readable from any goroutine
*/
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"spectra/internal/config"
	"spectra/internal/log"

	"github.com/gopxl/beep/v2"
	"github.com/gordonklaus/portaudio"
)

var logger = log.Named("audio")

// Sink consumes the graph output in real time.
type Sink interface {
	Start() error
	Stop() error
	Close() error
}

// NewSink returns a Pump when cfg.Headless is set and a PortAudio Engine
// otherwise.
func NewSink(cfg config.AudioConfig, source beep.Streamer) (Sink, error) {
	if cfg.Headless {
		return NewPump(cfg, source), nil
	}
	return NewEngine(cfg, source)
}

// renderer converts a stereo streamer into interleaved float32 frames.
type renderer struct {
	source beep.Streamer
	frames [][2]float64
}

func newRenderer(source beep.Streamer, framesPerBuffer int) renderer {
	return renderer{source: source, frames: make([][2]float64, framesPerBuffer)}
}

// render fills out (interleaved stereo) and pads with silence when the
// source runs short. It returns the number of frames that came from the
// source.
func (r *renderer) render(out []float32) int {
	n := len(out) / 2
	if n > len(r.frames) {
		r.frames = make([][2]float64, n)
	}
	buf := r.frames[:n]

	filled := 0
	for filled < n {
		got, ok := r.source.Stream(buf[filled:])
		filled += got
		if !ok || got == 0 {
			break
		}
	}
	clear(buf[filled:])

	for i, f := range buf {
		out[2*i] = float32(f[0])
		out[2*i+1] = float32(f[1])
	}
	return filled
}

// Engine is a PortAudio output stream fed by a streamer.
type Engine struct {
	cfg     config.AudioConfig
	device  *portaudio.DeviceInfo
	latency time.Duration

	mu     sync.Mutex
	stream *portaudio.Stream
	render renderer

	callbacks atomic.Uint64
	underruns atomic.Uint64
}

// NewEngine resolves the configured output device. PortAudio must be
// initialized.
func NewEngine(cfg config.AudioConfig, source beep.Streamer) (*Engine, error) {
	if source == nil {
		return nil, errors.New("audio: source cannot be nil")
	}
	device, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		device: device,
		render: newRenderer(source, cfg.FramesPerBuffer),
	}
	if cfg.LowLatency {
		e.latency = device.DefaultLowOutputLatency
	} else {
		e.latency = device.DefaultHighOutputLatency
	}
	return e, nil
}

// Device returns the selected output device.
func (e *Engine) Device() *portaudio.DeviceInfo {
	return e.device
}

// Start opens and starts the output stream. Starting twice is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream != nil {
		return nil
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   e.device,
			Channels: 2,
			Latency:  e.latency,
		},
		FramesPerBuffer: e.cfg.FramesPerBuffer,
		SampleRate:      e.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processOutputStream)
	if err != nil {
		return fmt.Errorf("open output stream on %q: %w", e.device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start output stream: %w", err)
	}
	e.stream = stream
	logger.Infof("output %q at %.0f Hz, %d frames per buffer, latency %s",
		e.device.Name, e.cfg.SampleRate, e.cfg.FramesPerBuffer, e.latency)
	return nil
}

// Stop stops and closes the stream.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return nil
	}
	stream := e.stream
	e.stream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("stop output stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("close output stream: %w", err)
	}
	logger.Debugf("output stopped after %d callbacks (%d short)", e.callbacks.Load(), e.underruns.Load())
	return nil
}

func (e *Engine) Close() error {
	return e.Stop()
}

// Stats returns the callback and short-buffer counts.
func (e *Engine) Stats() (callbacks, underruns uint64) {
	return e.callbacks.Load(), e.underruns.Load()
}

// processOutputStream is the PortAudio callback.
// Performance Critical:
// - Runs on the PortAudio thread
// - Uses pre-allocated buffers only
func (e *Engine) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.callbacks.Add(1)
	if e.render.render(out) < len(out)/2 {
		e.underruns.Add(1)
	}
}
