// SPDX-License-Identifier: MIT
package playback

import (
	"sync"
	"sync/atomic"

	"spectra/internal/asset"

	"github.com/gopxl/beep/v2"
)

// resampleQuality is the beep interpolation quality used for rate changes
// and sample rate conversion.
const resampleQuality = 4

// SourceState is the lifecycle of a Source. It only moves forward.
type SourceState int32

const (
	SourceCreated SourceState = iota
	SourceStarted
	SourceStopped
	SourceEnded
)

func (s SourceState) String() string {
	switch s {
	case SourceCreated:
		return "created"
	case SourceStarted:
		return "started"
	case SourceStopped:
		return "stopped"
	case SourceEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Source plays an asset forward from a start offset. It is single use: once
// stopped or ended it cannot be started again, and its rate is fixed at
// start. The loop flag may change while it plays.
type Source struct {
	id      uint64
	asset   *asset.Asset
	outRate beep.SampleRate

	mu     sync.Mutex // control-side transitions
	rate   float64
	offset float64
	stream beep.Streamer

	loop  atomic.Bool
	state atomic.Int32
}

// NewSource creates an unstarted source at rate 1 that outputs at outRate.
func NewSource(a *asset.Asset, outRate beep.SampleRate) *Source {
	return &Source{asset: a, outRate: outRate, rate: 1}
}

// State returns the lifecycle state.
func (s *Source) State() SourceState {
	return SourceState(s.state.Load())
}

// Ended reports whether the source reached the end of the asset on its own.
func (s *Source) Ended() bool {
	return s.State() == SourceEnded
}

// Offset returns the start offset in seconds.
func (s *Source) Offset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Rate returns the playback rate.
func (s *Source) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// Loop returns the loop flag.
func (s *Source) Loop() bool {
	return s.loop.Load()
}

// SetPlaybackRate sets the rate. Only valid before Start.
func (s *Source) SetPlaybackRate(rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.State(); st != SourceCreated {
		return &SourceError{Op: "set rate", State: st}
	}
	s.rate = rate
	return nil
}

// SetLoop sets the loop flag. Valid until the source stops or ends.
func (s *Source) SetLoop(loop bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.State(); st != SourceCreated && st != SourceStarted {
		return &SourceError{Op: "set loop", State: st}
	}
	s.loop.Store(loop)
	return nil
}

// Start begins playback at offset seconds into the asset. It may be called
// once.
func (s *Source) Start(offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.State(); st != SourceCreated {
		return &SourceError{Op: "start", State: st}
	}

	r := &reader{frames: s.asset.Frames, pos: s.asset.FrameAt(offset), loop: &s.loop}
	ratio := float64(s.asset.Format.SampleRate) / float64(s.outRate) * s.rate
	if ratio == 1 {
		s.stream = r
	} else {
		s.stream = beep.ResampleRatio(resampleQuality, ratio, r)
	}
	s.offset = offset
	s.state.Store(int32(SourceStarted))
	return nil
}

// Stop halts playback. Stopping twice, or after a natural end, is an error.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		st := s.State()
		if st != SourceCreated && st != SourceStarted {
			return &SourceError{Op: "stop", State: st}
		}
		if s.state.CompareAndSwap(int32(st), int32(SourceStopped)) {
			return nil
		}
	}
}

// Stream implements beep.Streamer. It is called from the audio thread.
func (s *Source) Stream(samples [][2]float64) (int, bool) {
	if s.State() != SourceStarted {
		return 0, false
	}
	n, ok := s.stream.Stream(samples)
	if !ok {
		s.state.CompareAndSwap(int32(SourceStarted), int32(SourceEnded))
	}
	return n, ok
}

func (s *Source) Err() error {
	return nil
}

// reader copies asset frames from pos, wrapping to the start when loop is set.
type reader struct {
	frames [][2]float64
	pos    int
	loop   *atomic.Bool
}

func (r *reader) Stream(samples [][2]float64) (int, bool) {
	n := 0
	for n < len(samples) {
		if r.pos >= len(r.frames) {
			if !r.loop.Load() || len(r.frames) == 0 {
				break
			}
			r.pos = 0
		}
		c := copy(samples[n:], r.frames[r.pos:])
		n += c
		r.pos += c
	}
	return n, n > 0
}

func (r *reader) Err() error {
	return nil
}
