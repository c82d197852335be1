// SPDX-License-Identifier: MIT
package audio

import (
	"testing"
	"time"

	"spectra/internal/config"
	"spectra/internal/testutil"

	"github.com/gopxl/beep/v2"
)

// counter yields frames whose left channel is the running index.
type counter struct {
	next  int
	limit int
}

func (c *counter) Stream(samples [][2]float64) (int, bool) {
	if c.next >= c.limit {
		return 0, false
	}
	n := min(len(samples), c.limit-c.next)
	for i := range n {
		samples[i] = [2]float64{float64(c.next), -float64(c.next)}
		c.next++
	}
	return n, true
}

func (c *counter) Err() error { return nil }

func TestRenderInterleaves(t *testing.T) {
	r := newRenderer(&counter{limit: 100}, 4)
	out := make([]float32, 8)

	if got := r.render(out); got != 4 {
		t.Fatalf("render returned %d frames, want 4", got)
	}
	want := []float32{0, 0, 1, -1, 2, -2, 3, -3}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestRenderPadsShortSource(t *testing.T) {
	r := newRenderer(&counter{limit: 3}, 4)
	out := []float32{9, 9, 9, 9, 9, 9, 9, 9}

	if got := r.render(out); got != 3 {
		t.Fatalf("render returned %d frames, want 3", got)
	}
	if out[6] != 0 || out[7] != 0 {
		t.Errorf("missing frame not silenced: %v", out[6:])
	}
	if got := r.render(out); got != 0 {
		t.Errorf("drained source rendered %d frames", got)
	}
}

func TestRenderGrowsForLargerCallback(t *testing.T) {
	r := newRenderer(&counter{limit: 100}, 2)
	out := make([]float32, 16)
	if got := r.render(out); got != 8 {
		t.Errorf("render returned %d frames, want 8", got)
	}
}

// TestRenderHotPath verifies the callback path does not allocate.
func TestRenderHotPath(t *testing.T) {
	r := newRenderer(beep.Silence(-1), 512)
	out := make([]float32, 1024)

	allocs := testing.AllocsPerRun(100, func() {
		r.render(out)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in render hot path, got %.1f", allocs)
	}
}

func TestPumpPullsInRealTime(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	cfg := config.AudioConfig{SampleRate: 8000, FramesPerBuffer: 80, Headless: true}
	sink, err := NewSink(cfg, beep.Silence(-1))
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	p, ok := sink.(*Pump)
	if !ok {
		t.Fatalf("headless sink is %T, want *Pump", sink)
	}
	if p.interval != 10*time.Millisecond {
		t.Errorf("interval = %s, want 10ms", p.interval)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = p.Start()

	deadline := time.Now().Add(2 * time.Second)
	for p.Frames() < 160 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p.Frames() < 160 {
		t.Errorf("pump pulled %d frames, want at least 160", p.Frames())
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestPumpPull(t *testing.T) {
	src := &counter{limit: 1000}
	p := NewPump(config.AudioConfig{SampleRate: 44100, FramesPerBuffer: 64}, src)
	p.Pull()
	p.Pull()
	if src.next != 128 {
		t.Errorf("source advanced %d frames, want 128", src.next)
	}
	if p.Frames() != 128 {
		t.Errorf("Frames() = %d, want 128", p.Frames())
	}
}

func TestNewEngineRejectsNilSource(t *testing.T) {
	if _, err := NewEngine(config.AudioConfig{}, nil); err == nil {
		t.Error("expected error for nil source")
	}
}

// BenchmarkHotPath benchmarks the output callback conversion.
func BenchmarkHotPath(b *testing.B) {
	r := newRenderer(beep.Silence(-1), 512)
	out := make([]float32, 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.render(out)
	}
}
