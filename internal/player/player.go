// SPDX-License-Identifier: MIT
/*
Package player wires the signal graph, transport, equalizer and
visualization pipeline into one object the CLI, terminal UI and control API
drive.

Load ordering:
 1. decode the new file (the old graph keeps playing meanwhile)
 2. stop the current source and cancel its poll
 3. unbind the equalizer from the old filters
 4. tear the old graph down and build the new one
 5. bind the controller and re-apply the equalizer state
 6. autoplay, when configured

Loads are serialized; every other call is safe to make concurrently.
*/
package player

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"spectra/internal/analysis"
	"spectra/internal/asset"
	"spectra/internal/audio"
	"spectra/internal/config"
	"spectra/internal/equalizer"
	"spectra/internal/graph"
	"spectra/internal/log"
	"spectra/internal/playback"
	"spectra/internal/transport"
	"spectra/internal/transport/udp"
	"spectra/internal/visual"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gopxl/beep/v2"
)

var logger = log.Named("player")

// Snapshot is the full observable state.
type Snapshot struct {
	Loaded        bool                 `json:"loaded"`
	Asset         *asset.Info          `json:"asset,omitempty"`
	Playback      playback.State       `json:"playback"`
	Effects       equalizer.State      `json:"effects"`
	Bands         []equalizer.Band     `json:"bands"`
	Quality       graph.Quality        `json:"quality"`
	Visualization visual.Config        `json:"visualization"`
	Levels        []analysis.BandLevel `json:"levels,omitempty"`
}

// Player owns every component for one output.
type Player struct {
	cfg config.Config

	manager *graph.Manager
	bank    *equalizer.Bank
	control *playback.Controller
	sampler *analysis.Sampler
	loop    *visual.Loop

	// udpSampler feeds the publisher goroutine; the render loop owns sampler.
	udpSampler *analysis.Sampler

	ws         *transport.WebSocketTransport
	transports transport.Multi
	publisher  *udp.Publisher
	sink       audio.Sink

	loadMu sync.Mutex

	meterMu      sync.Mutex
	meterSampler *analysis.Sampler
	meter        *analysis.BandMeter

	runMu  sync.Mutex
	cancel context.CancelFunc
}

// Option customizes a Player.
type Option func(*options)

type options struct {
	decode graph.DecodeFunc
	sink   audio.Sink
}

// WithDecoder replaces asset.Decode.
func WithDecoder(fn graph.DecodeFunc) Option {
	return func(o *options) { o.decode = fn }
}

// WithSink replaces the sink built from the audio config.
func WithSink(s audio.Sink) Option {
	return func(o *options) { o.sink = s }
}

// New builds a stopped player from cfg. PortAudio must be initialized unless
// cfg.Audio.Headless is set or a sink is supplied.
func New(cfg config.Config, opts ...Option) (*Player, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	quality, err := graph.ParseQuality(cfg.Graph.Quality)
	if err != nil {
		return nil, err
	}
	window, err := graph.ParseWindowFunc(cfg.Graph.Window)
	if err != nil {
		return nil, err
	}
	visType, err := visual.ParseType(cfg.Visual.Type)
	if err != nil {
		return nil, err
	}

	bandsHz := make([]float64, len(cfg.Graph.Bands))
	bandsQ := make([]float64, len(cfg.Graph.Bands))
	for i, b := range cfg.Graph.Bands {
		bandsHz[i], bandsQ[i] = b.FrequencyHz, b.Q
	}
	rate := beep.SampleRate(cfg.Audio.SampleRate)

	var managerOpts []graph.ManagerOption
	if o.decode != nil {
		managerOpts = append(managerOpts, graph.WithDecoder(o.decode))
	}
	manager := graph.NewManager(rate, graph.Chain(cfg.Graph.BassHz, cfg.Graph.TrebleHz, bandsHz, bandsQ), quality,
		graph.AnalyzerOptions{
			Window:      window,
			MinDecibels: cfg.Graph.MinDecibels,
			MaxDecibels: cfg.Graph.MaxDecibels,
			Smoothing:   cfg.Graph.Smoothing,
		}, managerOpts...)

	p := &Player{
		cfg:     cfg,
		manager: manager,
		bank:    equalizer.New(bandsHz),
		control: playback.NewController(rate, playback.WithPollInterval(cfg.Playback.PollInterval)),
		ws:      transport.NewWebSocketTransport(),
		meter:   analysis.NewBandMeter(analysis.DefaultBands()),
	}
	p.control.SetVolume(cfg.Playback.Volume)
	p.sampler = analysis.NewSampler(p.provider, quality.BinCount())
	p.meterSampler = analysis.NewSampler(p.provider, quality.BinCount())

	p.transports = transport.Multi{p.ws}
	if cfg.Debug {
		p.transports = append(p.transports, transport.NewLoggingTransport(cfg.Visual.FrameRate*5))
	}
	p.loop = visual.NewLoop(p.sampler, p.transports, visual.Config{Type: visType, BinCount: quality.BinCount()}, cfg.Visual.FrameRate)

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			p.ws.Close()
			return nil, err
		}
		p.udpSampler = analysis.NewSampler(p.provider, quality.BinCount())
		p.publisher, err = udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, p.udpSampler.SampleInto, graph.QualityHigh.BinCount())
		if err != nil {
			sender.Close()
			p.ws.Close()
			return nil, err
		}
	}

	p.sink = o.sink
	if p.sink == nil {
		if p.sink, err = audio.NewSink(cfg.Audio, p.manager.Output()); err != nil {
			p.closeTransports()
			return nil, fmt.Errorf("create output: %w", err)
		}
	}
	return p, nil
}

// provider returns the live analyzer. It must not return a typed nil.
func (p *Player) provider() analysis.Provider {
	g := p.manager.Graph()
	if g == nil {
		return nil
	}
	return g.Analyzer()
}

// Start opens the output and launches the render loop and publisher. They
// stop on Close or when ctx is done.
func (p *Player) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.cancel != nil {
		return nil
	}
	if err := p.sink.Start(); err != nil {
		return err
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.loop.Start(ctx)
	if p.publisher != nil {
		p.publisher.Start()
	}
	return nil
}

// Close stops every goroutine, discards the graph and closes the output and
// transports.
func (p *Player) Close() error {
	p.runMu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.runMu.Unlock()

	p.loop.Stop()
	p.loadMu.Lock()
	p.control.Close()
	p.bank.Detach()
	p.manager.Discard()
	p.loadMu.Unlock()

	return errors.Join(p.sink.Close(), p.closeTransports())
}

func (p *Player) closeTransports() error {
	var errs []error
	if p.publisher != nil {
		errs = append(errs, p.publisher.Close())
	}
	errs = append(errs, p.transports.Close())
	return errors.Join(errs...)
}

// Load decodes data and installs it. A failed decode leaves the current
// asset and playback untouched.
func (p *Player) Load(ctx context.Context, data []byte, mimeType, name string) (asset.Info, error) {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	a, err := p.manager.Decode(ctx, data, mimeType, name)
	if err != nil {
		return asset.Info{}, err
	}
	if err := ctx.Err(); err != nil {
		return asset.Info{}, err
	}

	// Build before unbinding so a failure leaves the current file bound.
	g, err := p.manager.Prepare()
	if err != nil {
		return asset.Info{}, fmt.Errorf("install %q: %w", name, err)
	}

	p.control.Unbind()
	p.bank.Detach()
	p.manager.Commit(a, g)
	p.control.Bind(a, g)
	p.bank.Attach(g)
	logger.Infof("loaded %q (%s, %.1fs at %d Hz)", a.Name, a.Container, a.Seconds(), a.Format.SampleRate)

	if p.cfg.Playback.Autoplay {
		if err := p.control.Play(); err != nil {
			return a.Info(), err
		}
	}
	return a.Info(), nil
}

// LoadFile reads path and loads it. The declared MIME type comes from the
// extension, falling back to content sniffing.
func (p *Player) LoadFile(ctx context.Context, path string) (asset.Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return asset.Info{}, fmt.Errorf("read %s: %w", path, err)
	}
	return p.Load(ctx, data, MIMEType(path, data), filepath.Base(path))
}

// MIMEType guesses the declared type of a file from its extension, or from
// its content when the extension is unknown or generic.
func MIMEType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" && t != "application/octet-stream" {
		return t
	}
	return mimetype.Detect(data).String()
}

// Transport returns the playback controller.
func (p *Player) Transport() *playback.Controller {
	return p.control
}

// Effects returns the equalizer.
func (p *Player) Effects() *equalizer.Bank {
	return p.bank
}

// Output is the streamer the sink pulls.
func (p *Player) Output() beep.Streamer {
	return p.manager.Output()
}

// Quality returns the analyzer quality.
func (p *Player) Quality() graph.Quality {
	return p.manager.Quality()
}

// SetQuality rebuilds the analyzer and resizes every spectrum consumer.
func (p *Player) SetQuality(q graph.Quality) error {
	if err := p.manager.SetQuality(q); err != nil {
		return err
	}
	n := q.BinCount()
	p.sampler.SetBinCount(n)
	p.meterSampler.SetBinCount(n)
	if p.udpSampler != nil {
		p.udpSampler.SetBinCount(n)
	}
	p.loop.SetBinCount(n)
	logger.Debugf("quality %s: fft %d, %d bins", q, q.FFTSize(), n)
	return nil
}

// Visualization returns the render settings.
func (p *Player) Visualization() visual.Config {
	return p.loop.Config()
}

// SetVisualization switches the visualization type.
func (p *Player) SetVisualization(t visual.Type) {
	p.loop.SetType(t)
}

// NextVisualization cycles to the next type and returns it.
func (p *Player) NextVisualization() visual.Type {
	t := p.loop.Config().Type.Next()
	p.loop.SetType(t)
	return t
}

// Step renders one frame outside the render loop.
func (p *Player) Step(elapsed float64) *visual.RenderState {
	return p.loop.Step(elapsed)
}

// Levels returns the band meter reading for the current spectrum. The
// result is a copy.
func (p *Player) Levels() []analysis.BandLevel {
	p.meterMu.Lock()
	defer p.meterMu.Unlock()
	levels := p.meter.Measure(p.meterSampler.Sample(), p.meterSampler.Frequency)
	return append([]analysis.BandLevel(nil), levels...)
}

// RenderHandler serves the render-state websocket.
func (p *Player) RenderHandler() http.Handler {
	return p.ws.Handler()
}

// Snapshot collects the state of every component.
func (p *Player) Snapshot() Snapshot {
	s := Snapshot{
		Playback:      p.control.State(),
		Effects:       p.bank.State(),
		Bands:         p.bank.Bands(),
		Quality:       p.manager.Quality(),
		Visualization: p.loop.Config(),
	}
	if a := p.manager.Asset(); a != nil {
		info := a.Info()
		s.Loaded = true
		s.Asset = &info
		s.Levels = p.Levels()
	}
	return s
}
