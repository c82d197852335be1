// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"spectra/internal/equalizer"
	"spectra/internal/player"
	"spectra/internal/playback"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Step sizes for the keyboard controls.
const (
	SeekStep   = 5.0
	VolumeStep = 0.05
	GainStep   = 1.0

	refreshInterval = 100 * time.Millisecond
	barWidth        = 40
)

type keyMap struct {
	Toggle       key.Binding
	Back         key.Binding
	Forward      key.Binding
	Reverse      key.Binding
	Loop         key.Binding
	Shuffle      key.Binding
	Slower       key.Binding
	Faster       key.Binding
	VolumeUp     key.Binding
	VolumeDown   key.Binding
	Mute         key.Binding
	BassDown     key.Binding
	BassUp       key.Binding
	TrebleDown   key.Binding
	TrebleUp     key.Binding
	Band         key.Binding
	BandUp       key.Binding
	BandDown     key.Binding
	Presentation key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle:       key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		Back:         key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5s")),
		Forward:      key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5s")),
		Reverse:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reverse")),
		Loop:         key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "loop")),
		Shuffle:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		Slower:       key.NewBinding(key.WithKeys("["), key.WithHelp("[", "slower")),
		Faster:       key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "faster")),
		VolumeUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		VolumeDown:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "volume down")),
		Mute:         key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		BassDown:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b/B", "bass -/+")),
		BassUp:       key.NewBinding(key.WithKeys("B")),
		TrebleDown:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t/T", "treble -/+")),
		TrebleUp:     key.NewBinding(key.WithKeys("T")),
		Band:         key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "select band")),
		BandUp:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/↓", "band gain")),
		BandDown:     key.NewBinding(key.WithKeys("down", "j")),
		Presentation: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "visualization")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Back, k.Forward, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Back, k.Forward, k.Reverse, k.Loop, k.Shuffle},
		{k.Slower, k.Faster, k.VolumeUp, k.VolumeDown, k.Mute},
		{k.BassDown, k.TrebleDown, k.Band, k.BandUp},
		{k.Presentation, k.Help, k.Quit},
	}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// PlayerModel is the transport screen.
type PlayerModel struct {
	player *player.Player
	keys   keyMap
	help   help.Model

	band   int
	snap   player.Snapshot
	status string
	err    error
}

// NewPlayerModel creates the transport screen for p.
func NewPlayerModel(p *player.Player) PlayerModel {
	return PlayerModel{
		player: p,
		keys:   defaultKeyMap(),
		help:   help.New(),
		snap:   p.Snapshot(),
	}
}

func (m PlayerModel) Init() tea.Cmd {
	return tick()
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tickMsg:
		m.snap = m.player.Snapshot()
		return m, tick()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.err, m.status = nil, ""
		m.handleKey(msg)
		m.snap = m.player.Snapshot()
	}
	return m, nil
}

// handleKey applies one control. Errors are shown in the status line.
func (m *PlayerModel) handleKey(msg tea.KeyMsg) {
	tr := m.player.Transport()
	fx := m.player.Effects()
	st := tr.State()

	var err error
	switch {
	case key.Matches(msg, m.keys.Toggle):
		err = tr.Toggle()
	case key.Matches(msg, m.keys.Back):
		err = tr.SeekBy(-SeekStep)
	case key.Matches(msg, m.keys.Forward):
		err = tr.SeekBy(SeekStep)
	case key.Matches(msg, m.keys.Reverse):
		_, err = tr.ToggleReverse()
	case key.Matches(msg, m.keys.Loop):
		_, err = tr.ToggleLoop()
	case key.Matches(msg, m.keys.Shuffle):
		tr.ToggleShuffle()
	case key.Matches(msg, m.keys.Slower):
		_, err = tr.SetRate(roundTenth(st.Rate - playback.RateStep))
	case key.Matches(msg, m.keys.Faster):
		_, err = tr.SetRate(roundTenth(st.Rate + playback.RateStep))
	case key.Matches(msg, m.keys.VolumeUp):
		tr.SetVolume(st.Volume + VolumeStep)
	case key.Matches(msg, m.keys.VolumeDown):
		tr.SetVolume(st.Volume - VolumeStep)
	case key.Matches(msg, m.keys.Mute):
		tr.ToggleMute()
	case key.Matches(msg, m.keys.BassDown):
		fx.SetBass(fx.State().BassDB - GainStep)
	case key.Matches(msg, m.keys.BassUp):
		fx.SetBass(fx.State().BassDB + GainStep)
	case key.Matches(msg, m.keys.TrebleDown):
		fx.SetTreble(fx.State().TrebleDB - GainStep)
	case key.Matches(msg, m.keys.TrebleUp):
		fx.SetTreble(fx.State().TrebleDB + GainStep)
	case key.Matches(msg, m.keys.Band):
		if i := int(msg.String()[0] - '1'); i < fx.BandCount() {
			m.band = i
		}
	case key.Matches(msg, m.keys.BandUp):
		err = m.nudgeBand(fx, GainStep)
	case key.Matches(msg, m.keys.BandDown):
		err = m.nudgeBand(fx, -GainStep)
	case key.Matches(msg, m.keys.Presentation):
		m.status = "visualization: " + string(m.player.NextVisualization())
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	if errors.Is(err, playback.ErrGraphNotReady) {
		m.status = "no file loaded"
		return
	}
	m.err = err
}

func (m *PlayerModel) nudgeBand(fx *equalizer.Bank, delta float64) error {
	bands := fx.State().BandsDB
	if m.band >= len(bands) {
		return equalizer.ErrInvalidBand
	}
	_, err := fx.SetBand(m.band, bands[m.band]+delta)
	return err
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func (m PlayerModel) View() string {
	var sb strings.Builder
	s := m.snap
	pb := s.Playback

	sb.WriteString(titleStyle.Render("spectra"))
	sb.WriteString("\n\n")

	if s.Asset == nil {
		sb.WriteString(dimStyle.Render("No file loaded"))
	} else {
		name := s.Asset.Name
		if s.Asset.Meta.Title != "" {
			name = s.Asset.Meta.Title
			if s.Asset.Meta.Artist != "" {
				name = s.Asset.Meta.Artist + " - " + name
			}
		}
		state := "⏸"
		if pb.Playing {
			state = "▶"
		}
		fmt.Fprintf(&sb, "%s %s\n", state, infoStyle.Render(name))
		frac := 0.0
		if pb.Duration > 0 {
			frac = pb.Position / pb.Duration
		}
		fmt.Fprintf(&sb, "%s %s %s", formatTime(pb.Position), meter(frac, barWidth), formatTime(pb.Duration))
	}
	sb.WriteString("\n\n")

	vol := fmt.Sprintf("vol %3.0f%%", pb.Volume*100)
	if pb.Muted {
		vol = "muted"
	}
	fmt.Fprintf(&sb, "rate %.1fx  %s  %s  %s  %s  %s\n\n",
		pb.Rate, vol,
		flag("reverse", pb.Reversed), flag("loop", pb.Looping), flag("shuffle", pb.ShuffleRequested),
		dimStyle.Render(string(s.Visualization.Type)+"/"+string(s.Quality)))

	fmt.Fprintf(&sb, "bass %+5.1f dB  treble %+5.1f dB\n", s.Effects.BassDB, s.Effects.TrebleDB)
	for i, b := range s.Bands {
		cell := fmt.Sprintf("%6s %+5.1f", b.Label, b.GainDB)
		if i == m.band {
			cell = highlightStyle.Render(cell)
		}
		sb.WriteString(cell)
		sb.WriteString("  ")
	}
	sb.WriteString("\n\n")

	for _, l := range s.Levels {
		fmt.Fprintf(&sb, "%-8s %s\n", l.Name, meter(l.Level, barWidth/2))
	}
	if len(s.Levels) > 0 {
		sb.WriteString("\n")
	}

	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n")
	case m.status != "":
		sb.WriteString(dimStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// RunPlayer blocks on the transport screen until the user quits.
func RunPlayer(p *player.Player) error {
	_, err := tea.NewProgram(NewPlayerModel(p), tea.WithAltScreen()).Run()
	return err
}
