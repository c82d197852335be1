// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"spectra/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScreenType defines which screen is currently active.
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfirmScreen
)

// DevicePicker lists output devices and lets the user pick one.
type DevicePicker struct {
	fetch         func() ([]audio.Device, error)
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType
	chosen        *audio.Device
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDevicePicker creates a picker over audio.OutputDevices.
func NewDevicePicker() DevicePicker {
	return DevicePicker{fetch: audio.OutputDevices, activeScreen: ListScreen}
}

// Init fetches the device list.
func (m DevicePicker) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Selected returns the confirmed device, or nil when the user quit.
func (m DevicePicker) Selected() *audio.Device {
	return m.chosen
}

func (m DevicePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		m.selectedIndex = 0
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					m.activeScreen = ConfirmScreen
				}
			}
		case ConfirmScreen:
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.activeScreen = ListScreen
			case key.Matches(msg, key.NewBinding(key.WithKeys("enter", "y"))):
				d := m.devices[m.selectedIndex]
				m.chosen = &d
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DevicePicker) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfirmScreen {
		m.viewport.SetContent(m.renderConfirm())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

func (m DevicePicker) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Output Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	} else {
		title = titleStyle.Render("Use This Device?")
		help = infoStyle.Render("Enter/y: Confirm • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DevicePicker) renderDevices() string {
	if len(m.devices) == 0 {
		return "No output devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		info := fmt.Sprintf("[%d] %s", d.ID, d.Name)
		if d.HostAPI != "" {
			info += " (" + d.HostAPI + ")"
		}
		info += fmt.Sprintf("\n    Output channels: %d, default rate: %.0f Hz\n", d.MaxOutputChannels, d.DefaultSampleRate)

		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DevicePicker) renderConfirm() string {
	d := m.devices[m.selectedIndex]
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", highlightStyle.Render(d.Name))
	fmt.Fprintf(&sb, "  Device ID:       %d\n", d.ID)
	fmt.Fprintf(&sb, "  Sample rate:     %.0f Hz\n", d.DefaultSampleRate)
	fmt.Fprintf(&sb, "  Latency:         %s low, %s high\n", d.LowLatency, d.HighLatency)
	fmt.Fprintf(&sb, "\nSet audio.output_device: %d in config.yaml to keep this choice.\n", d.ID)
	return sb.String()
}

// PickDevice runs the picker and returns the chosen device, or nil.
func PickDevice() (*audio.Device, error) {
	final, err := tea.NewProgram(NewDevicePicker(), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	return final.(DevicePicker).Selected(), nil
}
