// SPDX-License-Identifier: MIT

// Package tui holds the bubbletea screens: the transport view shown while a
// file plays and the output device picker.
package tui

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C6C6C"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))
)

// formatTime renders seconds as m:ss.
func formatTime(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// meter draws a horizontal bar of width cells filled to frac.
func meter(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(math.Round(frac * float64(width)))
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return string(bar)
}

// flag renders an on/off indicator.
func flag(name string, on bool) string {
	if on {
		return highlightStyle.Render(name)
	}
	return dimStyle.Render(name)
}
