package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff")).
			MarginBottom(1)

	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff00ff")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Italic(true).MarginTop(1)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaa00"))

	statusOK       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusOverflow = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444")).Blink(true)

	fillLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	fillMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	fillHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// FillBar renders how full the station is; colour escalates toward capacity.
func FillBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction >= 0.9:
		return fillHigh.Render(bar)
	case fraction >= 0.6:
		return fillMid.Render(bar)
	}
	return fillLow.Render(bar)
}
