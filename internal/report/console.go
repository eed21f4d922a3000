package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/liftsim/internal/sim"
)

var (
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF88"))
	overflowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")).Bold(true)
)

// Console writes the status line for every segment. Inline mode rewrites a
// single terminal line with a carriage return.
type Console struct {
	w      io.Writer
	inline bool
	color  bool
}

func NewConsole(w io.Writer, inline, color bool) *Console {
	return &Console{w: w, inline: inline, color: color}
}

func (c *Console) Report(_ context.Context, r sim.Report) {
	line := FormatStatus(r)
	if c.color {
		status := Status(r)
		style := okStyle
		if status == StatusOverflow {
			style = overflowStyle
		}
		line = strings.TrimSuffix(line, status) + style.Render(status)
	}

	if c.inline {
		fmt.Fprintf(c.w, "%s%s\r", line, strings.Repeat(" ", 8))
		return
	}
	fmt.Fprintln(c.w, line)
}
