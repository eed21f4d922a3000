package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/report"
	"github.com/san-kum/liftsim/internal/sim"
)

const (
	historyCapacity = 600
	barWidth        = 30
	outflowStep     = 10.0
)

// Controller is the part of the control store the dashboard drives.
type Controller interface {
	Snapshot() control.Snapshot
	Update(f control.Field, fn func(old float64) float64) error
}

type ReportMsg sim.Report

type feedClosedMsg struct{}

type Model struct {
	feed     <-chan sim.Report
	store    Controller
	last     *sim.Report
	history  []float64
	selected control.Field
	notice   string
}

func NewModel(feed <-chan sim.Report, store Controller) Model {
	return Model{
		feed:     feed,
		store:    store,
		history:  make([]float64, 0, historyCapacity),
		selected: control.ActiveTanks,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForReport(m.feed)
}

func waitForReport(feed <-chan sim.Report) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-feed
		if !ok {
			return feedClosedMsg{}
		}
		return ReportMsg(r)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.selected = (m.selected + 1) % 3
		case "up", "k":
			m.adjust(1)
		case "down", "j":
			m.adjust(-1)
		case "p":
			m.selected = control.PumpOn
			m.adjust(1)
		}
	case ReportMsg:
		r := sim.Report(msg)
		m.last = &r
		m.history = append(m.history, r.State.Volume)
		if len(m.history) > historyCapacity {
			m.history = m.history[1:]
		}
		return m, waitForReport(m.feed)
	case feedClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

// adjust nudges the selected control. The pump toggles regardless of dir.
func (m *Model) adjust(dir float64) {
	var v float64
	err := m.store.Update(m.selected, func(old float64) float64 {
		switch m.selected {
		case control.ActiveTanks:
			v = max(old+dir, 0)
		case control.PumpOn:
			v = 1 - old
		case control.FabOutflow:
			v = max(old+dir*outflowStep, 0)
		}
		return v
	})
	if err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = fmt.Sprintf("%s set to %g", m.selected, v)
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("LIFT STATION") + "\n")

	if m.last == nil {
		s.WriteString(labelStyle.Render("waiting for first segment...") + "\n")
	} else {
		r := *m.last
		status := statusOK.Render(report.StatusOK)
		if report.Status(r) == report.StatusOverflow {
			status = statusOverflow.Render(report.StatusOverflow)
		}
		fraction := 0.0
		if r.Capacity > 0 {
			fraction = r.State.Volume / r.Capacity
		}

		s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.0f s | %.2f min", r.State.Seconds(), r.State.Elapsed)) + "\n")
		s.WriteString(labelStyle.Render("Volume") + valueStyle.Render(fmt.Sprintf("%.0f / %.0f L", r.State.Volume, r.Capacity)) + "\n")
		s.WriteString(labelStyle.Render("Fill") + FillBar(fraction, barWidth) + fmt.Sprintf(" %5.1f%%", fraction*100) + "\n")
		s.WriteString(labelStyle.Render("Rates") + valueStyle.Render(fmt.Sprintf("in %.0f | out %.0f L/min", r.Inflow, r.Outflow)) + "\n")
		s.WriteString(labelStyle.Render("Status") + status + "\n")

		if len(m.history) > 1 {
			chart := asciigraph.Plot(m.history, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption("Volume (L)"))
			s.WriteString(graphStyle.Render(chart) + "\n")
		}
	}

	s.WriteString("\nCONTROLS\n")
	c := m.store.Snapshot().Controls
	values := [...]float64{c.ActiveTanks, c.PumpOn, c.FabOutflow}
	for f := control.ActiveTanks; f <= control.FabOutflow; f++ {
		line := fmt.Sprintf("%-14s %g", f, values[f])
		if f == m.selected {
			s.WriteString(activeStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Width(0).Render(line) + "\n")
		}
	}
	if m.notice != "" {
		s.WriteString(noticeStyle.Render(m.notice) + "\n")
	}
	s.WriteString(helpStyle.Render("Tab:Select ↑↓:Adjust P:Pump Q:Quit"))

	return lipgloss.JoinVertical(lipgloss.Left, panelStyle.Render(s.String()))
}

// Run drives the dashboard until the user quits, the feed closes or ctx is
// cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
