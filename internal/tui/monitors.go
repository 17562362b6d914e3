// SPDX-License-Identifier: MIT
/*
Package tui renders a live dashboard over the monitor set: one row per
monitor with tempo, confidence, level, and status, plus keys for the
lifecycle operations (spawn, remove, pause, reset). The dashboard only
reads snapshots; the run loop keeps feeding detectors underneath it.
*/
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tempo/internal/detect"
	"tempo/internal/monitor"
)

// refreshInterval is how often the dashboard re-reads monitor snapshots.
const refreshInterval = 250 * time.Millisecond

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

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// MonitorModel is the Bubble Tea model for the monitor dashboard.
type MonitorModel struct {
	manager       *monitor.Manager
	entries       []monitor.Entry
	selectedIndex int
	viewport      viewport.Model
	ready         bool
}

// NewMonitorModel creates a dashboard over the given manager.
func NewMonitorModel(manager *monitor.Manager) MonitorModel {
	return MonitorModel{
		manager: manager,
		entries: manager.List(),
	}
}

// Init starts the refresh ticker.
func (m MonitorModel) Init() tea.Cmd {
	return tick()
}

// Update handles input and refresh ticks.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.viewport.SetContent(m.renderMonitors())

	case tickMsg:
		m.entries = m.manager.List()
		if m.selectedIndex >= len(m.entries) && m.selectedIndex > 0 {
			m.selectedIndex = len(m.entries) - 1
		}
		if m.ready {
			m.viewport.SetContent(m.renderMonitors())
		}
		cmds = append(cmds, tick())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if m.selectedIndex < len(m.entries)-1 {
				m.selectedIndex++
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("a"))):
			m.manager.Spawn("")
			m.entries = m.manager.List()

		case key.Matches(msg, key.NewBinding(key.WithKeys("d"))):
			if e, ok := m.selected(); ok {
				m.manager.Remove(e.ID)
				m.entries = m.manager.List()
				if m.selectedIndex >= len(m.entries) && m.selectedIndex > 0 {
					m.selectedIndex--
				}
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys(" ", "p"))):
			if e, ok := m.selected(); ok {
				m.manager.SetActive(e.ID, !e.Active)
				m.entries = m.manager.List()
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("r"))):
			if e, ok := m.selected(); ok {
				m.manager.Reset(e.ID)
				m.entries = m.manager.List()
			}
		}
		if m.ready {
			m.viewport.SetContent(m.renderMonitors())
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the dashboard.
func (m MonitorModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render("Tempo Monitors")
	help := infoStyle.Render("↑/↓: Navigate • a: Add • d: Delete • space: Pause • r: Reset • q: Quit")

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m MonitorModel) selected() (monitor.Entry, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.entries) {
		return monitor.Entry{}, false
	}
	return m.entries[m.selectedIndex], true
}

func (m MonitorModel) renderMonitors() string {
	if len(m.entries) == 0 {
		return "No monitors. Press 'a' to add one."
	}

	var sb strings.Builder
	for i, e := range m.entries {
		sb.WriteString(m.renderEntry(e, i == m.selectedIndex))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m MonitorModel) renderEntry(e monitor.Entry, selected bool) string {
	state := "active"
	if !e.Active {
		state = "paused"
	}

	line := fmt.Sprintf("[%d] %s (%s)\n", e.ID, e.Name, state)
	line += fmt.Sprintf("    %s", statusLabel(e.Result.Status))
	if e.Result.Status == detect.StatusDetecting && e.Result.BPM > 0 {
		line += fmt.Sprintf(" • %.1f BPM • confidence %.2f", e.Result.BPM, e.Result.Confidence)
	}
	line += fmt.Sprintf("\n    level %s %.2f\n", levelBar(e.Result.SignalLevel), e.Result.SignalLevel)

	switch {
	case selected:
		line = highlightStyle.Render(line)
	case e.Result.Status == detect.StatusError:
		line = errorStyle.Render(line)
	case !e.Active:
		line = pausedStyle.Render(line)
	}
	return line
}

func statusLabel(s detect.Status) string {
	switch s {
	case detect.StatusInitializing:
		return "initializing"
	case detect.StatusDetecting:
		return "detecting"
	case detect.StatusLowSignal:
		return "low signal"
	case detect.StatusNoSignal:
		return "no signal"
	case detect.StatusCalibrating:
		return "calibrating"
	case detect.StatusError:
		return "ERROR"
	default:
		return "unknown"
	}
}

// levelBar renders a 10-slot meter for a 0..1 level.
func levelBar(level float64) string {
	const slots = 10
	filled := int(level*slots + 0.5)
	if filled > slots {
		filled = slots
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", slots-filled) + "]"
}

// StartMonitorUI launches the dashboard and blocks until the user quits.
func StartMonitorUI(manager *monitor.Manager) error {
	p := tea.NewProgram(
		NewMonitorModel(manager),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
