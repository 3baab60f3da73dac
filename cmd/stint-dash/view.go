package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderAgents())
	b.WriteString("\n")
	b.WriteString(m.renderEfforts())
	b.WriteString("\n")
	b.WriteString(m.renderSessions())
	b.WriteString("\n")
	b.WriteString(m.renderEvents())
	b.WriteString("\n")

	footer := lipgloss.NewStyle().Foreground(m.theme.Muted).
		Render("q quit · r refresh")
	b.WriteString(footer)

	return b.String()
}

func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary).
		Render("stint")

	var daemon string
	if m.snap.DaemonOnline {
		daemon = lipgloss.NewStyle().Foreground(m.theme.Success).Render("● daemon online")
	} else {
		daemon = lipgloss.NewStyle().Foreground(m.theme.Error).Render("○ daemon offline")
	}

	header := title + "  " + daemon
	if m.err != nil {
		header += "  " + lipgloss.NewStyle().Foreground(m.theme.Error).
			Render(fmt.Sprintf("error: %v", m.err))
	}
	return header
}

func (m Model) sectionTitle(s string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(m.theme.Secondary).Render(s)
}

func (m Model) muted(s string) string {
	return lipgloss.NewStyle().Foreground(m.theme.Muted).Render(s)
}

func (m Model) renderAgents() string {
	var b strings.Builder
	b.WriteString(m.sectionTitle(fmt.Sprintf("Agents (%d)", len(m.snap.Agents))))
	b.WriteString("\n")

	if len(m.snap.Agents) == 0 {
		b.WriteString(m.muted("  none registered") + "\n")
		return b.String()
	}

	for _, a := range m.snap.Agents {
		status := string(a.Status)
		style := lipgloss.NewStyle().Foreground(m.statusColor(status))
		line := fmt.Sprintf("  %-20s %s", a.ID, style.Render(status))
		if a.EffortID != 0 {
			line += m.muted(fmt.Sprintf("  effort %d", a.EffortID))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// statusColor maps an agent status to its display color.
func (m Model) statusColor(status string) lipgloss.Color {
	switch status {
	case "working":
		return m.theme.Primary
	case "done":
		return m.theme.Success
	case "attention":
		return m.theme.Warning
	case "error":
		return m.theme.Error
	default: // idle
		return m.theme.Muted
	}
}

func (m Model) renderEfforts() string {
	var b strings.Builder
	b.WriteString(m.sectionTitle(fmt.Sprintf("Active efforts (%d)", len(m.snap.ActiveEfforts))))
	b.WriteString("\n")

	if len(m.snap.ActiveEfforts) == 0 {
		b.WriteString(m.muted("  none") + "\n")
		return b.String()
	}

	for _, e := range m.snap.ActiveEfforts {
		line := fmt.Sprintf("  #%-4d %s/%d  %s", e.ID, e.Skill, e.Ordinal, e.TaskID)
		if e.Phase != "" {
			line += m.muted("  [" + e.Phase + "]")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(m.sectionTitle(fmt.Sprintf("Open sessions (%d)", len(m.snap.OpenSessions))))
	b.WriteString("\n")

	if len(m.snap.OpenSessions) == 0 {
		b.WriteString(m.muted("  none") + "\n")
		return b.String()
	}

	for _, s := range m.snap.OpenSessions {
		line := fmt.Sprintf("  #%-4d effort %-4d hb %-4d ctx %3.0f%%",
			s.ID, s.EffortID, s.Heartbeats, s.ContextUsage*100)
		if s.Stale {
			line += "  " + lipgloss.NewStyle().Foreground(m.theme.Warning).Render("STALE")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) renderEvents() string {
	var b strings.Builder
	b.WriteString(m.sectionTitle("Recent events"))
	b.WriteString("\n")

	if len(m.snap.Events) == 0 {
		b.WriteString(m.muted("  none") + "\n")
		return b.String()
	}

	for _, e := range m.snap.Events {
		ts := m.muted(e.CreatedAt.Format("15:04:05"))
		b.WriteString(fmt.Sprintf("  %s  %s\n", ts, e.Type))
	}
	return b.String()
}
