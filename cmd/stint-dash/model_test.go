package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"stint/pkg/eventlog"
	"stint/pkg/protocol"
)

func testModel() Model {
	return Model{theme: DefaultTheme()}
}

func TestUpdate_QuitKeys(t *testing.T) {
	m := testModel()
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	}
	for _, key := range keys {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("key %q produced no command", key.String())
		}
		if msg := cmd(); msg != tea.Quit() {
			t.Errorf("key %q = %v, want quit", key.String(), msg)
		}
	}
}

func TestUpdate_SnapshotMsgReplacesState(t *testing.T) {
	m := testModel()

	next, _ := m.Update(snapshotMsg{snap: snapshot{DaemonOnline: true}})
	m = next.(Model)
	if !m.snap.DaemonOnline {
		t.Error("snapshot not stored")
	}

	next, _ = m.Update(snapshotMsg{err: errors.New("db busy")})
	m = next.(Model)
	if m.err == nil {
		t.Error("error not stored")
	}
}

func TestUpdate_WindowSize(t *testing.T) {
	m := testModel()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
}

func TestView_EmptySnapshot(t *testing.T) {
	out := testModel().View()
	for _, want := range []string{"daemon offline", "Agents (0)", "Active efforts (0)", "Open sessions (0)", "q quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_PopulatedSnapshot(t *testing.T) {
	m := testModel()
	m.snap = snapshot{
		DaemonOnline: true,
		Agents: []protocol.Agent{
			{ID: "agent-1", Status: protocol.AgentWorking, EffortID: 3},
		},
		ActiveEfforts: []effortLine{
			{ID: 3, TaskID: "/repo/a", Skill: "build", Ordinal: 2, Phase: "red"},
		},
		OpenSessions: []sessionLine{
			{ID: 7, EffortID: 3, Heartbeats: 12, ContextUsage: 0.4, Stale: true},
		},
		Events: []eventlog.Event{
			{Type: "session_started", CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		},
	}

	out := m.View()
	for _, want := range []string{
		"daemon online", "agent-1", "working", "build/2", "[red]",
		"STALE", "session_started", "12:00:00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestStatusColor(t *testing.T) {
	m := testModel()
	cases := map[string]string{
		"working":   string(m.theme.Primary),
		"done":      string(m.theme.Success),
		"attention": string(m.theme.Warning),
		"error":     string(m.theme.Error),
		"idle":      string(m.theme.Muted),
		"unknown":   string(m.theme.Muted),
	}
	for status, want := range cases {
		if got := string(m.statusColor(status)); got != want {
			t.Errorf("statusColor(%q) = %q, want %q", status, got, want)
		}
	}
}
