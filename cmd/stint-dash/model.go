package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// tickMsg is sent by Bubble Tea on every tick interval.
// Used to trigger periodic data refresh as a fallback when the file
// watcher is unavailable.
type tickMsg time.Time

// snapshotMsg carries one fetched display snapshot.
type snapshotMsg struct {
	snap snapshot
	err  error
}

// tickCmd returns a command that sends a tickMsg after 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchCmd returns a tea.Cmd that fetches a fresh snapshot.
func fetchCmd(socketPath, dbPath string) tea.Cmd {
	return func() tea.Msg {
		snap, err := fetchSnapshot(context.Background(), socketPath, dbPath)
		return snapshotMsg{snap: snap, err: err}
	}
}

// Model is the Bubble Tea model for the stint dashboard.
type Model struct {
	socketPath string
	dbPath     string

	snap snapshot
	err  error

	width  int
	height int

	theme Theme
}

// newModel creates a new Model pointed at the resolved stint paths.
func newModel() Model {
	socketPath, dbPath := defaultStintPaths()
	return Model{
		socketPath: socketPath,
		dbPath:     dbPath,
		theme:      DefaultTheme(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{fetchCmd(m.socketPath, m.dbPath), tickCmd()}
	if watch := watchStateDB(m.dbPath); watch != nil {
		cmds = append(cmds, watch)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, fetchCmd(m.socketPath, m.dbPath)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case snapshotMsg:
		m.snap = msg.snap
		m.err = msg.err

	case fsChangeMsg:
		// Database changed on disk: refresh now and re-arm the watcher.
		cmds := []tea.Cmd{fetchCmd(m.socketPath, m.dbPath)}
		if watch := watchStateDB(m.dbPath); watch != nil {
			cmds = append(cmds, watch)
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		return m, tea.Batch(fetchCmd(m.socketPath, m.dbPath), tickCmd())
	}

	return m, nil
}
