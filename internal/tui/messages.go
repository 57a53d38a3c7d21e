package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/labstack/internal/lifecycle"
)

// hookTimeout bounds open/copy commands started from the TUI.
const hookTimeout = 30 * time.Second

// snapshotMsg carries a new session snapshot.
type snapshotMsg lifecycle.Snapshot

// sessionClosedMsg is sent when the machine's update stream ends.
type sessionClosedMsg struct{}

// actionDoneMsg reports the outcome of an action run off the update loop.
type actionDoneMsg struct {
	status string
	err    error
}

// waitForSnapshot returns a command that blocks until the next snapshot.
func waitForSnapshot(updates <-chan lifecycle.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return sessionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// runAction runs fn in a command so intents never block Update.
func runAction(status string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
		defer cancel()
		return actionDoneMsg{status: status, err: fn(ctx)}
	}
}
