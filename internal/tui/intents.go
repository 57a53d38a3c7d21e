package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/lifecycle"
)

// outcome turns the snapshots taken around an intent into a status line.
// Intents return once their effect is visible, so after reflects the intent
// and anything processed before it.
type outcome func(before, after lifecycle.Snapshot) string

// runIntent calls fn off the update loop and reports what it actually did.
// The machine ignores intents that no longer fit its state, so the status
// line is derived from the session rather than from the key pressed.
func runIntent(session Session, fn func() error, describe outcome) tea.Cmd {
	return func() tea.Msg {
		before := session.Snapshot()
		if err := fn(); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: describe(before, session.Snapshot())}
	}
}

func extendOutcome(minutes int) outcome {
	return func(before, after lifecycle.Snapshot) string {
		// Ticks only lower the count, so growth means the extension landed.
		if after.State == lab.StateActive && after.RemainingSeconds > before.RemainingSeconds {
			return fmt.Sprintf("Extended by %d minutes", minutes)
		}
		return "Lab is no longer active, nothing extended"
	}
}

func terminateOutcome(before, after lifecycle.Snapshot) string {
	switch {
	case after.State == lab.StateTerminated && before.State != lab.StateTerminated:
		return "Termination requested"
	case before.Submitting && !after.Submitting && after.State == lab.StateCreated && after.Failure != lab.FailureCreation:
		return "Launch abandoned"
	default:
		return "Nothing to terminate"
	}
}

// The states below are only left through intents, so whether the intent
// applies is decided by the snapshot taken before it.

func retryOutcome(before, _ lifecycle.Snapshot) string {
	switch {
	case before.State == lab.StateError && before.LabID != "":
		return "Retrying"
	case before.State == lab.StateCreated && !before.Submitting && before.Failure == lab.FailureCreation:
		return "Retrying launch"
	default:
		return "Nothing to retry"
	}
}

func launchOutcome(before, _ lifecycle.Snapshot) string {
	switch before.State {
	case lab.StateError, lab.StateExpired, lab.StateTerminated:
		return "Launching a new lab"
	case lab.StateCreated:
		if !before.Submitting {
			return "Launching a new lab"
		}
	}
	return "A launch is already in progress"
}

func resetOutcome(before, _ lifecycle.Snapshot) string {
	switch before.State {
	case lab.StateError:
		return "Session abandoned"
	case lab.StateExpired, lab.StateTerminated:
		return "Session cleared"
	case lab.StateCreated:
		if !before.Submitting {
			return "Session cleared"
		}
	}
	return "Nothing to abandon"
}
