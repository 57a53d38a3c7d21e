package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/lifecycle"
)

// ActionType identifies what a key press does.
type ActionType int

const (
	ActionTypeNone ActionType = iota
	ActionTypeExtend
	ActionTypeTerminate
	ActionTypeRetry
	ActionTypeNew
	ActionTypeAbandon
	ActionTypeOpen
	ActionTypeCopy
	ActionTypeSheet
	ActionTypeQuit
)

// Action is a resolved key press.
type Action struct {
	Type    ActionType
	Confirm string // non-empty if confirmation required
}

// NeedsConfirm returns true if the action requires user confirmation.
func (a Action) NeedsConfirm() bool {
	return a.Confirm != ""
}

type keyMap struct {
	Extend    key.Binding
	Terminate key.Binding
	Retry     key.Binding
	New       key.Binding
	Abandon   key.Binding
	Open      key.Binding
	Copy      key.Binding
	Sheet     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Extend:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "extend")),
		Terminate: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "terminate")),
		Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new lab")),
		Abandon:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "abandon")),
		Open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		Copy:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy url")),
		Sheet:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cheat-sheet")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// forState enables only the bindings that do something in the snapshot's state.
func (k *keyMap) forState(snap lifecycle.Snapshot) {
	k.Extend.SetEnabled(snap.State == lab.StateActive)
	k.Terminate.SetEnabled(canTerminate(snap.State))
	k.Retry.SetEnabled(snap.State == lab.StateError ||
		(snap.State == lab.StateCreated && !snap.Submitting && snap.Failure == lab.FailureCreation))
	k.New.SetEnabled(snap.State == lab.StateExpired || snap.State == lab.StateTerminated || snap.State == lab.StateError)
	k.Abandon.SetEnabled(snap.State == lab.StateError)
	k.Open.SetEnabled(snap.Live)
	k.Copy.SetEnabled(snap.Live)
	k.Sheet.SetEnabled(snap.Kind != "")
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Extend, k.Terminate, k.Retry, k.New, k.Open, k.Copy, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Extend, k.Terminate, k.Retry},
		{k.New, k.Abandon},
		{k.Open, k.Copy, k.Sheet},
		{k.Help, k.Quit},
	}
}

// Resolve maps a key press to an action for the current snapshot.
func (k keyMap) Resolve(msg tea.KeyMsg, snap lifecycle.Snapshot) (Action, bool) {
	k.forState(snap)

	switch {
	case key.Matches(msg, k.Quit):
		return Action{Type: ActionTypeQuit}, true
	case key.Matches(msg, k.Extend):
		return Action{Type: ActionTypeExtend}, true
	case key.Matches(msg, k.Terminate):
		return Action{
			Type:    ActionTypeTerminate,
			Confirm: "The lab and everything in it will be destroyed.",
		}, true
	case key.Matches(msg, k.Retry):
		return Action{Type: ActionTypeRetry}, true
	case key.Matches(msg, k.New):
		return Action{Type: ActionTypeNew}, true
	case key.Matches(msg, k.Abandon):
		return Action{Type: ActionTypeAbandon}, true
	case key.Matches(msg, k.Open):
		return Action{Type: ActionTypeOpen}, true
	case key.Matches(msg, k.Copy):
		return Action{Type: ActionTypeCopy}, true
	case key.Matches(msg, k.Sheet):
		return Action{Type: ActionTypeSheet}, true
	}
	return Action{}, false
}

func canTerminate(s lab.State) bool {
	return s == lab.StateLaunching || s == lab.StateActive || s == lab.StateError
}
