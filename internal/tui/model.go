package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/lifecycle"
)

// Session is the state machine surface the TUI drives.
type Session interface {
	Snapshot() lifecycle.Snapshot
	Updates() <-chan lifecycle.Snapshot
	Launch(kind lab.Kind, ttlMinutes int) error
	Retry() error
	Extend(minutes int) error
	Terminate() error
	Reset() error
}

// Hooks runs the configured open/copy commands.
type Hooks interface {
	Open(ctx context.Context, snap lifecycle.Snapshot) error
	Copy(ctx context.Context, snap lifecycle.Snapshot) error
}

// Options configures the TUI.
type Options struct {
	// ExtendMinutes is added per extend key press.
	ExtendMinutes int
}

// UIState is the interaction mode of the view.
type UIState int

const (
	stateNormal UIState = iota
	stateConfirming
	stateSheet
)

// Model is the Bubble Tea model for one lab session.
type Model struct {
	session Session
	hooks   Hooks
	opts    Options

	snap    lifecycle.Snapshot
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	state   UIState
	modal   Modal
	sheet   SheetModal
	pending Action

	status   string
	err      error
	width    int
	height   int
	quitting bool
}

// New creates a Model following session.
func New(session Session, hooks Hooks, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	if opts.ExtendMinutes <= 0 {
		opts.ExtendMinutes = 30
	}

	return Model{
		session: session,
		hooks:   hooks,
		opts:    opts,
		snap:    session.Snapshot(),
		keys:    newKeyMap(),
		help:    help.New(),
		spinner: s,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.session.Updates()), m.spinner.Tick)
}

// Snapshot returns the last snapshot the view rendered.
func (m Model) Snapshot() lifecycle.Snapshot {
	return m.snap
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case snapshotMsg:
		m.snap = lifecycle.Snapshot(msg)
		return m, waitForSnapshot(m.session.Updates())
	case sessionClosedMsg:
		m.quitting = true
		return m, tea.Quit
	case actionDoneMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		} else {
			m.status = ""
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch m.state {
		case stateConfirming:
			return m.handleConfirmKey(msg)
		case stateSheet:
			return m.handleSheetKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	action, ok := m.keys.Resolve(msg, m.snap)
	if !ok {
		return m, nil
	}

	if action.NeedsConfirm() {
		m.state = stateConfirming
		m.pending = action
		m.modal = NewModal("Terminate lab?", action.Confirm)
		return m, nil
	}
	return m.dispatch(action)
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "h", "l", "tab":
		m.modal.ToggleSelection()
		return m, nil
	case "y":
		m.state = stateNormal
		return m.dispatch(m.pending)
	case "enter":
		m.state = stateNormal
		if m.modal.ConfirmSelected() {
			return m.dispatch(m.pending)
		}
		return m, nil
	case "esc", "n", "q":
		m.state = stateNormal
		m.pending = Action{}
		return m, nil
	}
	return m, nil
}

func (m Model) handleSheetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.sheet.Scroll(-1)
	case "down", "j":
		m.sheet.Scroll(1)
	case "pgup", "b":
		m.sheet.Scroll(-m.sheet.viewport.Height / 2)
	case "pgdown", "f", " ":
		m.sheet.Scroll(m.sheet.viewport.Height / 2)
	case "esc", "enter", "q", "s":
		m.state = stateNormal
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) dispatch(action Action) (tea.Model, tea.Cmd) {
	m.err = nil
	m.status = ""
	snap := m.snap

	switch action.Type {
	case ActionTypeQuit:
		m.quitting = true
		return m, tea.Quit
	case ActionTypeExtend:
		minutes := m.opts.ExtendMinutes
		return m, runIntent(m.session, func() error {
			return m.session.Extend(minutes)
		}, extendOutcome(minutes))
	case ActionTypeTerminate:
		return m, runIntent(m.session, m.session.Terminate, terminateOutcome)
	case ActionTypeRetry:
		return m, runIntent(m.session, m.session.Retry, retryOutcome)
	case ActionTypeNew:
		return m, runIntent(m.session, func() error {
			return m.session.Launch(snap.Kind, snap.TTLMinutes)
		}, launchOutcome)
	case ActionTypeAbandon:
		return m, runIntent(m.session, m.session.Reset, resetOutcome)
	case ActionTypeOpen:
		return m, runAction("Opened lab", func(ctx context.Context) error {
			return m.hooks.Open(ctx, snap)
		})
	case ActionTypeSheet:
		m.state = stateSheet
		m.sheet = NewSheetModal(snap.Kind, m.width, m.height)
		return m, nil
	case ActionTypeCopy:
		return m, runAction("Copied access URL", func(ctx context.Context) error {
			return m.hooks.Copy(ctx, snap)
		})
	}
	return m, nil
}
