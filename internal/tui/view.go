package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/styles"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	body := m.renderSession()
	switch m.state {
	case stateConfirming:
		return m.modal.Overlay(body, m.width, m.height)
	case stateSheet:
		return m.sheet.Overlay(m.width, m.height)
	}
	return body
}

func (m Model) renderSession() string {
	snap := m.snap
	info := snap.Kind.Info()

	title := titleStyle.Render("LabStack")
	if snap.Kind != "" {
		title += subtleStyle.Render(" " + iconDot + " " + info.Title)
	}

	rows := []string{title, ""}
	rows = append(rows, row("State", m.renderState()))
	if snap.LabID != "" {
		rows = append(rows, row("Lab", snap.LabID))
	}

	switch snap.State {
	case lab.StateActive:
		remaining := styles.TimerStyle.Render(snap.Remaining)
		if snap.ExtensionUnconfirmed {
			remaining += subtleStyle.Render("  (extension not confirmed by the lab service)")
		}
		rows = append(rows, row("Remaining", remaining))
	case lab.StateLaunching:
		rows = append(rows, row("TTL", subtleStyle.Render(lab.FormatRemaining(snap.TTLMinutes*60))))
	}

	if snap.AccessURL != "" {
		url := snap.AccessURL
		if snap.Live {
			url = styles.URLStyle.Render(url)
		} else {
			url = subtleStyle.Render(url + " (no longer available)")
		}
		rows = append(rows, row("URL", url))
	}

	if snap.LastError != "" {
		rows = append(rows, "", styles.ErrorStyle.Render(snap.LastError))
	}
	if snap.Notice != "" {
		rows = append(rows, "", styles.NoticeStyle.Render(snap.Notice))
	}
	if m.err != nil {
		rows = append(rows, "", styles.ErrorStyle.Render(m.err.Error()))
	} else if m.status != "" {
		rows = append(rows, "", statusMsgStyle.Render(m.status))
	}

	keys := m.keys
	keys.forState(snap)
	panel := styles.PanelStyle.Render(strings.Join(rows, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, panel, styles.HelpStyle.Render(m.help.View(keys)))
}

func (m Model) renderState() string {
	badge := styles.State(m.snap.State)
	switch {
	case m.snap.Submitting:
		return m.spinner.View() + " " + subtleStyle.Render("requesting lab")
	case m.snap.State == lab.StateLaunching:
		return badge + " " + m.spinner.View()
	default:
		return badge
	}
}

func row(label, value string) string {
	return styles.LabelStyle.Render(label) + value
}
