// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/labstack/internal/core/lab"
)

// Tokyo Night color palette.
var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorRed    = lipgloss.Color("#f7768e")
	ColorPurple = lipgloss.Color("#bb9af7")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")
)

// Banner ASCII art for the header.
const Banner = `
 ╦  ╔═╗╔╗ ╔═╗╔╦╗╔═╗╔═╗╦╔═
 ║  ╠═╣╠╩╗╚═╗ ║ ╠═╣║  ╠╩╗
 ╩═╝╩ ╩╚═╝╚═╝ ╩ ╩ ╩╚═╝╩ ╩`

// BannerStyle styles the ASCII art banner.
var BannerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// CommandHeaderStyle styles the hook command headers.
var CommandHeaderStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// CommandStyle styles the command text.
var CommandStyle = lipgloss.NewStyle().
	Foreground(ColorWhite)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// PanelStyle frames the session view.
var PanelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorGray).
	Padding(1, 2)

// LabelStyle styles field labels.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(11)

// URLStyle styles access URLs.
var URLStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Underline(true)

// TimerStyle styles the countdown.
var TimerStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Bold(true)

// ErrorStyle styles failure messages.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed)

// NoticeStyle styles non-blocking notices.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(ColorYellow)

// HelpStyle styles key help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ModalStyle frames confirmation dialogs.
var ModalStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorRed).
	Padding(1, 3)

// StateColor returns the color used for a session state.
func StateColor(s lab.State) lipgloss.Color {
	switch s {
	case lab.StateActive:
		return ColorGreen
	case lab.StateLaunching:
		return ColorYellow
	case lab.StateError:
		return ColorRed
	case lab.StateExpired, lab.StateTerminated:
		return ColorPurple
	default:
		return ColorGray
	}
}

// State renders a state badge.
func State(s lab.State) string {
	return lipgloss.NewStyle().Foreground(StateColor(s)).Bold(true).Render(string(s))
}

// FormTheme returns the huh theme used by interactive prompts.
func FormTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = t.Focused.Title.Foreground(ColorBlue).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorGray)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorGreen)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorGreen)
	t.Focused.Option = t.Focused.Option.Foreground(ColorWhite)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorRed)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorRed)

	t.Blurred.Title = t.Blurred.Title.Foreground(ColorGray)
	t.Blurred.Option = t.Blurred.Option.Foreground(ColorGray)

	return t
}
