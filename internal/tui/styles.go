// Package tui implements the Bubble Tea view that follows one lab session.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/labstack/internal/styles"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.ColorBlue)

	subtleStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(styles.ColorBlue)

	statusMsgStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGreen)
)

// Modal styles.
var (
	modalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.ColorWhite)

	modalHelpStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray).
			MarginTop(1)

	modalButtonStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(lipgloss.Color("#3b4261")).
				Foreground(lipgloss.Color("#a9b1d6"))

	modalButtonSelectedStyle = lipgloss.NewStyle().
					Padding(0, 1).
					Background(styles.ColorRed).
					Foreground(lipgloss.Color("#1a1b26")).
					Bold(true)
)

const iconDot = "•"
