package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/labstack/internal/styles"
)

// Modal is a confirm/cancel dialog.
type Modal struct {
	title           string
	message         string
	visible         bool
	confirmSelected bool
}

// NewModal creates a visible modal with cancel preselected.
func NewModal(title, message string) Modal {
	return Modal{
		title:   title,
		message: message,
		visible: true,
	}
}

// ToggleSelection switches the selected button.
func (m *Modal) ToggleSelection() {
	m.confirmSelected = !m.confirmSelected
}

// ConfirmSelected returns true if the confirm button is selected.
func (m Modal) ConfirmSelected() bool {
	return m.confirmSelected
}

// Visible returns whether the modal should be displayed.
func (m Modal) Visible() bool {
	return m.visible
}

// Overlay renders the modal centered in place of the background.
func (m Modal) Overlay(background string, width, height int) string {
	if !m.visible {
		return background
	}

	var confirmBtn, cancelBtn string
	if m.confirmSelected {
		confirmBtn = modalButtonSelectedStyle.Render("Confirm")
		cancelBtn = modalButtonStyle.Render("Cancel")
	} else {
		confirmBtn = modalButtonStyle.Render("Confirm")
		cancelBtn = modalButtonSelectedStyle.Render("Cancel")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center, confirmBtn, "  ", cancelBtn)
	buttonRow := lipgloss.NewStyle().MarginTop(1).Render(buttons)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render(m.title),
		"",
		m.message,
		buttonRow,
		modalHelpStyle.Render("←/→ select  enter confirm  esc cancel"),
	)

	modal := styles.ModalStyle.Render(content)
	if width == 0 || height == 0 {
		return modal
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
