package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/labstack/internal/cheatsheet"
	"github.com/hay-kot/labstack/internal/core/lab"
	"github.com/hay-kot/labstack/internal/styles"
)

// Cheat-sheet modal layout.
const (
	sheetMaxWidth  = 90 // columns
	sheetMaxHeight = 32 // rows
	sheetMargin    = 4  // gap to the screen edges
	sheetChrome    = 6  // rows for title, divider and help
	sheetPadding   = 6  // border plus horizontal padding
	glamourGutter  = 2
)

// SheetModal shows the cheat-sheet for a lab kind in a scrollable viewport.
type SheetModal struct {
	kind     lab.Kind
	viewport viewport.Model
	width    int
	height   int
}

// NewSheetModal renders the cheat-sheet for kind sized to the screen.
func NewSheetModal(kind lab.Kind, width, height int) SheetModal {
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}
	modalWidth := max(min(width-sheetMargin, sheetMaxWidth), 20)
	modalHeight := max(min(height-sheetMargin, sheetMaxHeight), sheetChrome+3)

	vp := viewport.New(modalWidth-sheetPadding, modalHeight-sheetChrome)

	content, err := cheatsheet.Render(kind, modalWidth-sheetPadding-glamourGutter)
	if err != nil {
		content = err.Error()
	}
	content = strings.TrimSpace(content)
	content = stripLeadingDecorative(content)
	content = stripTrailingDecorative(content)
	vp.SetContent(content)

	return SheetModal{kind: kind, viewport: vp, width: modalWidth, height: modalHeight}
}

// Scroll moves the viewport by delta lines.
func (m *SheetModal) Scroll(delta int) {
	if delta < 0 {
		m.viewport.ScrollUp(-delta)
		return
	}
	m.viewport.ScrollDown(delta)
}

// Overlay renders the modal centered over the screen.
func (m SheetModal) Overlay(width, height int) string {
	title := m.kind.Info().Title + " cheat-sheet"
	if m.viewport.TotalLineCount() > m.viewport.VisibleLineCount() {
		title += subtleStyle.Render(fmt.Sprintf(" (%.0f%%)", m.viewport.ScrollPercent()*100))
	}

	inner := m.width - sheetPadding
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render(title),
		sheetDividerStyle.Render(strings.Repeat("─", inner)),
		m.viewport.View(),
		modalHelpStyle.Render("↑/↓ scroll  esc close"),
	)

	modal := sheetStyle.Width(m.width - 2).Render(content)
	if width == 0 || height == 0 {
		return modal
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

var (
	sheetStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.ColorBlue).
			Padding(0, 2)

	sheetDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#3b4261"))
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// isDecorativeLine reports whether a rendered line holds only rules or
// whitespace once styling is removed.
func isDecorativeLine(line string) bool {
	stripped := strings.TrimSpace(ansiPattern.ReplaceAllString(line, ""))
	for _, r := range stripped {
		if r != '─' && r != '━' && r != '-' && r != '=' {
			return false
		}
	}
	return true
}

func stripLeadingDecorative(content string) string {
	lines := strings.Split(content, "\n")
	start := 0
	for start < len(lines) && isDecorativeLine(lines[start]) {
		start++
	}
	return strings.Join(lines[start:], "\n")
}

func stripTrailingDecorative(content string) string {
	lines := strings.Split(content, "\n")
	end := len(lines)
	for end > 0 && isDecorativeLine(lines[end-1]) {
		end--
	}
	return strings.Join(lines[:end], "\n")
}
