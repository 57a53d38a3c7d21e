// Package cheatsheet holds quick reference notes for each lab kind.
package cheatsheet

import (
	"embed"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hay-kot/labstack/internal/core/lab"
)

//go:embed sheets/*.md
var sheets embed.FS

// Markdown returns the raw reference text for kind.
func Markdown(kind lab.Kind) (string, error) {
	data, err := sheets.ReadFile("sheets/" + string(kind) + ".md")
	if err != nil {
		return "", fmt.Errorf("no cheatsheet for %s", kind)
	}
	return string(data), nil
}

// Render returns the reference text for kind styled for a terminal of the
// given width.
func Render(kind lab.Kind, width int) (string, error) {
	md, err := Markdown(kind)
	if err != nil {
		return "", err
	}

	if width <= 0 {
		width = 80
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("tokyo-night"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md, nil
	}

	out, err := renderer.Render(md)
	if err != nil {
		return md, nil
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}
