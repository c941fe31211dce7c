package docsite

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the word-wrap width used when none is given.
const DefaultWidth = 100

// RenderTerminal renders markdown as styled terminal output.
func RenderTerminal(md string, width int) (string, error) {
	if md == "" {
		return "", nil
	}
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating glamour renderer: %w", err)
	}
	return r.Render(md)
}

// RenderFileTerminal reads a markdown file and renders it for the terminal.
func RenderFileTerminal(path string, width int) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return RenderTerminal(string(src), width)
}
