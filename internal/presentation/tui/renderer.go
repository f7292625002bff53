package tui

import (
	"bytes"
	"fmt"

	"github.com/aretw0/arbor/pkg/render"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Without a terminal the markdown is returned untouched.
func NewRenderer(styled bool) func(string) (string, error) {
	if !styled {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// RenderPage renders p through the markdown adapter and then through render.
func RenderPage(p render.Page, renderFn func(string) (string, error)) (string, error) {
	var buf bytes.Buffer
	if err := render.NewMarkdown().Render(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}
	return renderFn(buf.String())
}
