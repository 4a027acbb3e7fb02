package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// maxReadableWidth caps word wrap for long descriptions.
const maxReadableWidth = 100

// RenderMarkdown renders markdown text using glamour.
// Returns the original text if colours are off or rendering fails.
func RenderMarkdown(markdown string) string {
	if !ShouldUseColor() {
		return markdown
	}
	return renderMarkdown(markdown, Width(80), "")
}

func renderMarkdown(markdown string, width int, style string) string {
	if width > maxReadableWidth {
		width = maxReadableWidth
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style != "" {
		opts = append(opts, glamour.WithStandardStyle(style))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}
