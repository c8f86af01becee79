// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders assistant replies for terminal display.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
}

// newMarkdownRenderer builds a renderer for the configured theme. A nil
// renderer falls back to plain text everywhere.
func newMarkdownRenderer(theme string) *markdownRenderer {
	width := TerminalWidth()
	if width > 100 {
		width = 100
	}

	var style glamour.TermRendererOption
	switch theme {
	case "light":
		style = glamour.WithStandardStyle("light")
	case "dark":
		style = glamour.WithStandardStyle("dark")
	default:
		style = glamour.WithAutoStyle()
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return &markdownRenderer{}
	}
	return &markdownRenderer{renderer: r}
}

// Render returns the terminal-styled form of content, or the raw content
// when rendering is unavailable or fails.
func (m *markdownRenderer) Render(content string) string {
	if m.renderer == nil || !IsStdoutTTY() {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}
