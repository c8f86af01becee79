// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLORS
// =============================================================================

// All colors use AdaptiveColor so light and dark terminals both stay legible.
var (
	// Teal - brand color, prompt, commands
	teal = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

	// Violet - assistant labels, banner
	violet = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

	// Emerald - success states, completed tool calls
	emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

	// Rose - errors, failed tool calls
	rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	// Amber - warnings, cancellation notices
	amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

	// Muted - secondary text, timestamps, hints
	muted = lipgloss.AdaptiveColor{Light: "#737373", Dark: "#7F849C"}
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(teal).
			Bold(true)

	bannerStyle = lipgloss.NewStyle().
			Foreground(violet).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(muted)

	commandStyle = lipgloss.NewStyle().
			Foreground(emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(rose)

	toolStyle = lipgloss.NewStyle().
			Foreground(teal).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(teal).
			Bold(true)
)
