// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styles for line-mode kare output (REPL and
// subcommands). The TUI has its own theme in internal/ui/styles.

package cli

import (
	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("37")) // Teal

	// SuccessStyle is used for success notices.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// ErrorStyle is used for error notices.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// InfoStyle is used for informational notices.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	// DimStyle is used for hints and timestamps.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// AssistantStyle labels assistant answers.
	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("117")).
			Bold(true)
)
