// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the kare TUI palette and lipgloss styles.
//
// Colors are lipgloss.AdaptiveColor values. NewTheme fixes the light or dark
// variant once, either from the ui.theme setting or, in auto mode, from the
// terminal background reported by termenv.
package styles
