// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode selects how the theme picks light or dark colors.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeDark  Mode = "dark"
	ModeLight Mode = "light"
)

// ParseMode parses a ui.theme value. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeDark, ModeLight:
		return m, nil
	default:
		return ModeAuto, fmt.Errorf("unknown theme %q (want auto, dark or light)", s)
	}
}

// Theme holds the styled components for the kare TUI.
type Theme struct {
	Mode         Mode
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Header
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderInfo  lipgloss.Style

	// Onboarding forms
	FormTitle   lipgloss.Style
	FormLabel   lipgloss.Style
	FormFocused lipgloss.Style
	FormHint    lipgloss.Style

	// Messages
	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	FailedBubble    lipgloss.Style
	Pending         lipgloss.Style
	Transcript      lipgloss.Style
	Timestamp       lipgloss.Style

	// Notices
	NoticeInfo    lipgloss.Style
	NoticeSuccess lipgloss.Style
	NoticeError   lipgloss.Style

	// Input and footer
	InputPrompt lipgloss.Style
	StatusBar   lipgloss.Style
	Help        lipgloss.Style
}

// NewTheme creates a theme for mode. ModeAuto asks the terminal for its
// background color.
func NewTheme(mode Mode) *Theme {
	isDark := true
	switch mode {
	case ModeLight:
		isDark = false
	case ModeDark:
	default:
		mode = ModeAuto
		isDark = termenv.HasDarkBackground()
	}
	// AdaptiveColor resolves against lipgloss's global background flag.
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Mode:         mode,
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	t.HeaderInfo = lipgloss.NewStyle().Foreground(TextSecondary)

	t.FormTitle = lipgloss.NewStyle().Bold(true).Foreground(Teal).MarginBottom(1)
	t.FormLabel = lipgloss.NewStyle().Foreground(TextSecondary)
	t.FormFocused = lipgloss.NewStyle().Bold(true).Foreground(Sky)
	t.FormHint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Sky)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Teal)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1).
		MarginRight(4)
	t.FailedBubble = t.AssistantBubble.
		BorderForeground(FailedBubbleBorder).
		Foreground(Rose)

	t.Pending = lipgloss.NewStyle().Foreground(Amber).Italic(true)
	t.Transcript = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	t.NoticeInfo = lipgloss.NewStyle().Foreground(Sky)
	t.NoticeSuccess = lipgloss.NewStyle().Foreground(Emerald)
	t.NoticeError = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.Help = lipgloss.NewStyle().Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BubbleWidth is the wrap width for message bubbles at the current size.
func (t *Theme) BubbleWidth() int {
	w := t.Width - 8
	if t.Width >= 100 {
		w = t.Width * 3 / 4
	}
	if w < 20 {
		w = 20
	}
	return w
}

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}
