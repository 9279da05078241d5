// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the lumen TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderTitle lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	RoleLabel       lipgloss.Style
	Timestamp       lipgloss.Style

	// ==========================================================================
	// BANNER STYLES
	// ==========================================================================

	WarnBanner  lipgloss.Style
	ErrorBanner lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar       lipgloss.Style
	StatusMode      lipgloss.Style
	StatusEndpoint  lipgloss.Style
	StatusFallback  lipgloss.Style
	CreditsOK       lipgloss.Style
	CreditsLow      lipgloss.Style
	CreditsEmpty    lipgloss.Style
	ShortcutKey     lipgloss.Style
	ShortcutDesc    lipgloss.Style

	// ==========================================================================
	// CHAT LIST OVERLAY STYLES
	// ==========================================================================

	ListBox          lipgloss.Style
	ListTitle        lipgloss.Style
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListPreview      lipgloss.Style

	// ==========================================================================
	// MISC STYLES
	// ==========================================================================

	Spinner lipgloss.Style
	Muted   lipgloss.Style
}

// NewTheme constructs the theme for the detected terminal background.
// The name comes from config ("dark", "light", "auto"); "auto" defers to
// termenv's background detection.
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()

	isDark := true
	switch name {
	case "light":
		isDark = false
	case "dark":
		isDark = true
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextPrimary).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)
	t.RoleLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.WarnBanner = lipgloss.NewStyle().
		Background(AmberDeep).
		Foreground(TextInverse).
		Padding(0, 1)
	t.ErrorBanner = lipgloss.NewStyle().
		Background(RoseDeep).
		Foreground(TextInverse).
		Padding(0, 1)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusMode = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.StatusEndpoint = lipgloss.NewStyle().
		Foreground(Emerald)
	t.StatusFallback = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.CreditsOK = lipgloss.NewStyle().
		Foreground(Emerald)
	t.CreditsLow = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)
	t.CreditsEmpty = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ListBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)
	t.ListTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.ListItem = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.ListItemSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple).
		Bold(true)
	t.ListPreview = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	return t
}
