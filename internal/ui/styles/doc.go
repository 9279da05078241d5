// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the lumen TUI.
//
// Colors are defined once as lipgloss.AdaptiveColor values so every style
// works on both light and dark terminals, and Theme bundles the composed
// lipgloss styles the chat view renders with.
package styles
