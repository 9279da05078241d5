// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared utilities for the lumen TUI.
//
// It contains:
//   - Atomic file writes with fsync (AtomicWriteFile), used by the state
//     store so that credits, preferences, and chat summaries survive crashes
//   - Rune- and width-aware string truncation for titles, previews, and
//     fixed-width UI columns
//
// Nothing in this package knows about chats, credits, or the UI; it must
// stay dependency-free apart from go-runewidth.
package util
