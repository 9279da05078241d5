// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt defines the chat modes and assembles the system prompt sent
// with every request. The prompt is built from a fixed base instruction, the
// user's saved preferences, and a persona suffix chosen by the active mode.
package prompt
