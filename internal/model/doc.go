// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the core data structures for chat conversations.
//
// A Conversation is an ordered, chronological sequence of Messages owned by
// exactly one session controller. Messages are immutable once finalized; an
// in-progress assistant message accumulates streamed chunks and is finalized
// exactly once.
//
// The package also derives the persisted ChatSummary (title from the first
// user message, preview from the latest message) and the wire-format view
// consumed by the transport client.
package model
