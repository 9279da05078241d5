// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The view is a Bubble Tea model layered over the session controller. It
// owns presentation only: conversation state, credit accounting, and
// endpoint failover all live below it, and changes arrive as events on the
// controller's channel. The view batches streamed chunks through a
// StreamingBuffer so terminal repaints stay bounded no matter how fast the
// endpoint streams.
package chat
