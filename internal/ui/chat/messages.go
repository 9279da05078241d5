// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file is the catalog of Bubble Tea messages the chat view consumes.
// Keeping them in one place makes the update loop's message flow auditable.
package chat

import (
	"time"

	"github.com/jeranaias/lumen-tui/internal/session"
	"github.com/jeranaias/lumen-tui/internal/store"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionEventMsg wraps one event from the session controller's event
// channel. The update loop re-arms the listener command after handling it,
// so exactly one of these is in flight at a time.
type SessionEventMsg struct {
	Event session.Event
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamTickMsg drives periodic flushes of the streaming buffer while a
// response is being received. Ticks stop when the session leaves its busy
// states.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// EXTERNAL STATE MESSAGES
// =============================================================================

// StateChangedMsg reports that another process rewrote a state file on
// disk. It is injected with Program.Send from the store watcher goroutine.
type StateChangedMsg struct {
	Kind store.ChangeKind
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// ClearStatusMsg clears a transient status message after its display
// window elapses.
type ClearStatusMsg struct{}

// NewStateChangedMsg creates a message for an external state file change.
func NewStateChangedMsg(kind store.ChangeKind) StateChangedMsg {
	return StateChangedMsg{Kind: kind}
}
