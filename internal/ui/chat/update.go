// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/lumen-tui/internal/credits"
	"github.com/jeranaias/lumen-tui/internal/session"
	"github.com/jeranaias/lumen-tui/internal/store"
)

// Layout constants used to size the viewport. View measures the real
// heights and pads if these drift, but they should stay in sync with view.go.
const (
	headerHeight = 1
	inputHeight  = 2
	statusHeight = 1
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update handles all incoming messages for the chat view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionEventMsg:
		return m.handleSessionEvent(msg.Event)

	case StreamTickMsg:
		return m.handleStreamTick()

	case StateChangedMsg:
		return m.handleExternalChange(msg.Kind), nil

	case ClearStatusMsg:
		m.statusMsg = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Busy() {
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	viewportHeight := m.height - headerHeight - inputHeight - statusHeight - m.bannerHeight()
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = viewportHeight
	}
	m.input.Width = m.width - 4

	if m.markdown {
		m.rebuildRenderer(m.width - 8)
	}
	m.refreshViewport(true)
	return m
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showList {
		return m.handleListKey(msg)
	}
	if m.showTopUp {
		return m.handleTopUpKey(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.ctrl.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Stop):
		if m.state.Busy() {
			m.ctrl.Stop()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Retry):
		if err := m.ctrl.Retry(); err != nil {
			if !errors.Is(err, session.ErrNotRetryable) {
				return m.withStatus(friendlyError(err))
			}
			return m, nil
		}
		m.lastErr = nil
		return m.startBusyCmds()

	case key.Matches(msg, m.keyMap.NewChat):
		if err := m.ctrl.NewChat(); err != nil {
			return m.withStatus(friendlyError(err))
		}
		m.lastErr = nil
		m.endpoint = m.ctrl.Endpoint()
		m.refreshViewport(true)
		return m, nil

	case key.Matches(msg, m.keyMap.ChatList):
		m.listItems = m.store.ListChats()
		m.listIndex = 0
		m.showList = true
		return m, nil

	case key.Matches(msg, m.keyMap.CycleMode):
		next := m.ctrl.Mode().Next()
		if err := m.ctrl.SetMode(next); err != nil {
			return m.withStatus(friendlyError(err))
		}
		return m, nil

	case key.Matches(msg, m.keyMap.TopUp):
		m.topUpIndex = 0
		m.showTopUp = true
		return m, nil

	case key.Matches(msg, m.keyMap.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.ScrollDn):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.ListClose):
		m.showList = false
		return m, nil

	case key.Matches(msg, m.keyMap.ListUp):
		if m.listIndex > 0 {
			m.listIndex--
		}
		return m, nil

	case key.Matches(msg, m.keyMap.ListDown):
		if m.listIndex < len(m.listItems)-1 {
			m.listIndex++
		}
		return m, nil

	case key.Matches(msg, m.keyMap.ListOpen):
		if m.listIndex >= len(m.listItems) {
			m.showList = false
			return m, nil
		}
		id := m.listItems[m.listIndex].ID
		m.showList = false
		if err := m.ctrl.OpenChat(id); err != nil {
			return m.withStatus(friendlyError(err))
		}
		m.lastErr = nil
		m.endpoint = m.ctrl.Endpoint()
		m.refreshViewport(true)
		return m, nil

	case key.Matches(msg, m.keyMap.ListDelete):
		if m.listIndex >= len(m.listItems) {
			return m, nil
		}
		id := m.listItems[m.listIndex].ID
		if err := m.ctrl.DeleteChat(id); err != nil {
			m.showList = false
			return m.withStatus(friendlyError(err))
		}
		m.listItems = m.store.ListChats()
		if m.listIndex >= len(m.listItems) && m.listIndex > 0 {
			m.listIndex--
		}
		m.refreshViewport(true)
		return m, nil
	}
	return m, nil
}

func (m Model) handleTopUpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.ListClose):
		m.showTopUp = false
		return m, nil

	case key.Matches(msg, m.keyMap.ListUp):
		if m.topUpIndex > 0 {
			m.topUpIndex--
		}
		return m, nil

	case key.Matches(msg, m.keyMap.ListDown):
		if m.topUpIndex < len(credits.Packages)-1 {
			m.topUpIndex++
		}
		return m, nil

	case key.Matches(msg, m.keyMap.ListOpen):
		if m.topUpIndex >= len(credits.Packages) {
			m.showTopUp = false
			return m, nil
		}
		pkg := credits.Packages[m.topUpIndex]
		m.showTopUp = false
		if _, err := m.ledger.TopUp(pkg.Credits); err != nil {
			return m.withStatus(friendlyError(err))
		}
		return m.withStatus(fmt.Sprintf("Added %d credits (%s pack).", pkg.Credits, pkg.Name))
	}
	return m, nil
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if err := m.ctrl.Submit(text); err != nil {
		// An exhausted balance takes the user straight to the packages.
		if errors.Is(err, credits.ErrInsufficientCredits) {
			m.topUpIndex = 0
			m.showTopUp = true
		}
		return m.withStatus(friendlyError(err))
	}

	m.input.Reset()
	m.lastErr = nil
	m.buffer.Reset()
	m.refreshViewport(true)
	return m.startBusyCmds()
}

// startBusyCmds kicks off the spinner and the streaming flush ticker.
func (m Model) startBusyCmds() (tea.Model, tea.Cmd) {
	return m, tea.Batch(m.spinner.Tick, streamTickCmd())
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

func (m Model) handleSessionEvent(ev session.Event) (tea.Model, tea.Cmd) {
	// Always re-arm the listener so the controller's channel keeps draining.
	rearm := listenForSessionEvent(m.ctrl)

	switch ev := ev.(type) {
	case session.StateEvent:
		m.state = ev.State
		if !m.state.Busy() {
			m.buffer.ForceFlush()
			m.refreshViewport(true)
		}
		return m, rearm

	case session.ChunkEvent:
		if m.buffer.Write(ev.Content) {
			m.buffer.ForceFlush()
			m.refreshViewport(true)
		}
		return m, rearm

	case session.DoneEvent:
		m.buffer.ForceFlush()
		m.refreshViewport(true)
		if ev.Stopped {
			return m.withStatusCmd("Stopped. Partial response kept.", rearm)
		}
		return m, rearm

	case session.ErrorEvent:
		m.lastErr = ev.Err
		m.buffer.Reset()
		m.refreshViewport(true)
		return m, rearm

	case session.EndpointEvent:
		m.endpoint = ev.Endpoint
		return m.withStatusCmd("Primary endpoint failed, switching to fallback...", rearm)
	}

	return m, rearm
}

// =============================================================================
// STREAM TICKS
// =============================================================================

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.state.Busy() {
		// Stream finished; let the ticker die.
		return m, nil
	}
	if _, ok := m.buffer.Flush(); ok {
		m.refreshViewport(true)
	}
	return m, streamTickCmd()
}

// =============================================================================
// EXTERNAL STATE CHANGES
// =============================================================================

// handleExternalChange reacts to state files rewritten by another lumen
// process. Credits are reloaded so the status bar tracks the shared
// balance; the chat list is re-read when the overlay is open.
func (m Model) handleExternalChange(kind store.ChangeKind) Model {
	switch kind {
	case store.ChangeCredits:
		m.ledger.Reload()
	case store.ChangeChats:
		if m.showList {
			m.listItems = m.store.ListChats()
			if m.listIndex >= len(m.listItems) && m.listIndex > 0 {
				m.listIndex = len(m.listItems) - 1
			}
		}
	}
	return m
}

// =============================================================================
// STATUS HELPERS
// =============================================================================

func (m Model) withStatus(msg string) (tea.Model, tea.Cmd) {
	return m.withStatusCmd(msg, nil)
}

func (m Model) withStatusCmd(msg string, extra tea.Cmd) (tea.Model, tea.Cmd) {
	m.statusMsg = msg
	clearCmd := tea.Tick(4*time.Second, func(time.Time) tea.Msg { return ClearStatusMsg{} })
	if extra == nil {
		return m, clearCmd
	}
	return m, tea.Batch(clearCmd, extra)
}

// friendlyError maps controller errors to user-facing status text.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, credits.ErrInsufficientCredits):
		return "Out of credits. Top up to keep chatting."
	case errors.Is(err, session.ErrRateLimited):
		return "Slow down a little..."
	case errors.Is(err, session.ErrBusy):
		return "Still responding. Press esc to stop first."
	case errors.Is(err, session.ErrEmptyInput):
		return "Nothing to send."
	default:
		return err.Error()
	}
}
