// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/jeranaias/lumen-tui/internal/credits"
	"github.com/jeranaias/lumen-tui/internal/model"
	"github.com/jeranaias/lumen-tui/internal/session"
	"github.com/jeranaias/lumen-tui/internal/store"
	"github.com/jeranaias/lumen-tui/internal/transport"
	"github.com/jeranaias/lumen-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
//
// It is a thin presentation layer: all conversation, credit, and endpoint
// decisions live in the session controller, and the model reacts to the
// controller's event stream.
type Model struct {
	// Collaborators
	ctrl   *session.Controller
	ledger *credits.Ledger
	store  *store.Store
	log    zerolog.Logger

	// Mirrored session state (updated from controller events)
	state    session.State
	endpoint transport.Endpoint
	lastErr  error

	// Styling
	theme *styles.Theme

	// Markdown rendering for assistant messages
	renderer *glamour.TermRenderer
	markdown bool

	// Streaming render pacing
	buffer *StreamingBuffer

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// Chat list overlay
	showList  bool
	listItems []model.ChatSummary
	listIndex int

	// Top-up overlay
	showTopUp  bool
	topUpIndex int

	// Transient status line
	statusMsg string
}

// Options configures model construction from the loaded config.
type Options struct {
	Theme    string
	Markdown bool
}

// NewModel creates the chat view wired to its collaborators.
func NewModel(ctrl *session.Controller, ledger *credits.Ledger, st *store.Store, opts Options, log zerolog.Logger) Model {
	theme := styles.NewTheme(opts.Theme)

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		ctrl:     ctrl,
		ledger:   ledger,
		store:    st,
		log:      log,
		state:    ctrl.State(),
		endpoint: ctrl.Endpoint(),
		theme:    theme,
		buffer:   NewStreamingBuffer(),
		input:    input,
		spinner:  sp,
		keyMap:   DefaultKeyMap(),
	}
	if opts.Markdown {
		m.rebuildRenderer(80)
	}
	return m
}

// rebuildRenderer recreates the glamour renderer at the given wrap width.
// Called at construction and on every terminal resize; glamour bakes the
// wrap width into the renderer.
func (m *Model) rebuildRenderer(wrap int) {
	if wrap < 20 {
		wrap = 20
	}
	style := "dark"
	if !m.theme.IsDark {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.log.Warn().Err(err).Msg("markdown renderer unavailable, falling back to plain text")
		m.renderer = nil
		m.markdown = false
		return
	}
	m.renderer = r
	m.markdown = true
}

// Init starts the session event listener and the input cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenForSessionEvent(m.ctrl),
		textinput.Blink,
	)
}

// listenForSessionEvent blocks on the controller's event channel and
// delivers the next event as a message. The update loop re-issues it after
// every SessionEventMsg so the channel is always being drained.
func listenForSessionEvent(ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ctrl.Events()
		if !ok {
			return nil
		}
		return SessionEventMsg{Event: ev}
	}
}
