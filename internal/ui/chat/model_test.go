// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/lumen-tui/internal/credits"
	"github.com/jeranaias/lumen-tui/internal/session"
	"github.com/jeranaias/lumen-tui/internal/store"
	"github.com/jeranaias/lumen-tui/internal/transport"
)

// newTestModel builds a sized chat model over a throwaway state dir. The
// transport client points at an unreachable address; these tests never let
// a submission reach the wire.
func newTestModel(t *testing.T, balance int) Model {
	t.Helper()

	s, err := store.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	if err := s.SaveCredits(balance); err != nil {
		t.Fatalf("SaveCredits: %v", err)
	}

	ledger, err := credits.NewLedger(s, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	client := transport.NewClient(&transport.ClientConfig{
		PrimaryURL:  "http://127.0.0.1:1/api/chat",
		FallbackURL: "http://127.0.0.1:1/api/chat/fallback",
	}, zerolog.Nop())
	ctrl := session.NewController(client, ledger, s, session.DefaultConfig(), zerolog.Nop())

	m := NewModel(ctrl, ledger, s, Options{Theme: "dark"}, zerolog.Nop())
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return sized.(Model)
}

func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, _ := m.Update(key)
	return next.(Model)
}

// =============================================================================
// TOP-UP OVERLAY
// =============================================================================

func TestTopUpKeyOpensOverlay(t *testing.T) {
	m := newTestModel(t, credits.DefaultGrant)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})

	if !m.showTopUp {
		t.Fatal("ctrl+b should open the top-up overlay")
	}
	if view := m.View(); !strings.Contains(view, "Top Up Credits") {
		t.Error("overlay view should list the credit packages")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.showTopUp {
		t.Error("esc should close the top-up overlay")
	}
}

func TestTopUpPurchaseAddsCredits(t *testing.T) {
	m := newTestModel(t, 5)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlB})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.topUpIndex != 1 {
		t.Fatalf("topUpIndex = %d, want 1", m.topUpIndex)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.showTopUp {
		t.Error("purchase should close the overlay")
	}
	want := 5 + credits.Packages[1].Credits
	if got := m.ledger.Balance(); got != want {
		t.Errorf("Balance = %d, want %d", got, want)
	}
}

func TestSubmitWhenExhaustedOpensTopUp(t *testing.T) {
	m := newTestModel(t, credits.MessageCost-1)

	m.input.SetValue("hello")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if !m.showTopUp {
		t.Fatal("a blocked submit should open the top-up overlay")
	}
	if got := m.ledger.Balance(); got != credits.MessageCost-1 {
		t.Errorf("Balance = %d, want unchanged %d", got, credits.MessageCost-1)
	}
	if !m.ctrl.Conversation().IsEmpty() {
		t.Error("blocked submit must not append messages")
	}
}
