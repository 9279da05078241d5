// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/lumen-tui/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// =============================================================================
// CREDITS
// =============================================================================

func TestStore_Credits_FirstRun(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.LoadCredits(); ok {
		t.Error("LoadCredits should report absence on first run")
	}
}

func TestStore_Credits_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveCredits(90); err != nil {
		t.Fatalf("SaveCredits: %v", err)
	}

	balance, ok := s.LoadCredits()
	if !ok {
		t.Fatal("LoadCredits should find the saved balance")
	}
	if balance != 90 {
		t.Errorf("balance = %d, want 90", balance)
	}
}

func TestStore_Credits_Corrupt(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(s.Dir(), creditsFile)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.LoadCredits(); ok {
		t.Error("corrupt credits file should read as absent")
	}
}

func TestStore_Credits_NegativeClamped(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(s.Dir(), creditsFile)
	if err := os.WriteFile(path, []byte("-25"), 0644); err != nil {
		t.Fatal(err)
	}

	balance, ok := s.LoadCredits()
	if !ok {
		t.Fatal("negative balance should still load")
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

// =============================================================================
// PREFERENCES
// =============================================================================

func TestStore_Preferences_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	if s.LoadPreferences() != nil {
		t.Error("LoadPreferences should be nil before any save")
	}

	prefs := &model.Preferences{
		Name:           "Ada",
		Interests:      []string{"chess"},
		ResponseLength: model.ResponseConcise,
		Topics:         map[string]bool{"science": true},
	}
	if err := s.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}

	got := s.LoadPreferences()
	if got == nil {
		t.Fatal("LoadPreferences returned nil after save")
	}
	if got.Name != "Ada" || got.ResponseLength != model.ResponseConcise {
		t.Errorf("got %+v", got)
	}
	if !got.Topics["science"] {
		t.Error("science topic should survive a round trip")
	}
}

// =============================================================================
// CHAT SUMMARIES
// =============================================================================

func TestStore_Chats_UpsertAndList(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	older := model.ChatSummary{ID: "a", Title: "first", LastMessageAt: now.Add(-time.Hour), Preview: "one..."}
	newer := model.ChatSummary{ID: "b", Title: "second", LastMessageAt: now, Preview: "two..."}

	if err := s.UpsertChat(older); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertChat(newer); err != nil {
		t.Fatal(err)
	}

	chats := s.ListChats()
	if len(chats) != 2 {
		t.Fatalf("len = %d, want 2", len(chats))
	}
	if chats[0].ID != "b" || chats[1].ID != "a" {
		t.Errorf("chats not ordered by recency: %v, %v", chats[0].ID, chats[1].ID)
	}
}

func TestStore_Chats_UpsertReplaces(t *testing.T) {
	s := newTestStore(t)

	sum := model.ChatSummary{ID: "a", Title: "old", LastMessageAt: time.Now()}
	if err := s.UpsertChat(sum); err != nil {
		t.Fatal(err)
	}

	sum.Title = "new"
	sum.LastMessageAt = time.Now()
	if err := s.UpsertChat(sum); err != nil {
		t.Fatal(err)
	}

	chats := s.ListChats()
	if len(chats) != 1 {
		t.Fatalf("len = %d, want 1", len(chats))
	}
	if chats[0].Title != "new" {
		t.Errorf("Title = %q, want %q", chats[0].Title, "new")
	}
}

func TestStore_Chats_Remove(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertChat(model.ChatSummary{ID: "a", LastMessageAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveChat("a"); err != nil {
		t.Fatal(err)
	}
	if got := s.ListChats(); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}

	// Removing an unknown ID is a no-op
	if err := s.RemoveChat("missing"); err != nil {
		t.Errorf("RemoveChat(missing) = %v, want nil", err)
	}
}

func TestStore_Chats_CorruptIndex(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(s.Dir(), chatsFile)
	if err := os.WriteFile(path, []byte("[[["), 0644); err != nil {
		t.Fatal(err)
	}

	if got := s.ListChats(); len(got) != 0 {
		t.Errorf("corrupt index should read as empty, got %d entries", len(got))
	}

	// A subsequent upsert replaces the corrupt file
	if err := s.UpsertChat(model.ChatSummary{ID: "a", LastMessageAt: time.Now()}); err != nil {
		t.Fatalf("UpsertChat after corruption: %v", err)
	}
	if got := s.ListChats(); len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func TestStore_Conversation_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	conv := model.NewConversation()
	conv.ID = "chat-1"
	conv.AddUserMessage("hello")
	asst := conv.AddAssistantMessage()
	asst.AppendChunk("Hi there!")
	asst.Finalize()

	if err := s.SaveConversation(conv); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}

	got, err := s.LoadConversation("chat-1")
	if err != nil {
		t.Fatalf("LoadConversation: %v", err)
	}
	if got.MessageCount() != 2 {
		t.Fatalf("MessageCount = %d, want 2", got.MessageCount())
	}
	if got.Messages[1].Content != "Hi there!" {
		t.Errorf("Content = %q", got.Messages[1].Content)
	}
	if got.Messages[1].IsStreaming {
		t.Error("loaded messages must not be streaming")
	}
}

func TestStore_Conversation_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadConversation("missing")
	if !errors.Is(err, ErrChatNotFound) {
		t.Errorf("err = %v, want ErrChatNotFound", err)
	}
}

func TestStore_Conversation_RequiresID(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveConversation(model.NewConversation()); err == nil {
		t.Error("SaveConversation without ID should fail")
	}
}
