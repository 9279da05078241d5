// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/jeranaias/lumen-tui/internal/model"
)

// =============================================================================
// CHAT SUMMARY LIST
// =============================================================================

// ListChats returns every saved chat summary, most recent first. A missing
// or corrupt index degrades to an empty list.
func (s *Store) ListChats() []model.ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadChatsLocked()
}

// UpsertChat inserts or replaces the summary for sum.ID and persists the
// index ordered by recency.
func (s *Store) UpsertChat(sum model.ChatSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := s.loadChatsLocked()

	replaced := false
	for i := range chats {
		if chats[i].ID == sum.ID {
			chats[i] = sum
			replaced = true
			break
		}
	}
	if !replaced {
		chats = append(chats, sum)
	}

	sortChats(chats)
	return s.writeJSON(chatsFile, chats)
}

// RemoveChat deletes a summary from the index and the conversation file
// behind it. Removing an unknown ID is a no-op.
func (s *Store) RemoveChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := s.loadChatsLocked()

	kept := chats[:0]
	for _, c := range chats {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(chats) {
		return nil
	}

	if err := s.writeJSON(chatsFile, kept); err != nil {
		return err
	}
	os.Remove(s.conversationPath(id))
	return nil
}

func (s *Store) loadChatsLocked() []model.ChatSummary {
	var chats []model.ChatSummary
	if !s.readJSON(chatsFile, &chats) {
		return []model.ChatSummary{}
	}
	sortChats(chats)
	return chats
}

func sortChats(chats []model.ChatSummary) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
}

// =============================================================================
// FULL CONVERSATION PERSISTENCE
// =============================================================================

// ErrChatNotFound is returned when a conversation file doesn't exist.
// Use errors.Is(err, ErrChatNotFound) to check for this error.
var ErrChatNotFound = &ChatError{Message: "chat not found"}

// ChatError represents a chat persistence error.
type ChatError struct {
	Message string
}

func (e *ChatError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing chat errors.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// SaveConversation persists the full message history for a conversation.
func (s *Store) SaveConversation(conv *model.Conversation) error {
	if conv.ID == "" {
		return &ChatError{Message: "conversation has no ID"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	return s.writeBytes(s.conversationPath(conv.ID), data)
}

// LoadConversation retrieves the full message history for a chat ID.
func (s *Store) LoadConversation(id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.conversationPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Store) conversationPath(id string) string {
	return filepath.Join(s.dir, conversationsSubdir, id+".json")
}
