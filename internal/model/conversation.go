// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"time"

	"github.com/jeranaias/lumen-tui/internal/transport"
	"github.com/jeranaias/lumen-tui/internal/util"
)

// Truncation limits for derived chat summaries.
const (
	// TitleMaxRunes bounds the summary title taken from the first user
	// message; an ellipsis is appended only when truncation happened.
	TitleMaxRunes = 30

	// PreviewMaxRunes bounds the summary preview taken from the latest
	// message; the stored preview always carries a trailing ellipsis.
	PreviewMaxRunes = 50
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the ordered message sequence for one chat.
// Insertion order is chronological order. A Conversation is owned
// exclusively by one session controller and never shared across chats.
type Conversation struct {
	// ID is empty for a fresh conversation and minted on first submission.
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Messages []*Message `json:"messages"`
}

// NewConversation creates an empty conversation with no identity yet.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddUserMessage creates and appends a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	return msg
}

// AddAssistantMessage creates and appends a streaming assistant message.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	return msg
}

// Snapshot deep-copies the conversation, including in-flight streaming
// content. Callers on other goroutines read the snapshot freely while the
// owning controller keeps mutating the live conversation.
func (c *Conversation) Snapshot() *Conversation {
	cp := &Conversation{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]*Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		cp.Messages[i] = msg.snapshot()
	}
	return cp
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// FirstUserMessage returns the earliest user message, or nil.
func (c *Conversation) FirstUserMessage() *Message {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg
		}
	}
	return nil
}

// AppendToLast appends a chunk to the last message if it is streaming.
func (c *Conversation) AppendToLast(chunk string) {
	last := c.LastMessage()
	if last != nil && last.IsStreaming {
		last.AppendChunk(chunk)
	}
}

// FinalizeLast finalizes the last streaming message, keeping whatever
// content has accumulated (a stopped stream keeps its partial text).
func (c *Conversation) FinalizeLast() {
	last := c.LastMessage()
	if last != nil && last.IsStreaming {
		last.Finalize()
		c.UpdatedAt = time.Now()
	}
}

// DropLastIfStreaming removes a trailing in-progress assistant message.
// Used when a failed attempt is replayed: the retry gets a fresh
// placeholder rather than appending to a half-filled one.
func (c *Conversation) DropLastIfStreaming() {
	last := c.LastMessage()
	if last != nil && last.IsStreaming {
		c.Messages = c.Messages[:len(c.Messages)-1]
	}
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// EstimateTokens estimates the total token count of the conversation.
func (c *Conversation) EstimateTokens() int {
	total := 0
	for _, msg := range c.Messages {
		total += msg.EstimateTokens()
		// Overhead for message structure
		total += 4
	}
	return total
}

// =============================================================================
// WIRE CONVERSION
// =============================================================================

// ToWireMessages converts the conversation to the transport wire format.
// In-progress assistant messages are excluded: the transport is stateless,
// and a replayed request must carry exactly the finalized history.
func (c *Conversation) ToWireMessages() []transport.Message {
	messages := make([]transport.Message, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if msg.IsStreaming || msg.IsEmpty() {
			continue
		}
		messages = append(messages, transport.Message{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}
	return messages
}

// =============================================================================
// SUMMARY DERIVATION
// =============================================================================

// ChatSummary is the lightweight persisted view of a conversation, keyed by
// chat id in the chats document.
type ChatSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	LastMessageAt time.Time `json:"lastMessage"`
	Preview       string    `json:"preview"`
}

// Summary derives the persisted summary for this conversation: title from
// the first user message, preview from the latest message, timestamped now.
func (c *Conversation) Summary() ChatSummary {
	title := "New Chat"
	if first := c.FirstUserMessage(); first != nil {
		title = summaryTitle(first.Content)
	}

	preview := ""
	if last := c.LastMessage(); last != nil {
		preview = summaryPreview(last.DisplayContent())
	}

	return ChatSummary{
		ID:            c.ID,
		Title:         title,
		LastMessageAt: time.Now(),
		Preview:       preview,
	}
}

// summaryTitle truncates a first user message into a title. The ellipsis
// appears only when the content exceeds the limit.
func summaryTitle(content string) string {
	content = flattenWhitespace(content)
	if util.RuneLen(content) <= TitleMaxRunes {
		return content
	}
	return util.TruncateRunesNoEllipsis(content, TitleMaxRunes) + "..."
}

// summaryPreview truncates the latest message into a preview. The stored
// preview always carries a trailing ellipsis, truncated or not.
func summaryPreview(content string) string {
	return util.TruncateRunesNoEllipsis(flattenWhitespace(content), PreviewMaxRunes) + "..."
}

// flattenWhitespace folds newlines into spaces for one-line display.
func flattenWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
