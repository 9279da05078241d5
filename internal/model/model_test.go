// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if msg.IsStreaming {
		t.Error("user message should not be streaming")
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID should start with 'msg_', got %q", msg.ID)
	}
	if msg.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMessage_StreamingLifecycle(t *testing.T) {
	msg := NewAssistantMessage()

	if !msg.IsStreaming {
		t.Fatal("assistant message should start streaming")
	}
	if !msg.IsEmpty() {
		t.Error("new assistant message should be empty")
	}

	msg.AppendChunk("Hi")
	msg.AppendChunk(" there!")

	if got := msg.DisplayContent(); got != "Hi there!" {
		t.Errorf("DisplayContent = %q, want %q", got, "Hi there!")
	}
	if msg.Content != "" {
		t.Errorf("Content should be empty mid-stream, got %q", msg.Content)
	}

	msg.Finalize()

	if msg.IsStreaming {
		t.Error("message should not be streaming after Finalize")
	}
	if msg.Content != "Hi there!" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hi there!")
	}

	// Appends after finalize are ignored
	msg.AppendChunk(" more")
	if msg.DisplayContent() != "Hi there!" {
		t.Error("AppendChunk after Finalize should be a no-op")
	}
}

func TestMessage_FinalizeIdempotent(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendChunk("partial")
	msg.Finalize()
	msg.Finalize()

	if msg.Content != "partial" {
		t.Errorf("Content = %q, want %q", msg.Content, "partial")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_Ordering(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("one")
	conv.AddAssistantMessage().Finalize()
	conv.AddUserMessage("two")

	if conv.MessageCount() != 3 {
		t.Fatalf("MessageCount = %d, want 3", conv.MessageCount())
	}
	if conv.Messages[0].Content != "one" || conv.Messages[2].Content != "two" {
		t.Error("messages out of insertion order")
	}
}

func TestConversation_AppendToLast(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hello")
	conv.AddAssistantMessage()

	conv.AppendToLast("Hi")
	conv.AppendToLast(" there!")
	conv.FinalizeLast()

	last := conv.LastMessage()
	if last.Content != "Hi there!" {
		t.Errorf("Content = %q, want %q", last.Content, "Hi there!")
	}
}

func TestConversation_AppendToLast_NotStreaming(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hello")

	// Last message is a finalized user message; append must not mutate it.
	conv.AppendToLast("junk")
	if conv.LastMessage().Content != "hello" {
		t.Error("AppendToLast mutated a finalized message")
	}
}

func TestConversation_DropLastIfStreaming(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hello")
	conv.AddAssistantMessage()
	conv.AppendToLast("partial")

	conv.DropLastIfStreaming()

	if conv.MessageCount() != 1 {
		t.Errorf("MessageCount = %d, want 1", conv.MessageCount())
	}

	// No-op when the last message is final
	conv.DropLastIfStreaming()
	if conv.MessageCount() != 1 {
		t.Error("DropLastIfStreaming removed a finalized message")
	}
}

func TestConversation_Snapshot(t *testing.T) {
	conv := NewConversation()
	conv.ID = "chat_1"
	conv.AddUserMessage("hello")
	conv.AddAssistantMessage()
	conv.AppendToLast("par")

	snap := conv.Snapshot()

	if snap.ID != "chat_1" {
		t.Errorf("ID = %q, want %q", snap.ID, "chat_1")
	}
	if snap.MessageCount() != 2 {
		t.Fatalf("MessageCount = %d, want 2", snap.MessageCount())
	}

	// In-flight streaming content is carried into the copy.
	if got := snap.Messages[1].DisplayContent(); got != "par" {
		t.Errorf("DisplayContent = %q, want %q", got, "par")
	}
	if !snap.Messages[1].IsStreaming {
		t.Error("snapshot should preserve the streaming flag")
	}

	// The copy is fully detached from the live conversation.
	conv.AppendToLast("tial")
	snap.Messages[0].Content = "mutated"

	if got := snap.Messages[1].DisplayContent(); got != "par" {
		t.Errorf("snapshot content changed to %q after live append", got)
	}
	if conv.Messages[0].Content != "hello" {
		t.Error("mutating the snapshot leaked into the live conversation")
	}
}

func TestConversation_FirstUserMessage(t *testing.T) {
	conv := NewConversation()
	if conv.FirstUserMessage() != nil {
		t.Error("FirstUserMessage on empty conversation should be nil")
	}

	conv.AddUserMessage("first")
	conv.AddAssistantMessage().Finalize()
	conv.AddUserMessage("second")

	if got := conv.FirstUserMessage().Content; got != "first" {
		t.Errorf("FirstUserMessage = %q, want %q", got, "first")
	}
}

// =============================================================================
// WIRE CONVERSION TESTS
// =============================================================================

func TestConversation_ToWireMessages(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hello")
	asst := conv.AddAssistantMessage()
	asst.AppendChunk("Hi there!")
	asst.Finalize()
	conv.AddUserMessage("how are you")
	conv.AddAssistantMessage() // in-progress placeholder, must be excluded

	wire := conv.ToWireMessages()

	if len(wire) != 3 {
		t.Fatalf("wire message count = %d, want 3", len(wire))
	}
	if wire[0].Role != "user" || wire[0].Content != "hello" {
		t.Errorf("wire[0] = %+v", wire[0])
	}
	if wire[1].Role != "assistant" || wire[1].Content != "Hi there!" {
		t.Errorf("wire[1] = %+v", wire[1])
	}
	if wire[2].Content != "how are you" {
		t.Errorf("wire[2] = %+v", wire[2])
	}
}

// =============================================================================
// SUMMARY TESTS
// =============================================================================

func TestConversation_Summary(t *testing.T) {
	conv := NewConversation()
	conv.ID = "chat-1"
	conv.AddUserMessage("hello")
	asst := conv.AddAssistantMessage()
	asst.AppendChunk("Hi there!")
	asst.Finalize()

	sum := conv.Summary()

	if sum.ID != "chat-1" {
		t.Errorf("ID = %q, want %q", sum.ID, "chat-1")
	}
	if sum.Title != "hello" {
		t.Errorf("Title = %q, want %q", sum.Title, "hello")
	}
	if sum.Preview != "Hi there!..." {
		t.Errorf("Preview = %q, want %q", sum.Preview, "Hi there!...")
	}
	if sum.LastMessageAt.IsZero() {
		t.Error("LastMessageAt should be set")
	}
}

func TestConversation_Summary_TitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 40)

	conv := NewConversation()
	conv.AddUserMessage(long)

	sum := conv.Summary()

	want := strings.Repeat("a", 30) + "..."
	if sum.Title != want {
		t.Errorf("Title = %q, want %q", sum.Title, want)
	}
}

func TestConversation_Summary_PreviewTruncation(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("q")
	asst := conv.AddAssistantMessage()
	asst.AppendChunk(strings.Repeat("b", 80))
	asst.Finalize()

	sum := conv.Summary()

	want := strings.Repeat("b", 50) + "..."
	if sum.Preview != want {
		t.Errorf("Preview = %q, want %q", sum.Preview, want)
	}
}

func TestConversation_Summary_FlattensNewlines(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("line one\r\nline two")

	sum := conv.Summary()

	if strings.ContainsAny(sum.Title, "\r\n") {
		t.Errorf("Title should not contain newlines, got %q", sum.Title)
	}
	if sum.Title != "line one line two" {
		t.Errorf("Title = %q, want %q", sum.Title, "line one line two")
	}
}

func TestConversation_Summary_Empty(t *testing.T) {
	conv := NewConversation()
	sum := conv.Summary()

	if sum.Title != "New Chat" {
		t.Errorf("Title = %q, want %q", sum.Title, "New Chat")
	}
}
