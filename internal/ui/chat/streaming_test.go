// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"fmt"
	"testing"
	"time"
)

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

func TestStreamingBufferWrite(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("Hello")
	sb.Write(" ")
	sb.Write("World")

	if pending := sb.Pending(); pending != 3 {
		t.Errorf("Expected 3 pending chunks, got %d", pending)
	}
}

func TestStreamingBufferWriteReportsBatchThreshold(t *testing.T) {
	sb := NewStreamingBuffer()

	for i := 0; i < batchSize-1; i++ {
		if sb.Write("x") {
			t.Fatalf("Write reported batch threshold at chunk %d", i+1)
		}
	}
	if !sb.Write("x") {
		t.Errorf("Write should report batch threshold at chunk %d", batchSize)
	}
}

func TestStreamingBufferFlushBySize(t *testing.T) {
	sb := NewStreamingBuffer()

	// Below the batch size and within the flush interval: nothing drains.
	sb.Write("A")
	sb.Write("B")
	if _, ok := sb.Flush(); ok {
		t.Error("Should not flush before reaching batch size")
	}

	for i := 0; i < batchSize-2; i++ {
		sb.Write("x")
	}
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("Should flush after reaching batch size")
	}
	want := "AB"
	for i := 0; i < batchSize-2; i++ {
		want += "x"
	}
	if content != want {
		t.Errorf("Expected flushed content %q, got %q", want, content)
	}
	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending chunks after flush, got %d", pending)
	}
}

func TestStreamingBufferFlushByTime(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("slow")
	if _, ok := sb.Flush(); ok {
		t.Fatal("Should not flush immediately")
	}

	time.Sleep((minFlushMs + 5) * time.Millisecond)

	if !sb.ShouldFlush() {
		t.Error("ShouldFlush should report true after the flush interval")
	}
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("Should flush after the flush interval")
	}
	if content != "slow" {
		t.Errorf("Expected flushed content %q, got %q", "slow", content)
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("tail")
	content, ok := sb.ForceFlush()
	if !ok {
		t.Fatal("ForceFlush should drain regardless of thresholds")
	}
	if content != "tail" {
		t.Errorf("Expected %q, got %q", "tail", content)
	}

	// Empty buffer drains nothing.
	if _, ok := sb.ForceFlush(); ok {
		t.Error("ForceFlush on empty buffer should report nothing drained")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()

	for i := 0; i < 5; i++ {
		sb.Write(fmt.Sprintf("chunk%d", i))
	}
	sb.Reset()

	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending chunks after reset, got %d", pending)
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("Reset buffer should have nothing to drain")
	}
}

func TestStreamingBufferShouldFlushEmpty(t *testing.T) {
	sb := NewStreamingBuffer()

	time.Sleep((minFlushMs + 5) * time.Millisecond)
	if sb.ShouldFlush() {
		t.Error("ShouldFlush should be false with no pending chunks")
	}
}
