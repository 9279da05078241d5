// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// Streaming render pacing. Chunks arrive far faster than a terminal can
// usefully repaint, so they are batched and flushed at most maxFPS times
// per second.
const (
	batchSize  = 15 // Chunks per flush before forcing a render
	maxFPS     = 30 // Upper bound on renders per second
	minFlushMs = 33 // Minimum interval between flushes (1000 / maxFPS)
)

// StreamingBuffer accumulates streamed chunks between renders.
//
// PERFORMANCE: re-rendering the viewport on every chunk makes long
// responses quadratic in the terminal. Batching keeps the render cost
// bounded regardless of how fast the endpoint streams.
type StreamingBuffer struct {
	mu        sync.Mutex
	pending   strings.Builder
	count     int
	lastFlush time.Time
}

// NewStreamingBuffer creates an empty buffer.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{lastFlush: time.Now()}
}

// Write appends a chunk and reports whether the batch threshold was hit.
func (b *StreamingBuffer) Write(chunk string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending.WriteString(chunk)
	b.count++
	return b.count >= batchSize
}

// ShouldFlush reports whether enough time has passed since the last flush.
func (b *StreamingBuffer) ShouldFlush() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return false
	}
	return time.Since(b.lastFlush) >= minFlushMs*time.Millisecond
}

// Flush drains the buffered text if either threshold is met. The second
// return value reports whether anything was drained.
func (b *StreamingBuffer) Flush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count < batchSize && time.Since(b.lastFlush) < minFlushMs*time.Millisecond {
		return "", false
	}
	return b.drainLocked()
}

// ForceFlush drains everything regardless of thresholds. Used when a
// stream finishes, so no trailing text is left unrendered.
func (b *StreamingBuffer) ForceFlush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drainLocked()
}

func (b *StreamingBuffer) drainLocked() (string, bool) {
	if b.count == 0 {
		return "", false
	}
	text := b.pending.String()
	b.pending.Reset()
	b.count = 0
	b.lastFlush = time.Now()
	return text, true
}

// Pending returns the number of buffered chunks.
func (b *StreamingBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Reset discards any buffered text.
func (b *StreamingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.Reset()
	b.count = 0
	b.lastFlush = time.Now()
}

// streamTickCmd schedules the next streaming flush tick.
func streamTickCmd() tea.Cmd {
	return tea.Tick(minFlushMs*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
