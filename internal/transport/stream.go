// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport provides the HTTP client for streaming model responses.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// =============================================================================
// STREAM READER
// =============================================================================

// The primary route answers in data-stream framing: newline-delimited parts,
// each a single-character type prefix, a colon, and a JSON payload.
//
//	0:"text delta"        incremental assistant text
//	3:"error message"     terminal stream error
//	d:{...} / e:{...}     finish markers
//
// Unknown part types and unparseable lines are skipped; a 3: part is a
// terminal error. End-of-stream without a finish marker still counts as
// normal completion.

// StreamReader handles line-by-line parsing of a data-stream response.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	chunkCount  int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each content chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					callback(Chunk{Done: true})
					return nil
				}
				return err
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single line from the stream.
// Returns (nil, nil) for lines that carry nothing renderable.
func (s *StreamReader) readChunk() (*Chunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Process the last unterminated line before reporting EOF
		if len(line) == 0 {
			return nil, err
		}
	}

	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return nil, nil
	}

	prefix, payload, ok := bytes.Cut(line, []byte(":"))
	if !ok || len(prefix) != 1 {
		// Skip malformed lines
		return nil, nil
	}

	switch prefix[0] {
	case '0':
		var text string
		if err := json.Unmarshal(payload, &text); err != nil {
			return nil, nil
		}
		if text == "" {
			return nil, nil
		}
		s.accumulator.WriteString(text)
		s.chunkCount++
		return &Chunk{Content: text}, nil

	case '3':
		var message string
		if err := json.Unmarshal(payload, &message); err != nil || message == "" {
			message = "stream reported an error"
		}
		return nil, &ClientError{Type: ErrTypeMalformedStream, Message: message}

	case 'd', 'e':
		return &Chunk{Done: true}, nil

	default:
		return nil, nil
	}
}

// Accumulated returns all content received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// ChunkCount returns the number of content chunks received.
func (s *StreamReader) ChunkCount() int {
	return s.chunkCount
}
