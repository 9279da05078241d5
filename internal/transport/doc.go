// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport implements the streaming HTTP client for the two chat
// completion routes.
//
// The primary route streams incremental assistant text in data-stream
// framing; the fallback route answers with one synthesized JSON document,
// which this package presents uniformly as a stream of length one. Both
// routes accept the identical request shape (full message history, mode,
// chat id, user preferences), so a caller can replay the same Request
// against either endpoint.
//
// The client is deliberately policy-free: it does not retry, it does not
// pick endpoints, and every failure (network, non-2xx, malformed framing,
// timeout) normalizes to a single ClientError taxonomy. Retry and fallback
// decisions belong to the session controller.
//
// Cancellation is cooperative via context: cancelling stops chunk delivery
// and releases the connection, and content already delivered stays with the
// caller.
package transport
