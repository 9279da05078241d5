// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists the application's durable state: the credit
// balance, the user's preferences, the chat summary index, and full
// conversation histories. Each document is a JSON file under the state
// directory (default ~/.lumen/state), written atomically.
//
// Reads are deliberately forgiving: a missing or corrupt document reads as
// its zero value and is logged, never surfaced as a startup failure. The
// Watcher reports external rewrites so concurrent instances converge.
package store
