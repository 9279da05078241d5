// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives the submission lifecycle for one conversation:
// idle, submitted, streaming, then ready or errored.
//
// The controller debits credits before sending, streams the response on a
// background goroutine, switches to the fallback route at most once per
// conversation, and supports explicit retry back on the primary route.
// Neither the fallback switch nor a retry charges additional credits, and
// a failed or stopped exchange is never refunded. Progress is reported to
// the UI loop through an ordered event channel.
package session
