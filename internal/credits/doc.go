// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credits implements the message credit ledger. Each submission
// costs a fixed number of credits, debited before the request is sent and
// never refunded. The ledger persists every mutation synchronously through
// the state store.
package credits
