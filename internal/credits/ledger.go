// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credits

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/lumen-tui/internal/store"
)

// =============================================================================
// CREDIT CONSTANTS
// =============================================================================

const (
	// DefaultGrant is the balance seeded on first run.
	DefaultGrant = 100

	// MessageCost is the fixed price of one submission. Retries and
	// fallback switches within the same submission are free.
	MessageCost = 10

	// LowThreshold marks the advisory zone: at or below this balance the
	// UI shows a warning, but submissions still go through.
	LowThreshold = 20
)

// Package is a purchasable credit bundle.
type Package struct {
	Name    string
	Credits int
	Price   string
}

// Packages lists the purchase options shown on the top-up screen.
var Packages = []Package{
	{Name: "Starter", Credits: 50, Price: "$4.99"},
	{Name: "Standard", Credits: 150, Price: "$9.99"},
	{Name: "Premium", Credits: 400, Price: "$19.99"},
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrInsufficientCredits is returned by Debit when the balance cannot cover
// a message. Use errors.Is(err, ErrInsufficientCredits) to check.
var ErrInsufficientCredits = &LedgerError{Message: "insufficient credits"}

// LedgerError represents a credit ledger error.
type LedgerError struct {
	Message string
}

func (e *LedgerError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing ledger errors.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger tracks the spendable credit balance. Every mutation persists
// synchronously before it is observable, so the on-disk balance never runs
// ahead of or behind the in-memory one across a crash.
type Ledger struct {
	store *store.Store
	log   zerolog.Logger

	mu      sync.Mutex
	balance int
}

// NewLedger loads the persisted balance, seeding the default grant on first
// run. The seed itself is persisted so a crash cannot re-grant it.
func NewLedger(s *store.Store, log zerolog.Logger) (*Ledger, error) {
	l := &Ledger{store: s, log: log}

	balance, ok := s.LoadCredits()
	if !ok {
		balance = DefaultGrant
		if err := s.SaveCredits(balance); err != nil {
			return nil, err
		}
		log.Info().Int("balance", balance).Msg("seeded initial credit grant")
	}

	l.balance = balance
	return l, nil
}

// Balance returns the current credit balance.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// CanAfford reports whether one message can be paid for.
func (l *Ledger) CanAfford() bool {
	return l.Balance() >= MessageCost
}

// Low reports whether the balance is in the advisory warning zone.
func (l *Ledger) Low() bool {
	return l.Balance() <= LowThreshold
}

// Exhausted reports whether the balance blocks further submissions.
func (l *Ledger) Exhausted() bool {
	return l.Balance() < MessageCost
}

// Debit charges one message and returns the new balance. The debit is
// persisted before it returns; a persistence failure rolls the balance
// back so memory and disk never disagree.
//
// The affordability check lives here rather than with CanAfford at the
// call site: another lumen process can spend from the shared balance, so
// check-then-debit would race. Callers use CanAfford only for display.
//
// Debits are never refunded: a submission that later fails or is stopped
// has still consumed its credits.
func (l *Ledger) Debit() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance < MessageCost {
		return l.balance, ErrInsufficientCredits
	}

	l.balance -= MessageCost
	if err := l.store.SaveCredits(l.balance); err != nil {
		l.balance += MessageCost
		return l.balance, err
	}

	l.log.Debug().Int("balance", l.balance).Msg("debited message cost")
	return l.balance, nil
}

// TopUp adds purchased credits and returns the new balance.
func (l *Ledger) TopUp(amount int) (int, error) {
	if amount <= 0 {
		return l.Balance(), &LedgerError{Message: "top-up amount must be positive"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance += amount
	if err := l.store.SaveCredits(l.balance); err != nil {
		l.balance -= amount
		return l.balance, err
	}

	l.log.Info().Int("amount", amount).Int("balance", l.balance).Msg("credits topped up")
	return l.balance, nil
}

// Reload re-reads the persisted balance after an external change.
func (l *Ledger) Reload() {
	balance, ok := l.store.LoadCredits()
	if !ok {
		return
	}
	l.mu.Lock()
	l.balance = balance
	l.mu.Unlock()
}
