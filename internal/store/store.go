// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/lumen-tui/internal/model"
	"github.com/jeranaias/lumen-tui/internal/util"
)

// State file names under the store directory.
const (
	creditsFile     = "credits.json"
	preferencesFile = "preferences.json"
	chatsFile       = "chats.json"
)

// conversationsSubdir holds one JSON file per conversation.
const conversationsSubdir = "conversations"

// =============================================================================
// STORE
// =============================================================================

// Store is the file-backed state store for credits, preferences, and chats.
// Every value lives in its own JSON file so a corrupt file only loses the
// value it holds. Reads of missing or corrupt files degrade to the zero
// value and log a warning rather than failing the caller.
type Store struct {
	dir string
	log zerolog.Logger

	mu sync.Mutex
}

// New opens (creating if needed) a store rooted at dir.
func New(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, conversationsSubdir), 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, log: log}, nil
}

// DefaultDir returns the standard state directory, ~/.lumen/state.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".lumen", "state"), nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// =============================================================================
// CREDITS
// =============================================================================

// LoadCredits returns the persisted credit balance. The second return is
// false when no balance has ever been saved (first run) or the file is
// unreadable, letting the caller seed the default grant.
func (s *Store) LoadCredits() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var balance int
	if !s.readJSON(creditsFile, &balance) {
		return 0, false
	}
	if balance < 0 {
		s.log.Warn().Int("balance", balance).Msg("negative persisted balance, clamping to zero")
		balance = 0
	}
	return balance, true
}

// SaveCredits persists the credit balance. The write is synchronous and
// atomic so a crash cannot leave a stale balance behind a completed debit.
func (s *Store) SaveCredits(balance int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(creditsFile, balance)
}

// =============================================================================
// PREFERENCES
// =============================================================================

// LoadPreferences returns the saved user profile, or nil when none exists.
func (s *Store) LoadPreferences() *model.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prefs model.Preferences
	if !s.readJSON(preferencesFile, &prefs) {
		return nil
	}
	return &prefs
}

// SavePreferences persists the user profile.
func (s *Store) SavePreferences(prefs *model.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(preferencesFile, prefs)
}

// =============================================================================
// JSON FILE HELPERS
// =============================================================================

// readJSON loads a state file into v. Returns false when the file is
// missing or corrupt; corruption is logged and treated as absence.
func (s *Store) readJSON(name string, v any) bool {
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("file", name).Msg("failed to read state file")
		}
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		// RELIABILITY: A corrupt state file must never wedge startup.
		// Treat it as empty and let the next save replace it.
		s.log.Warn().Err(err).Str("file", name).Msg("corrupt state file, resetting to defaults")
		return false
	}
	return true
}

// writeJSON atomically persists v to a state file.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	return s.writeBytes(filepath.Join(s.dir, name), data)
}

// writeBytes atomically persists raw bytes to an absolute path.
func (s *Store) writeBytes(path string, data []byte) error {
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFile(path, data, 0644)
}
