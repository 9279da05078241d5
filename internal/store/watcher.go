// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// =============================================================================
// STATE CHANGE WATCHER
// =============================================================================

// ChangeKind identifies which state document changed on disk.
type ChangeKind int

const (
	ChangeCredits ChangeKind = iota
	ChangePreferences
	ChangeChats
)

// ChangeEvent signals that another process rewrote a state file. The UI
// reloads the named document so concurrent instances stay in sync.
type ChangeEvent struct {
	Kind ChangeKind
}

// Watcher observes the store directory and reports external writes.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	events   chan ChangeEvent
	debounce time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	pending map[ChangeKind]time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher over the store's directory. Events are
// debounced so an atomic write (create temp, rename) produces one event.
func NewWatcher(s *Store, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		store:    s,
		watcher:  fsw,
		events:   make(chan ChangeEvent, 8),
		debounce: 200 * time.Millisecond,
		log:      log,
		pending:  make(map[ChangeKind]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Events returns the channel external state changes are delivered on.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Watch starts observing the store directory.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(w.store.Dir()); err != nil {
		return err
	}
	go w.processEvents()
	go w.processPending()
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Renames matter here: atomic writes land via rename.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			kind, ok := classify(filepath.Base(event.Name))
			if !ok {
				continue
			}
			w.mu.Lock()
			w.pending[kind] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("state watcher error")
		}
	}
}

func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []ChangeKind
			for kind, at := range w.pending {
				if now.Sub(at) >= w.debounce {
					ready = append(ready, kind)
					delete(w.pending, kind)
				}
			}
			w.mu.Unlock()

			for _, kind := range ready {
				select {
				case w.events <- ChangeEvent{Kind: kind}:
				default:
					// Receiver is behind; drop rather than block.
				}
			}
		}
	}
}

func classify(name string) (ChangeKind, bool) {
	switch name {
	case creditsFile:
		return ChangeCredits, true
	case preferencesFile:
		return ChangePreferences, true
	case chatsFile:
		return ChangeChats, true
	}
	return 0, false
}
