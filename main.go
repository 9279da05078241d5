// lumen TUI - A terminal front-end for streaming LLM chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/lumen-tui/internal/config"
	"github.com/jeranaias/lumen-tui/internal/credits"
	"github.com/jeranaias/lumen-tui/internal/prompt"
	"github.com/jeranaias/lumen-tui/internal/session"
	"github.com/jeranaias/lumen-tui/internal/store"
	"github.com/jeranaias/lumen-tui/internal/transport"
	"github.com/jeranaias/lumen-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (default ~/.lumen/config.toml)")
	modeFlag := flag.String("mode", "", "starting persona: assistant, friend, advisor, doctor")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lumen %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath, *modeFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, modeFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if modeFlag != "" {
		cfg.Chat.DefaultMode = strings.ToLower(modeFlag)
	}

	log, logClose, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logClose()

	log.Info().
		Str("version", Version).
		Str("mode", cfg.Chat.DefaultMode).
		Msg("starting lumen")

	stateDir := cfg.State.Dir
	if stateDir == "" {
		stateDir, err = store.DefaultDir()
		if err != nil {
			return fmt.Errorf("resolving state directory: %w", err)
		}
	}
	st, err := store.New(stateDir, log)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}

	ledger, err := credits.NewLedger(st, log)
	if err != nil {
		return fmt.Errorf("initializing credit ledger: %w", err)
	}

	client := transport.NewClient(&transport.ClientConfig{
		PrimaryURL:  cfg.Endpoints.PrimaryURL,
		FallbackURL: cfg.Endpoints.FallbackURL,
		APIKey:      cfg.Endpoints.APIKey,
		Timeout:     cfg.Endpoints.Timeout(),
	}, log)

	ctrl := session.NewController(client, ledger, st, session.DefaultConfig(), log)
	if mode := prompt.ParseMode(cfg.Chat.DefaultMode); mode != ctrl.Mode() {
		if err := ctrl.SetMode(mode); err != nil {
			log.Warn().Err(err).Str("mode", cfg.Chat.DefaultMode).Msg("could not set startup mode")
		}
	}

	m := chat.NewModel(ctrl, ledger, st, chat.Options{
		Theme:    cfg.UI.Theme,
		Markdown: cfg.UI.Markdown,
	}, log)

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Forward external state file changes into the UI loop so a second
	// lumen instance's writes show up without a restart.
	if cfg.State.WatchEnabled {
		watcher, werr := store.NewWatcher(st, log)
		if werr != nil {
			log.Warn().Err(werr).Msg("state watcher unavailable")
		} else if werr = watcher.Watch(); werr != nil {
			log.Warn().Err(werr).Msg("state watcher failed to start")
			watcher.Close()
		} else {
			defer watcher.Close()
			go func() {
				for ev := range watcher.Events() {
					p.Send(chat.NewStateChangedMsg(ev.Kind))
				}
			}()
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	writeDefaultConfig(cfg)
	return cfg, nil
}

// writeDefaultConfig persists the effective config on first run so users
// have a file to edit. Failures are not fatal; lumen runs on defaults.
func writeDefaultConfig(cfg *config.Config) {
	path, err := config.ConfigPath()
	if err != nil {
		return
	}
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	_ = config.Save(cfg)
}

// newLogger builds the file-backed zerolog logger. The TUI owns stdout, so
// logs never go to the terminal; with no file configured they go to the
// default log path under the config directory.
func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	path := cfg.Logging.File
	if path == "" {
		dir, derr := config.ConfigDir()
		if derr != nil {
			return zerolog.Nop(), func() {}, derr
		}
		path = filepath.Join(dir, "lumen.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), func() {}, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}

	log := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return log, func() { f.Close() }, nil
}
