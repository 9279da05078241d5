// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for lumen.
//
// Configuration sources, in order of precedence:
//   - LUMEN_* environment variables (including a .env file in the cwd)
//   - ~/.lumen/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete lumen configuration.
type Config struct {
	// Endpoints configuration
	Endpoints EndpointsConfig `toml:"endpoints"`

	// Chat configuration
	Chat ChatConfig `toml:"chat"`

	// State configuration
	State StateConfig `toml:"state"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`
}

// EndpointsConfig contains the chat route configuration.
type EndpointsConfig struct {
	// PrimaryURL is the streaming chat completion route
	PrimaryURL string `toml:"primary_url"`
	// FallbackURL is the non-streaming fallback route
	FallbackURL string `toml:"fallback_url"`
	// APIKey is sent as a bearer token when non-empty
	APIKey string `toml:"api_key"`
	// TimeoutSecs bounds a whole request including stream consumption.
	// Valid range is 5-300 seconds; out-of-range values are clamped.
	TimeoutSecs int `toml:"timeout_secs"`
}

// ChatConfig contains conversation defaults.
type ChatConfig struct {
	// DefaultMode is the persona active at startup:
	// "assistant", "friend", "advisor", or "doctor"
	DefaultMode string `toml:"default_mode"`
}

// StateConfig contains persistence configuration.
type StateConfig struct {
	// Dir is the state directory (empty = default ~/.lumen/state)
	Dir string `toml:"dir"`
	// WatchEnabled enables reloading state written by other instances
	WatchEnabled bool `toml:"watch_enabled"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// Markdown renders assistant responses as markdown
	Markdown bool `toml:"markdown"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `toml:"level"`
	// File is the log file path (empty = default ~/.lumen/lumen.log)
	File string `toml:"file"`
}

// Timeout returns the endpoint timeout as a duration.
func (e EndpointsConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			PrimaryURL:  "http://127.0.0.1:8080/api/chat",
			FallbackURL: "http://127.0.0.1:8080/api/chat/fallback",
			TimeoutSecs: 30,
		},
		Chat: ChatConfig{
			DefaultMode: "assistant",
		},
		State: StateConfig{
			WatchEnabled: true,
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the lumen configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".lumen"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to defaults.
// A .env file in the working directory and LUMEN_* environment variables are
// applied on top, then the result is clamped and validated.
func Load() (*Config, error) {
	// Load .env into the process environment; a missing file is fine.
	_ = godotenv.Load()

	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation, bypassing the default search location.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# lumen configuration file")
	fmt.Fprintln(file, "# Generated by lumen - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// SetDefaults fills missing values and clamps out-of-range ones.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Endpoints.PrimaryURL == "" {
		c.Endpoints.PrimaryURL = defaults.Endpoints.PrimaryURL
	}
	if c.Endpoints.FallbackURL == "" {
		c.Endpoints.FallbackURL = defaults.Endpoints.FallbackURL
	}
	if c.Endpoints.TimeoutSecs == 0 {
		c.Endpoints.TimeoutSecs = defaults.Endpoints.TimeoutSecs
	}
	// Clamp rather than reject: a wild timeout is a typo, not a reason to
	// refuse startup.
	if c.Endpoints.TimeoutSecs < 5 {
		c.Endpoints.TimeoutSecs = 5
	}
	if c.Endpoints.TimeoutSecs > 300 {
		c.Endpoints.TimeoutSecs = 300
	}

	if c.Chat.DefaultMode == "" {
		c.Chat.DefaultMode = defaults.Chat.DefaultMode
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	for field, raw := range map[string]string{
		"endpoints.primary_url":  c.Endpoints.PrimaryURL,
		"endpoints.fallback_url": c.Endpoints.FallbackURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid URL '%s'", raw),
			})
		}
	}

	validModes := map[string]bool{"assistant": true, "friend": true, "advisor": true, "doctor": true}
	if !validModes[strings.ToLower(c.Chat.DefaultMode)] {
		errs = append(errs, ValidationError{
			Field:   "chat.default_mode",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: assistant, friend, advisor, doctor", c.Chat.DefaultMode),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - LUMEN_PRIMARY_URL: overrides endpoints.primary_url
//   - LUMEN_FALLBACK_URL: overrides endpoints.fallback_url
//   - LUMEN_API_KEY: overrides endpoints.api_key
//   - LUMEN_TIMEOUT_SECS: overrides endpoints.timeout_secs
//   - LUMEN_MODE: overrides chat.default_mode
//   - LUMEN_STATE_DIR: overrides state.dir
//   - LUMEN_THEME: overrides ui.theme
//   - LUMEN_LOG_LEVEL: overrides logging.level
//   - LUMEN_LOG_FILE: overrides logging.file
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LUMEN_PRIMARY_URL"); v != "" {
		c.Endpoints.PrimaryURL = v
	}
	if v := os.Getenv("LUMEN_FALLBACK_URL"); v != "" {
		c.Endpoints.FallbackURL = v
	}
	if v := os.Getenv("LUMEN_API_KEY"); v != "" {
		c.Endpoints.APIKey = v
	}
	if v := os.Getenv("LUMEN_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Endpoints.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("LUMEN_MODE"); v != "" {
		c.Chat.DefaultMode = v
	}
	if v := os.Getenv("LUMEN_STATE_DIR"); v != "" {
		c.State.Dir = v
	}
	if v := os.Getenv("LUMEN_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("LUMEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LUMEN_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}
