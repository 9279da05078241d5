// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Endpoints.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, want 30", cfg.Endpoints.TimeoutSecs)
	}
	if cfg.Chat.DefaultMode != "assistant" {
		t.Errorf("DefaultMode = %q", cfg.Chat.DefaultMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[endpoints]
primary_url = "https://example.com/api/chat"
timeout_secs = 60

[chat]
default_mode = "friend"

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Endpoints.PrimaryURL != "https://example.com/api/chat" {
		t.Errorf("PrimaryURL = %q", cfg.Endpoints.PrimaryURL)
	}
	if cfg.Endpoints.Timeout() != 60*time.Second {
		t.Errorf("Timeout = %v", cfg.Endpoints.Timeout())
	}
	if cfg.Chat.DefaultMode != "friend" {
		t.Errorf("DefaultMode = %q", cfg.Chat.DefaultMode)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
	// Unset fields fall back to defaults
	if cfg.Endpoints.FallbackURL == "" {
		t.Error("FallbackURL should default")
	}
}

func TestSetDefaults_ClampsTimeout(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 30},
		{1, 5},
		{30, 30},
		{9999, 300},
	}

	for _, tt := range tests {
		cfg := Default()
		cfg.Endpoints.TimeoutSecs = tt.in
		cfg.SetDefaults()
		if cfg.Endpoints.TimeoutSecs != tt.want {
			t.Errorf("TimeoutSecs %d -> %d, want %d", tt.in, cfg.Endpoints.TimeoutSecs, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"valid", func(*Config) {}, true},
		{"bad primary URL", func(c *Config) { c.Endpoints.PrimaryURL = "not a url" }, false},
		{"bad mode", func(c *Config) { c.Chat.DefaultMode = "wizard" }, false},
		{"bad theme", func(c *Config) { c.UI.Theme = "sepia" }, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, false},
		{"mode case insensitive", func(c *Config) { c.Chat.DefaultMode = "Doctor" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LUMEN_PRIMARY_URL", "https://env.example.com/chat")
	t.Setenv("LUMEN_API_KEY", "env-key")
	t.Setenv("LUMEN_MODE", "advisor")
	t.Setenv("LUMEN_TIMEOUT_SECS", "45")
	t.Setenv("LUMEN_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Endpoints.PrimaryURL != "https://env.example.com/chat" {
		t.Errorf("PrimaryURL = %q", cfg.Endpoints.PrimaryURL)
	}
	if cfg.Endpoints.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.Endpoints.APIKey)
	}
	if cfg.Chat.DefaultMode != "advisor" {
		t.Errorf("DefaultMode = %q", cfg.Chat.DefaultMode)
	}
	if cfg.Endpoints.TimeoutSecs != 45 {
		t.Errorf("TimeoutSecs = %d", cfg.Endpoints.TimeoutSecs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Chat.DefaultMode = "doctor"
	cfg.Endpoints.APIKey = "secret"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Chat.DefaultMode != "doctor" {
		t.Errorf("DefaultMode = %q", loaded.Chat.DefaultMode)
	}
	if loaded.Endpoints.APIKey != "secret" {
		t.Errorf("APIKey = %q", loaded.Endpoints.APIKey)
	}
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[endpoints]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}
