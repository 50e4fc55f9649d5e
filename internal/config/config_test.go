// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.BaseURL != "http://127.0.0.1:8000/api/v1" {
		t.Errorf("base URL = %q", cfg.Server.BaseURL)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
version = "1.0.0"

[server]
base_url = "https://aihub.example.com/api/v1"
timeout_secs = 10

[chat]
default_model = "deepseek-reasoner"

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.BaseURL != "https://aihub.example.com/api/v1" {
		t.Errorf("base URL = %q", cfg.Server.BaseURL)
	}
	if cfg.Chat.DefaultModel != "deepseek-reasoner" {
		t.Errorf("model = %q", cfg.Chat.DefaultModel)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	// Unset fields fall back to defaults.
	if cfg.Chat.PageSize != 50 {
		t.Errorf("page size = %d", cfg.Chat.PageSize)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Chat.DefaultModel != "deepseek-chat" {
		t.Errorf("model = %q", cfg.Chat.DefaultModel)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AIHUB_SERVER_URL", "http://10.0.0.5:9000/api/v1")
	t.Setenv("AIHUB_MODEL", "env-model")
	t.Setenv("AIHUB_THEME", "dark")
	t.Setenv("AIHUB_TIMEOUT_SECS", "5")
	t.Setenv("AIHUB_NO_HISTORY", "1")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.BaseURL != "http://10.0.0.5:9000/api/v1" {
		t.Errorf("base URL = %q", cfg.Server.BaseURL)
	}
	if cfg.Chat.DefaultModel != "env-model" || cfg.UI.Theme != "dark" {
		t.Errorf("model = %q, theme = %q", cfg.Chat.DefaultModel, cfg.UI.Theme)
	}
	if cfg.Server.TimeoutSecs != 5 {
		t.Errorf("timeout = %d", cfg.Server.TimeoutSecs)
	}
	if cfg.History.Enabled {
		t.Error("history should be disabled")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Server.BaseURL = "://nope" }},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }},
		{"bad format", func(c *Config) { c.Export.Format = "pdf" }},
		{"page size too large", func(c *Config) { c.Chat.PageSize = 10000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.SetDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.UI.Theme = "light"
	cfg.Chat.DefaultModel = "saved-model"
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
	if loaded.UI.Theme != "light" || loaded.Chat.DefaultModel != "saved-model" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("ui.theme", "light"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := cfg.Get("ui.theme")
	if err != nil || got != "light" {
		t.Errorf("Get = %v, %v", got, err)
	}

	if err := cfg.Set("server.timeout_secs", "45"); err != nil {
		t.Fatalf("Set int from string: %v", err)
	}
	if cfg.Server.TimeoutSecs != 45 {
		t.Errorf("timeout = %d", cfg.Server.TimeoutSecs)
	}

	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	updated := Default()
	updated.UI.Theme = "light"
	if err := SaveTOML(updated, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.UI.Theme != "light" {
			t.Errorf("reloaded theme = %q", cfg.UI.Theme)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
