// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// aihub-tui.
//
// Configuration lives in ~/.aihub/config.toml, with sensible defaults,
// environment variable overrides, and validation. A file watcher built on
// fsnotify lets the running UI pick up edits (theme changes in particular)
// without a restart.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AIHUB_*)
//   - ~/.aihub/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	base := cfg.Server.BaseURL
//	theme := cfg.UI.Theme
package config
