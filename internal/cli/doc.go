// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses command-line arguments and implements the non-TUI
// commands of aihub-tui: login, status, export, config, and version.
//
// Running the binary with no command starts the terminal interface; the
// commands here exist for scripting and for recovering from a broken
// session or config without entering the TUI.
package cli
