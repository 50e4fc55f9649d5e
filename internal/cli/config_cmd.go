// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Config command implementation.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display current configuration
//   get <key>           Print a single value
//   set <key> <value>   Set a value and save
//   path                Show configuration file path
//
// Keys use dot notation matching the TOML layout, e.g. server.base_url,
// chat.default_model, ui.theme, export.format, history.enabled.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/aihub-tui/internal/config"
)

// HandleConfig dispatches the config subcommands against the on-disk
// configuration file.
func HandleConfig(args Args) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("failed to load config: "+err.Error()))
		return 1
	}

	switch args.Subcommand {
	case "show", "":
		return configShow(cfg, args)
	case "get":
		return configGet(cfg, args)
	case "set":
		return configSet(cfg, args)
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
			return 1
		}
		fmt.Println(path)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand: %s\n", args.Subcommand)
		fmt.Fprintln(os.Stderr, "usage: aihub-tui config [show|get|set|path]")
		return 1
	}
}

func configShow(cfg *config.Config, args Args) int {
	if args.JSON {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("failed to encode config: "+err.Error()))
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	fmt.Println(titleStyle.Render("aihub-tui configuration"))
	fmt.Println()
	for _, key := range config.GetAllKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Println(row(key, fmt.Sprintf("%v", value)))
	}
	return 0
}

func configGet(cfg *config.Config, args Args) int {
	if args.ConfigKey == "" {
		fmt.Fprintln(os.Stderr, "usage: aihub-tui config get <key>")
		return 1
	}

	value, err := cfg.Get(args.ConfigKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		return 1
	}
	fmt.Printf("%v\n", value)
	return 0
}

func configSet(cfg *config.Config, args Args) int {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		fmt.Fprintln(os.Stderr, "usage: aihub-tui config set <key> <value>")
		return 1
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("invalid value: "+err.Error()))
		return 1
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("failed to save config: "+err.Error()))
		return 1
	}

	if !args.Quiet {
		fmt.Println(okStyle.Render(fmt.Sprintf("Set %s = %s", args.ConfigKey, args.ConfigVal)))
	}
	return 0
}
