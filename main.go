// aihub-tui - A terminal client for the aihub chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/cli"
	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/history"
	"github.com/jeranaias/aihub-tui/internal/session"
	"github.com/jeranaias/aihub-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	// Version and help need no config or network.
	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if args.ServerURL != "" {
		cfg.Server.BaseURL = args.ServerURL
	}

	sessions, err := session.NewStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open session store: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL: cfg.Server.BaseURL,
		Timeout: cfg.Timeout(),
	}, sessions)

	switch cmd {
	case cli.CmdTUI:
		os.Exit(runTUI(cfg, client, sessions))
	case cli.CmdLogin:
		os.Exit(cli.HandleLogin(client, sessions, args))
	case cli.CmdLogout:
		os.Exit(cli.HandleLogout(sessions, args))
	case cli.CmdStatus:
		os.Exit(cli.HandleStatus(cfg, client, sessions, args))
	case cli.CmdExport:
		os.Exit(cli.HandleExport(cfg, client, args))
	case cli.CmdConfig:
		os.Exit(cli.HandleConfig(args))
	default:
		cli.PrintUsage()
		os.Exit(1)
	}
}

// runTUI opens the optional history cache and starts the terminal
// interface. A broken cache degrades to running without local history.
func runTUI(cfg *config.Config, client *api.Client, sessions *session.Store) int {
	var hist *history.Store
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: history cache unavailable: %v\n", err)
		} else {
			hist = store
			defer store.Close()
		}
	}

	if err := ui.Run(cfg, client, sessions, hist); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
