// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation.
//
// Command: status
// Short:   Show server reachability, session, and local cache status
// Aliases: s
//
// Examples:
//   aihub-tui status              Show status
//   aihub-tui status --json       Status in JSON format
//
// Status Sections:
//   Server:    Base URL and whether the capability probe answered
//   Session:   Logged-in user, or "not logged in"
//   Retrieval: Whether the server-side retrieval pipeline is initialized
//   History:   Local cache path and whether it is enabled
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/session"
)

// statusReport is the JSON shape of `status --json`.
type statusReport struct {
	ServerURL     string `json:"server_url"`
	Reachable     bool   `json:"reachable"`
	LoggedIn      bool   `json:"logged_in"`
	Username      string `json:"username,omitempty"`
	Retrieval     bool   `json:"retrieval"`
	HistoryPath   string `json:"history_path,omitempty"`
	HistoryActive bool   `json:"history_active"`
}

// HandleStatus probes the server and prints a short report. An unreachable
// server is reported, not treated as a command failure.
func HandleStatus(cfg *config.Config, client *api.Client, sessions *session.Store, args Args) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report := statusReport{
		ServerURL:     client.BaseURL(),
		HistoryPath:   cfg.History.Path,
		HistoryActive: cfg.History.Enabled,
	}

	if status, err := client.LangChainStatus(ctx); err == nil {
		report.Reachable = true
		report.Retrieval = status.Initialized
	}

	if sess := sessions.Current(); sess != nil {
		report.LoggedIn = true
		report.Username = sess.User.Username
	}

	if args.JSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("failed to encode status: "+err.Error()))
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	fmt.Println(titleStyle.Render("aihub-tui status"))
	fmt.Println()
	fmt.Println(row("Server", report.ServerURL))
	if report.Reachable {
		fmt.Println(row("Reachable", okStyle.Render("yes")))
	} else {
		fmt.Println(row("Reachable", warnStyle.Render("no")))
	}
	if report.LoggedIn {
		fmt.Println(row("Session", report.Username))
	} else {
		fmt.Println(row("Session", warnStyle.Render("not logged in")))
	}
	if report.Reachable {
		if report.Retrieval {
			fmt.Println(row("Retrieval", okStyle.Render("initialized")))
		} else {
			fmt.Println(row("Retrieval", "unavailable"))
		}
	}
	if report.HistoryActive {
		fmt.Println(row("History", report.HistoryPath))
	} else {
		fmt.Println(row("History", "disabled"))
	}

	return 0
}
