// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - Export command implementation.
//
// Command: export <conversation-id>
// Short:   Fetch a conversation and write its transcript to a file
//
// Examples:
//   aihub-tui export 42                      Markdown into the export dir
//   aihub-tui export 42 --format json       JSON instead of markdown
//   aihub-tui export 42 --output ./out      Write into a directory
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/export"
)

// HandleExport fetches the conversation with its transcript and writes it
// using the configured (or flag-overridden) format and directory.
func HandleExport(cfg *config.Config, client *api.Client, args Args) int {
	if args.ConversationID == "" {
		fmt.Fprintln(os.Stderr, errStyle.Render("export requires a conversation id"))
		fmt.Fprintln(os.Stderr, "usage: aihub-tui export <id> [--format markdown|json] [--output dir]")
		return 1
	}

	format := args.Format
	if format == "" {
		format = cfg.Export.Format
	}

	opts := export.DefaultOptions()
	opts.OutputDir = cfg.Export.Dir
	if args.Output != "" {
		opts.OutputDir = args.Output
	}

	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conv, err := client.GetConversation(ctx, args.ConversationID)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("failed to fetch conversation: "+err.Error()))
		if api.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "run `aihub-tui login` first")
		}
		return 1
	}

	if len(conv.Messages) == 0 {
		messages, err := client.ListMessages(ctx, args.ConversationID)
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("failed to fetch messages: "+err.Error()))
			return 1
		}
		conv.Messages = messages
	}

	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("export failed: "+err.Error()))
		return 1
	}

	if !args.Quiet {
		fmt.Println(okStyle.Render("Exported: ") + path)
	}
	return 0
}
