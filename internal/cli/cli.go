// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Argument parsing and usage text for aihub-tui.
package cli

import (
	"fmt"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdStatus
	CmdExport
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ServerURL string // --server overrides config
	JSON      bool   // --json output where supported
	Quiet     bool   // --quiet suppresses decorative output

	// Command-specific
	Register       bool   // login --register
	ConversationID string // export <id>
	Format         string // export --format
	Output         string // export --output
	Subcommand     string // config subcommand (show|get|set|path)
	ConfigKey      string
	ConfigVal      string

	// Raw args remaining after the command name
	Raw []string
}

const usageText = `aihub-tui - terminal client for the aihub chat backend

Aihub-tui talks to an aihub server: it streams assistant replies into a
terminal chat workspace, keeps a local history cache for offline search,
and exports transcripts to markdown or JSON.

Usage:
  aihub-tui                       Start the TUI (default)
  aihub-tui login                 Log in and store a session
  aihub-tui login --register      Create an account, then log in
  aihub-tui logout                Clear the stored session
  aihub-tui status, s             Show server and session status
  aihub-tui export <id>           Export a conversation transcript
  aihub-tui config [subcommand]   View and modify configuration
  aihub-tui version, v            Show version information
  aihub-tui help, h               Show this help

Export:
  aihub-tui export <id>                     Export as markdown
  aihub-tui export <id> --format json      Export as JSON
  aihub-tui export <id> --output ./out     Write into a directory

Config:
  aihub-tui config                          Show current configuration
  aihub-tui config get server.base_url     Read a single key
  aihub-tui config set ui.theme dark       Set a key and save
  aihub-tui config path                    Show config file location

Global flags:
  --server <url>      Override the server base URL for this invocation
  --json              Machine-readable output (status, config show)
  --quiet, -q         Suppress decorative output

Environment:
  AIHUB_SERVER_URL    Server base URL
  AIHUB_MODEL         Default model for new conversations
  AIHUB_THEME         UI theme (dark, light, auto)
  AIHUB_NO_HISTORY    Disable the local history cache

Configuration file: ~/.aihub/config.toml
Session file:       ~/.aihub/session.json

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("aihub-tui version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments (without the program name) and
// returns the command and its arguments.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "login":
		parseLoginArgs(&args, remaining)
		return CmdLogin, args

	case "logout":
		return CmdLogout, args

	case "status", "s":
		return CmdStatus, args

	case "export":
		parseExportArgs(&args, remaining)
		return CmdExport, args

	case "config":
		parseConfigArgs(&args, remaining)
		return CmdConfig, args

	case "version", "v", "--version":
		return CmdVersion, args

	case "help", "h", "--help", "-h":
		return CmdHelp, args

	default:
		fmt.Printf("Unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags extracts flags valid for every command and returns the
// remaining positional arguments.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		switch arg := argv[i]; arg {
		case "--server":
			if i+1 < len(argv) {
				i++
				args.ServerURL = argv[i]
			}
		case "--json":
			args.JSON = true
		case "--quiet", "-q":
			args.Quiet = true
		default:
			if v, ok := strings.CutPrefix(arg, "--server="); ok {
				args.ServerURL = v
				continue
			}
			remaining = append(remaining, arg)
		}
	}

	return remaining, args
}

func parseLoginArgs(args *Args, remaining []string) {
	for _, arg := range remaining {
		if arg == "--register" || arg == "-r" {
			args.Register = true
		}
	}
}

func parseExportArgs(args *Args, remaining []string) {
	args.Format = ""
	for i := 0; i < len(remaining); i++ {
		switch arg := remaining[i]; arg {
		case "--format", "-f":
			if i+1 < len(remaining) {
				i++
				args.Format = remaining[i]
			}
		case "--output", "-o":
			if i+1 < len(remaining) {
				i++
				args.Output = remaining[i]
			}
		default:
			if v, ok := strings.CutPrefix(arg, "--format="); ok {
				args.Format = v
				continue
			}
			if v, ok := strings.CutPrefix(arg, "--output="); ok {
				args.Output = v
				continue
			}
			if args.ConversationID == "" && !strings.HasPrefix(arg, "-") {
				args.ConversationID = arg
			}
		}
	}
}

func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) == 0 {
		args.Subcommand = "show"
		return
	}

	args.Subcommand = strings.ToLower(remaining[0])
	rest := remaining[1:]

	switch args.Subcommand {
	case "get":
		if len(rest) > 0 {
			args.ConfigKey = rest[0]
		}
	case "set":
		if len(rest) > 0 {
			args.ConfigKey = rest[0]
		}
		if len(rest) > 1 {
			args.ConfigVal = strings.Join(rest[1:], " ")
		}
	}
}
