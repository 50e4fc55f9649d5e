// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestParseDefaultsToTUI(t *testing.T) {
	cmd, _ := Parse(nil)
	if cmd != CmdTUI {
		t.Errorf("Parse(nil) = %v, want CmdTUI", cmd)
	}
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{[]string{"tui"}, CmdTUI},
		{[]string{"login"}, CmdLogin},
		{[]string{"logout"}, CmdLogout},
		{[]string{"status"}, CmdStatus},
		{[]string{"s"}, CmdStatus},
		{[]string{"export", "42"}, CmdExport},
		{[]string{"config"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"v"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"bogus"}, CmdHelp},
	}

	for _, tt := range tests {
		cmd, _ := Parse(tt.argv)
		if cmd != tt.want {
			t.Errorf("Parse(%v) = %v, want %v", tt.argv, cmd, tt.want)
		}
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := Parse([]string{"--server", "http://example.com:8000", "--json", "-q", "status"})
	if cmd != CmdStatus {
		t.Fatalf("cmd = %v, want CmdStatus", cmd)
	}
	if args.ServerURL != "http://example.com:8000" {
		t.Errorf("ServerURL = %q", args.ServerURL)
	}
	if !args.JSON || !args.Quiet {
		t.Errorf("JSON = %v, Quiet = %v", args.JSON, args.Quiet)
	}

	_, args = Parse([]string{"--server=http://other:9000", "status"})
	if args.ServerURL != "http://other:9000" {
		t.Errorf("ServerURL = %q", args.ServerURL)
	}
}

func TestParseLoginRegister(t *testing.T) {
	_, args := Parse([]string{"login", "--register"})
	if !args.Register {
		t.Error("Register flag not set")
	}

	_, args = Parse([]string{"login"})
	if args.Register {
		t.Error("Register flag set without --register")
	}
}

func TestParseExportArgs(t *testing.T) {
	_, args := Parse([]string{"export", "42", "--format", "json", "--output", "/tmp/out"})
	if args.ConversationID != "42" {
		t.Errorf("ConversationID = %q", args.ConversationID)
	}
	if args.Format != "json" {
		t.Errorf("Format = %q", args.Format)
	}
	if args.Output != "/tmp/out" {
		t.Errorf("Output = %q", args.Output)
	}

	_, args = Parse([]string{"export", "--format=markdown", "7"})
	if args.ConversationID != "7" || args.Format != "markdown" {
		t.Errorf("id = %q, format = %q", args.ConversationID, args.Format)
	}
}

func TestParseConfigArgs(t *testing.T) {
	_, args := Parse([]string{"config"})
	if args.Subcommand != "show" {
		t.Errorf("Subcommand = %q, want show", args.Subcommand)
	}

	_, args = Parse([]string{"config", "get", "ui.theme"})
	if args.Subcommand != "get" || args.ConfigKey != "ui.theme" {
		t.Errorf("get parsed as %q %q", args.Subcommand, args.ConfigKey)
	}

	_, args = Parse([]string{"config", "set", "chat.default_model", "deepseek-chat"})
	if args.Subcommand != "set" || args.ConfigKey != "chat.default_model" || args.ConfigVal != "deepseek-chat" {
		t.Errorf("set parsed as %q %q %q", args.Subcommand, args.ConfigKey, args.ConfigVal)
	}
}
