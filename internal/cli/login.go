// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login.go - Login, register, and logout commands.
//
// Command: login [--register]
// Short:   Authenticate against the aihub server and persist the session
//
// Examples:
//   aihub-tui login               Log in with an existing account
//   aihub-tui login --register    Create an account, then log in
//   aihub-tui logout              Clear the stored session
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/session"
)

// HandleLogin prompts for credentials, authenticates, and stores the
// resulting session. With --register it creates the account first.
func HandleLogin(client *api.Client, sessions *session.Store, args Args) int {
	if sess := sessions.Current(); sess != nil && !args.Quiet {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Already logged in as %s; logging in again replaces the session.", sess.User.Username)))
	}

	reader := bufio.NewReader(os.Stdin)

	username, err := promptLine(reader, "Username: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("failed to read username: "+err.Error()))
		return 1
	}
	if username == "" {
		fmt.Fprintln(os.Stderr, errStyle.Render("username is required"))
		return 1
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("failed to read password: "+err.Error()))
		return 1
	}

	ctx := context.Background()

	if args.Register {
		email, err := promptLine(reader, "Email: ")
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("failed to read email: "+err.Error()))
			return 1
		}
		fullName, err := promptLine(reader, "Full name (optional): ")
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("failed to read full name: "+err.Error()))
			return 1
		}

		reg := api.RegisterRequest{
			Username: username,
			Email:    email,
			FullName: fullName,
			Password: password,
		}
		if err := client.Register(ctx, reg); err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("registration failed: "+err.Error()))
			return 1
		}
		if !args.Quiet {
			fmt.Println(okStyle.Render("Account created."))
		}
	}

	sess, err := client.Authenticate(ctx, username, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("login failed: "+err.Error()))
		return 1
	}

	if !args.Quiet {
		fmt.Println(okStyle.Render(fmt.Sprintf("Logged in as %s.", sess.User.Username)))
	}
	return 0
}

// HandleLogout clears the stored session. Logging out while not logged in
// is not an error.
func HandleLogout(sessions *session.Store, args Args) int {
	wasAuthenticated := sessions.Authenticated()
	sessions.Logout()

	if !args.Quiet {
		if wasAuthenticated {
			fmt.Println(okStyle.Render("Logged out."))
		} else {
			fmt.Println("No active session.")
		}
	}
	return 0
}

// promptLine reads one trimmed line from the reader.
func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal,
// falling back to a plain line read when it is not (piped input).
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
