// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/chatstate"
	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/history"
	"github.com/jeranaias/aihub-tui/internal/session"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StateUpdateMsg carries a chat state change into the Bubble Tea loop.
type StateUpdateMsg struct {
	Update chatstate.Update
}

// LoggedOutMsg is emitted when the session is cleared, either by the user or
// by a 401 forcing logout. The UI returns to the login screen.
type LoggedOutMsg struct{}

// LoggedInMsg is emitted after a successful authentication.
type LoggedInMsg struct {
	Session *session.Session
}

// LoginFailedMsg carries an authentication failure back to the login form.
type LoginFailedMsg struct {
	Err error
}

// RegisteredMsg is emitted after a successful account registration.
type RegisteredMsg struct{}

// ConfigReloadedMsg is emitted when the config file changes on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// SummaryMsg carries the summary auxiliary view result.
type SummaryMsg struct {
	Summary *api.Summary
	Err     error
}

// ContextMsg carries the context-window auxiliary view result.
type ContextMsg struct {
	Window *api.ContextWindow
	Err    error
}

// LangChainMsg carries the retrieval capability probe result. A nil Status
// with a nil Err means the probe itself failed; the badge stays hidden.
type LangChainMsg struct {
	Status *api.LangChainStatus
}

// SearchResultsMsg carries local history search hits.
type SearchResultsMsg struct {
	Query   string
	Results []history.SearchResult
	Err     error
}

// ExportedMsg reports where a transcript export was written.
type ExportedMsg struct {
	Path string
	Err  error
}

// OpFailedMsg reports a failed conversation operation (refresh, select,
// create, delete, rename, pin, send).
type OpFailedMsg struct {
	Err error
}

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge forwards events from outside the Bubble Tea loop (stream callbacks,
// session listeners, the config watcher) into the running program. Events
// arriving before the program starts are dropped; the initial view renders
// from a fresh snapshot anyway.
type Bridge struct {
	program atomic.Pointer[tea.Program]
}

// Attach binds the bridge to a running program.
func (b *Bridge) Attach(p *tea.Program) {
	b.program.Store(p)
}

// Send forwards a message into the program, if attached.
func (b *Bridge) Send(msg tea.Msg) {
	if p := b.program.Load(); p != nil {
		p.Send(msg)
	}
}
