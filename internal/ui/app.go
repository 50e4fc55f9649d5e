// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/chatstate"
	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/history"
	"github.com/jeranaias/aihub-tui/internal/session"
	"github.com/jeranaias/aihub-tui/internal/ui/styles"
)

// =============================================================================
// SCREENS
// =============================================================================

type screen int

const (
	screenLogin screen = iota
	screenChat
)

// =============================================================================
// APP MODEL
// =============================================================================

// App is the root Bubble Tea model. It switches between the login screen and
// the chat workspace, and reacts to forced logout and config reloads.
type App struct {
	cfg      *config.Config
	theme    *styles.Theme
	client   *api.Client
	sessions *session.Store
	manager  *chatstate.Manager
	hist     *history.Store

	screen screen
	login  loginModel
	chat   chatModel

	width  int
	height int
}

// NewApp assembles the root model. hist may be nil when the local history
// cache is disabled.
func NewApp(cfg *config.Config, client *api.Client, sessions *session.Store, manager *chatstate.Manager, hist *history.Store) *App {
	theme := styles.NewTheme(cfg.UI.Theme)

	app := &App{
		cfg:      cfg,
		theme:    theme,
		client:   client,
		sessions: sessions,
		manager:  manager,
		hist:     hist,
		login:    newLoginModel(theme, client),
		chat:     newChatModel(theme, cfg, manager, client, hist),
	}

	if sessions.Authenticated() {
		app.screen = screenChat
	}

	return app
}

func (a *App) Init() tea.Cmd {
	if a.screen == screenChat {
		return tea.Batch(a.chat.Init(), a.login.Init())
	}
	return a.login.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var loginCmd, chatCmd tea.Cmd
		a.login, loginCmd = a.login.Update(msg)
		a.chat, chatCmd = a.chat.Update(msg)
		return a, tea.Batch(loginCmd, chatCmd)

	case LoggedInMsg:
		a.screen = screenChat
		a.chat = newChatModel(a.theme, a.cfg, a.manager, a.client, a.hist)
		var sizeCmd tea.Cmd
		a.chat, sizeCmd = a.chat.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
		return a, tea.Batch(a.chat.Init(), sizeCmd)

	case LoggedOutMsg:
		// Covers both explicit logout and the forced logout a 401 triggers.
		a.manager.CancelStream()
		a.screen = screenLogin
		a.login = newLoginModel(a.theme, a.client)
		var sizeCmd tea.Cmd
		a.login, sizeCmd = a.login.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
		return a, tea.Batch(a.login.Init(), sizeCmd)

	case ConfigReloadedMsg:
		a.cfg = msg.Config
		a.theme = styles.NewTheme(msg.Config.UI.Theme)
		if a.screen == screenChat {
			a.chat.theme = a.theme
			a.chat.cfg = a.cfg
			a.chat.syncViewport(false)
		} else {
			a.login.theme = a.theme
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && a.screen == screenLogin {
			return a, tea.Quit
		}
		if a.screen == screenChat && keyMatches(msg, a.chat.keys.Logout) {
			sessions := a.sessions
			return a, func() tea.Msg {
				sessions.Logout()
				return nil // the session listener emits LoggedOutMsg
			}
		}
		if a.screen == screenLogin && msg.String() == "ctrl+q" {
			return a, tea.Quit
		}
	}

	var cmd tea.Cmd
	if a.screen == screenLogin {
		a.login, cmd = a.login.Update(msg)
	} else {
		a.chat, cmd = a.chat.Update(msg)
	}
	return a, cmd
}

func (a *App) View() string {
	if a.screen == screenLogin {
		return a.login.View()
	}
	return a.chat.View()
}

// =============================================================================
// PROGRAM WIRING
// =============================================================================

// Run starts the TUI. It wires the session listener, the chat state manager's
// update callback, and the config watcher into the program through a Bridge,
// then blocks until the program exits.
func Run(cfg *config.Config, client *api.Client, sessions *session.Store, hist *history.Store) error {
	bridge := &Bridge{}

	manager := chatstate.NewManager(client, func(u chatstate.Update) {
		bridge.Send(StateUpdateMsg{Update: u})
	})
	if hist != nil {
		manager.SetCache(hist)
	}

	sessions.Subscribe(func(authenticated bool) {
		if !authenticated {
			bridge.Send(LoggedOutMsg{})
		}
	})

	app := NewApp(cfg, client, sessions, manager, hist)
	program := tea.NewProgram(app, tea.WithAltScreen())
	bridge.Attach(program)

	if path, err := config.ConfigPath(); err == nil {
		if watcher, err := config.NewWatcher(path, func(next *config.Config) {
			bridge.Send(ConfigReloadedMsg{Config: next})
		}); err == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			}
		}
	}

	_, err := program.Run()
	return err
}
