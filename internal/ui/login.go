// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN / REGISTER FORM
// =============================================================================

type loginMode int

const (
	modeLogin loginMode = iota
	modeRegister
)

const (
	fieldUsername = iota
	fieldPassword
	fieldEmail
	fieldFullName
)

// loginModel is the authentication screen: a login form that can flip into a
// registration form.
type loginModel struct {
	theme  *styles.Theme
	client *api.Client

	mode    loginMode
	inputs  []textinput.Model
	focus   int
	errText string
	info    string
	busy    bool

	width  int
	height int
}

func newLoginModel(theme *styles.Theme, client *api.Client) loginModel {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128

	fullName := textinput.New()
	fullName.Placeholder = "full name (optional)"
	fullName.CharLimit = 128

	return loginModel{
		theme:  theme,
		client: client,
		mode:   modeLogin,
		inputs: []textinput.Model{username, password, email, fullName},
	}
}

// fieldCount returns how many inputs the current mode shows.
func (m loginModel) fieldCount() int {
	if m.mode == modeRegister {
		return 4
	}
	return 2
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case LoginFailedMsg:
		m.busy = false
		m.errText = msg.Err.Error()
		return m, nil

	case RegisteredMsg:
		m.busy = false
		m.mode = modeLogin
		m.errText = ""
		m.info = "Account created. Sign in to continue."
		m.focus = fieldUsername
		return m, m.applyFocus()

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			delta := 1
			if msg.String() == "shift+tab" || msg.String() == "up" {
				delta = -1
			}
			m.focus = (m.focus + delta + m.fieldCount()) % m.fieldCount()
			return m, m.applyFocus()

		case "ctrl+t":
			if m.mode == modeLogin {
				m.mode = modeRegister
			} else {
				m.mode = modeLogin
			}
			m.errText = ""
			m.info = ""
			m.focus = fieldUsername
			return m, m.applyFocus()

		case "enter":
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *loginModel) applyFocus() tea.Cmd {
	var cmds []tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmds = append(cmds, m.inputs[i].Focus())
		} else {
			m.inputs[i].Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	username := strings.TrimSpace(m.inputs[fieldUsername].Value())
	password := m.inputs[fieldPassword].Value()

	if username == "" || password == "" {
		m.errText = "username and password are required"
		return m, nil
	}

	m.busy = true
	m.errText = ""
	m.info = ""

	if m.mode == modeRegister {
		email := strings.TrimSpace(m.inputs[fieldEmail].Value())
		if email == "" {
			m.busy = false
			m.errText = "email is required"
			return m, nil
		}
		reg := api.RegisterRequest{
			Username: username,
			Email:    email,
			Password: password,
			FullName: strings.TrimSpace(m.inputs[fieldFullName].Value()),
		}
		client := m.client
		return m, func() tea.Msg {
			if err := client.Register(context.Background(), reg); err != nil {
				return LoginFailedMsg{Err: err}
			}
			return RegisteredMsg{}
		}
	}

	client := m.client
	return m, func() tea.Msg {
		sess, err := client.Authenticate(context.Background(), username, password)
		if err != nil {
			return LoginFailedMsg{Err: err}
		}
		return LoggedInMsg{Session: sess}
	}
}

func (m loginModel) View() string {
	var sb strings.Builder

	title := "Sign in to AIHub"
	toggleHint := "C-t register"
	if m.mode == modeRegister {
		title = "Create an AIHub account"
		toggleHint = "C-t back to sign in"
	}

	sb.WriteString(m.theme.HeaderTitle.Render(title))
	sb.WriteString("\n\n")

	labels := []string{"Username", "Password", "Email", "Full name"}
	for i := 0; i < m.fieldCount(); i++ {
		sb.WriteString(m.theme.FormLabel.Render(labels[i]))
		sb.WriteString("\n")
		sb.WriteString(m.inputs[i].View())
		sb.WriteString("\n")
	}

	if m.busy {
		sb.WriteString("\n")
		sb.WriteString(m.theme.InfoStyle.Render("Contacting server..."))
	}
	if m.errText != "" {
		sb.WriteString("\n")
		sb.WriteString(m.theme.FormError.Render(m.errText))
	}
	if m.info != "" {
		sb.WriteString("\n")
		sb.WriteString(m.theme.SuccessStyle.Render(m.info))
	}

	sb.WriteString("\n\n")
	sb.WriteString(m.theme.ShortcutDesc.Render("Enter submit · Tab next field · " + toggleHint + " · C-q quit"))

	box := m.theme.FormBox.Render(sb.String())
	if m.width == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
