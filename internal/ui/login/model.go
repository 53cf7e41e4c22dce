// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login implements the login and registration screens.
package login

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatify-tui/internal/api"
	"github.com/jeranaias/chatify-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// DoneMsg reports a successful login to the parent model.
type DoneMsg struct {
	Token    string
	User     map[string]any
	Username string
}

// RegisteredMsg reports a successful registration; the parent switches the
// screen back to login with the username prefilled.
type RegisteredMsg struct {
	Username string
}

// errMsg carries a failed submit back to the screen.
type errMsg struct{ err error }

// =============================================================================
// MODEL
// =============================================================================

// Mode selects which form the screen shows.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

const (
	fieldUsername = iota
	fieldPassword
	fieldEmail
	fieldAvatar
)

// Model is the login/registration screen.
type Model struct {
	client *api.Client
	mode   Mode

	inputs  []textinput.Model
	focus   int
	spin    spinner.Model
	busy    bool
	errText string
	width   int
}

// New builds the screen in login mode.
func New(client *api.Client) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128

	avatar := textinput.New()
	avatar.Placeholder = "avatar URL (optional)"
	avatar.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Cyan)

	return Model{
		client: client,
		mode:   ModeLogin,
		inputs: []textinput.Model{username, password, email, avatar},
		spin:   sp,
	}
}

// PrefillUsername seeds the username field, e.g. after registration.
func (m *Model) PrefillUsername(name string) {
	m.inputs[fieldUsername].SetValue(name)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// fieldCount returns how many inputs the current mode shows.
func (m Model) fieldCount() int {
	if m.mode == ModeRegister {
		return 4
	}
	return 2
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case errMsg:
		m.busy = false
		m.errText = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			return m.moveFocus(1), nil
		case "shift+tab", "up":
			return m.moveFocus(-1), nil
		case "ctrl+r":
			m.toggleMode()
			return m, nil
		case "esc":
			m.errText = ""
			return m, nil
		case "enter":
			if m.focus < m.fieldCount()-1 {
				return m.moveFocus(1), nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) moveFocus(delta int) Model {
	n := m.fieldCount()
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + n) % n
	m.inputs[m.focus].Focus()
	return m
}

func (m *Model) toggleMode() {
	if m.mode == ModeLogin {
		m.mode = ModeRegister
	} else {
		m.mode = ModeLogin
	}
	m.errText = ""
	m.inputs[m.focus].Blur()
	m.focus = 0
	m.inputs[0].Focus()
}

// submit kicks off the network call for the current mode. Credentials are
// captured before the closure; the model may change under it.
func (m Model) submit() (Model, tea.Cmd) {
	username := strings.TrimSpace(m.inputs[fieldUsername].Value())
	password := m.inputs[fieldPassword].Value()
	if username == "" || password == "" {
		m.errText = "username and password are required"
		return m, nil
	}

	m.busy = true
	m.errText = ""
	client := m.client

	if m.mode == ModeRegister {
		email := strings.TrimSpace(m.inputs[fieldEmail].Value())
		avatar := strings.TrimSpace(m.inputs[fieldAvatar].Value())
		if email == "" {
			m.busy = false
			m.errText = "email is required"
			return m, nil
		}
		return m, tea.Batch(m.spin.Tick, func() tea.Msg {
			if err := client.Register(context.Background(), username, password, email, avatar); err != nil {
				return errMsg{err}
			}
			return RegisteredMsg{Username: username}
		})
	}

	return m, tea.Batch(m.spin.Tick, func() tea.Msg {
		res, err := client.Login(context.Background(), username, password)
		if err != nil {
			return errMsg{err}
		}
		name := username
		if res.User != nil {
			if s, ok := res.User["username"].(string); ok && strings.TrimSpace(s) != "" {
				name = strings.TrimSpace(s)
			}
		}
		return DoneMsg{Token: res.Token, User: res.User, Username: name}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := "Log in"
	hint := "enter submit · tab next field · ctrl+r register · ctrl+c quit"
	if m.mode == ModeRegister {
		title = "Create account"
		hint = "enter submit · tab next field · ctrl+r back to login · ctrl+c quit"
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n\n")

	labels := []string{"Username", "Password", "Email", "Avatar"}
	for i := 0; i < m.fieldCount(); i++ {
		b.WriteString(styles.Prompt.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n\n")
	}

	if m.busy {
		b.WriteString(m.spin.View())
		b.WriteString(" contacting server...\n\n")
	}
	if m.errText != "" {
		b.WriteString(styles.ErrorBanner.Render(m.errText))
		b.WriteString("\n\n")
	}

	b.WriteString(styles.HelpBar.Render(hint))
	return b.String()
}
