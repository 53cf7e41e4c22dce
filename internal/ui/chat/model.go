// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the conversation screen: viewport of message
// bubbles, input line, and delete selection mode.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatify-tui/internal/conv"
	"github.com/jeranaias/chatify-tui/internal/message"
	"github.com/jeranaias/chatify-tui/internal/ui/styles"
	"github.com/jeranaias/chatify-tui/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

// LoadedMsg reports a finished history load.
type LoadedMsg struct{ Err error }

// SentMsg reports a finished send.
type SentMsg struct{ Err error }

// ReplyMsg delivers one simulated-peer reply.
type ReplyMsg struct{ Reply message.Message }

// UsersMsg reports that the user directory finished loading.
type UsersMsg struct{}

// StoreChangedMsg reports an external change to the bot history file.
type StoreChangedMsg struct{}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat screen. It owns the assembler for the logged-in
// identity.
type Model struct {
	asm      *conv.Assembler
	username string

	vp    viewport.Model
	input textinput.Model
	spin  spinner.Model

	loading   bool
	errText   string
	selecting bool
	selected  int

	width  int
	height int
	ready  bool
}

// New builds the chat screen around an assembler.
func New(asm *conv.Assembler, username string) Model {
	input := textinput.New()
	input.Placeholder = "write a message..."
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Cyan)

	return Model{
		asm:      asm,
		username: username,
		input:    input,
		spin:     sp,
		loading:  true,
	}
}

// Init starts the initial load, the directory fetch, and the reply pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadCmd(),
		m.loadUsersCmd(),
		m.waitReplyCmd(),
		m.spin.Tick,
		textinput.Blink,
	)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadCmd() tea.Cmd {
	asm := m.asm
	return func() tea.Msg {
		return LoadedMsg{Err: asm.Load(context.Background())}
	}
}

func (m Model) loadUsersCmd() tea.Cmd {
	asm := m.asm
	return func() tea.Msg {
		asm.LoadUsers(context.Background())
		return UsersMsg{}
	}
}

// waitReplyCmd blocks on the reply channel; re-issued after every delivery.
func (m Model) waitReplyCmd() tea.Cmd {
	asm := m.asm
	return func() tea.Msg {
		reply, ok := <-asm.Replies()
		if !ok {
			return nil
		}
		return ReplyMsg{Reply: reply}
	}
}

func (m Model) sendCmd(text string) tea.Cmd {
	asm := m.asm
	return func() tea.Msg {
		_, err := asm.Send(context.Background(), text)
		return SentMsg{Err: err}
	}
}

func (m Model) deleteCmd(msg message.Message) tea.Cmd {
	asm := m.asm
	return func() tea.Msg {
		err := asm.Delete(context.Background(), msg)
		return SentMsg{Err: err}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		vpHeight := msg.Height - 6
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.refreshViewport(true)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.errText = msg.Err.Error()
		} else {
			m.errText = ""
		}
		m.refreshViewport(true)
		return m, nil

	case UsersMsg:
		m.refreshViewport(false)
		return m, nil

	case SentMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
		}
		m.clampSelection()
		m.refreshViewport(true)
		return m, nil

	case ReplyMsg:
		m.refreshViewport(true)
		// Keep pumping: the channel stays open for the session.
		return m, m.waitReplyCmd()

	case StoreChangedMsg:
		m.asm.MergeBotHistory()
		m.refreshViewport(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.selecting {
		return m.handleSelectKey(msg)
	}

	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.sendCmd(text)
	case "ctrl+r":
		m.loading = true
		return m, tea.Batch(m.loadCmd(), m.spin.Tick)
	case "ctrl+k":
		msgs := m.asm.Messages()
		if len(msgs) == 0 {
			return m, nil
		}
		m.selecting = true
		m.selected = len(msgs) - 1
		m.input.Blur()
		m.refreshViewport(false)
		return m, nil
	case "esc":
		m.errText = ""
		return m, nil
	case "pgup":
		m.vp.HalfViewUp()
		return m, nil
	case "pgdown":
		m.vp.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSelectKey drives delete selection mode.
func (m Model) handleSelectKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+k", "q":
		m.selecting = false
		m.input.Focus()
		m.refreshViewport(false)
		return m, nil
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		m.refreshViewport(false)
		return m, nil
	case "down", "j":
		if m.selected < len(m.asm.Messages())-1 {
			m.selected++
		}
		m.refreshViewport(false)
		return m, nil
	case "d", "enter":
		msgs := m.asm.Messages()
		if m.selected < 0 || m.selected >= len(msgs) {
			return m, nil
		}
		target := msgs[m.selected]
		if !target.Mine && !target.Bot {
			m.errText = "only your own messages can be deleted"
			m.refreshViewport(false)
			return m, nil
		}
		m.selecting = false
		m.input.Focus()
		return m, m.deleteCmd(target)
	}
	return m, nil
}

func (m *Model) clampSelection() {
	if n := len(m.asm.Messages()); m.selected >= n {
		m.selected = n - 1
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("chatify"))
	b.WriteString("  ")
	b.WriteString(styles.Subtitle.Render(m.username))
	if m.loading {
		b.WriteString("  ")
		b.WriteString(m.spin.View())
	}
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")

	if m.errText != "" {
		b.WriteString(styles.ErrorBanner.Render(util.TruncateWidth(m.errText, m.width-4)))
		b.WriteString("\n")
	}

	if m.selecting {
		hint := "select: ↑/↓ move · d delete · esc cancel"
		if msgs := m.asm.Messages(); m.selected >= 0 && m.selected < len(msgs) {
			preview := util.TruncateWidth(util.CollapseSpace(msgs[m.selected].Text), 24)
			hint = "delete \"" + preview + "\"? d confirm · ↑/↓ move · esc cancel"
		}
		b.WriteString(styles.HelpBar.Render(hint))
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(styles.HelpBar.Render("enter send · ctrl+k delete mode · ctrl+r reload · ctrl+c quit"))
	}
	return b.String()
}

// refreshViewport re-renders the message list. gotoBottom follows new
// content; selection changes keep the scroll position.
func (m *Model) refreshViewport(gotoBottom bool) {
	if !m.ready {
		return
	}
	msgs := m.asm.Messages()
	if len(msgs) == 0 {
		m.vp.SetContent(styles.EmptyHint.Render("No messages yet."))
		return
	}

	bubbleWidth := m.vp.Width * 2 / 3
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	var b strings.Builder
	for i, msg := range msgs {
		b.WriteString(m.renderMessage(msg, i, bubbleWidth))
		b.WriteString("\n")
	}
	m.vp.SetContent(b.String())
	if gotoBottom {
		m.vp.GotoBottom()
	}
}

func (m *Model) renderMessage(msg message.Message, index, bubbleWidth int) string {
	style := styles.PeerBubble
	if msg.Mine {
		style = styles.MineBubble
	}
	if m.selecting && index == m.selected {
		style = styles.SelectedBubble
	}

	header := styles.Author.Render(m.asm.DisplayName(msg)) + " " +
		styles.Timestamp.Render(msg.CreatedAt.Local().Format("15:04"))
	body := style.Width(bubbleWidth).Render(msg.Text)
	block := header + "\n" + body

	if msg.Mine {
		return lipgloss.PlaceHorizontal(m.vp.Width, lipgloss.Right, block)
	}
	return block
}
