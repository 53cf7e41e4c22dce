// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chatify is a terminal client for the Chatify chat API: log in, talk to
// the server-side history, and keep a locally-simulated conversation
// partner whose replies persist per identity.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatify-tui/internal/api"
	"github.com/jeranaias/chatify-tui/internal/cache"
	"github.com/jeranaias/chatify-tui/internal/cli"
	"github.com/jeranaias/chatify-tui/internal/config"
	"github.com/jeranaias/chatify-tui/internal/conv"
	"github.com/jeranaias/chatify-tui/internal/identity"
	"github.com/jeranaias/chatify-tui/internal/store"
	"github.com/jeranaias/chatify-tui/internal/ui/chat"
	"github.com/jeranaias/chatify-tui/internal/ui/login"
	"github.com/jeranaias/chatify-tui/internal/ui/styles"
)

// Version is stamped by the build; the default marks dev builds.
var Version = "dev"

func main() {
	args := cli.Parse(os.Args[1:])

	if args.ShowVersion {
		fmt.Printf("chatify %s\n", Version)
		return
	}
	if args.ShowHelp {
		fmt.Print(cli.Usage)
		return
	}

	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatify: %v\n", err)
		os.Exit(1)
	}
	if args.ConfigPath == "" {
		// Seed ~/.chatify/config.toml on first run so there is a file to edit.
		if err := config.SaveIfMissing(cfg); err != nil {
			log.Printf("could not write default config: %v", err)
		}
	}

	if handled, err := cli.Run(args, cfg); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "chatify: %v\n", err)
			os.Exit(1)
		}
		return
	}

	runTUI(cfg)
}

func runTUI(cfg *config.Config) {
	// "auto" leaves background detection to the terminal query.
	switch cfg.UI.Theme {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}

	app, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatify: %v\n", err)
		os.Exit(1)
	}
	defer app.cleanup()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("chatify: %v", err)
	}
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// State is the top-level screen.
type State int

const (
	StateLogin State = iota // login / registration form
	StateChat               // conversation view
	StateError              // unrecoverable startup problem
)

// App is the root Bubble Tea model; it owns the screens and everything
// session-scoped.
type App struct {
	cfg     *config.Config
	client  *api.Client
	states  *store.StateStore
	bots    *store.BotStore
	views   *cache.ViewCache // nil when the cache could not open
	dataDir string

	state   State
	login   login.Model
	chat    chat.Model
	asm     *conv.Assembler
	watcher *store.Watcher

	errText string
	width   int
	height  int
}

func newApp(cfg *config.Config) (*App, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	views, err := cache.Open(dataDir)
	if err != nil {
		// The cache is a nicety; the client runs without it.
		log.Printf("view cache unavailable: %v", err)
		views = nil
	}

	client := api.NewClient(cfg.Server.BaseURL).WithTimeout(cfg.Timeout())
	app := &App{
		cfg:     cfg,
		client:  client,
		states:  store.NewStateStore(dataDir, cfg.Session.Ephemeral),
		bots:    store.NewBotStore(dataDir),
		views:   views,
		dataDir: dataDir,
		state:   StateLogin,
		login:   login.New(client),
	}

	if sess := app.states.Load(); sess.LoggedIn() {
		app.enterChat(sess)
	}
	return app, nil
}

// cleanup releases session-scoped resources after the program exits.
func (a *App) cleanup() {
	if a.asm != nil {
		a.asm.Close()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.views != nil {
		a.views.Close()
	}
}

// enterChat builds the conversation stack for a logged-in session.
func (a *App) enterChat(sess *store.Session) {
	profile := identity.NewProfile(sess.Token, sess.User, sess.Username, sess.UserID)
	a.client.SetToken(sess.Token)

	opts := []conv.Option{
		conv.WithReplyDelay(a.cfg.ReplyDelay()),
		conv.WithScript(a.cfg.Bot.Script),
	}
	if a.views != nil {
		opts = append(opts, conv.WithViewCache(a.views))
	}
	a.asm = conv.NewAssembler(a.client, a.bots, profile, opts...)
	a.chat = chat.New(a.asm, profile.DisplayName)
	a.state = StateChat

	if a.cfg.Storage.Watch {
		w, err := store.NewWatcher(a.bots, profile.NamespaceKey, store.DefaultDebounce)
		if err != nil {
			log.Printf("storage watcher unavailable: %v", err)
		} else {
			a.watcher = w
		}
	}
}

// leaveChat tears the conversation stack down, e.g. on an expired token.
func (a *App) leaveChat() {
	if a.asm != nil {
		a.asm.Close()
		a.asm = nil
	}
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
	}
	if err := a.states.Clear(); err != nil {
		log.Printf("failed to clear session: %v", err)
	}
	a.client.SetToken("")
	a.login = login.New(a.client)
	a.state = StateLogin
}

// =============================================================================
// TEA PLUMBING
// =============================================================================

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	if a.state == StateChat {
		return tea.Batch(a.chat.Init(), a.watchCmd())
	}
	return a.login.Init()
}

// watchCmd waits for one external bot-history change; re-issued after each.
func (a *App) watchCmd() tea.Cmd {
	if a.watcher == nil {
		return nil
	}
	w := a.watcher
	return func() tea.Msg {
		if _, ok := <-w.Changed(); !ok {
			return nil
		}
		return chat.StoreChangedMsg{}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		// Both screens track the size; forward everywhere.
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		cmds = append(cmds, cmd)
		if a.state == StateChat {
			a.chat, cmd = a.chat.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case login.DoneMsg:
		sess := &store.Session{
			Token:    msg.Token,
			Username: msg.Username,
			User:     msg.User,
		}
		if msg.User != nil {
			if id, ok := msg.User["id"]; ok && id != nil {
				sess.UserID = fmt.Sprintf("%v", id)
			}
		}
		if err := a.states.Save(sess); err != nil {
			log.Printf("failed to persist session: %v", err)
		}
		key := identity.ResolveNamespaceKey(sess.Token, sess.User, sess.Username, sess.UserID)
		if err := a.bots.MigrateLegacy(key); err != nil {
			log.Printf("legacy history migration failed: %v", err)
		}
		a.enterChat(sess)
		return a, tea.Batch(a.chat.Init(), a.watchCmd())

	case login.RegisteredMsg:
		a.login = login.New(a.client)
		a.login.PrefillUsername(msg.Username)
		return a, a.login.Init()

	case chat.LoadedMsg:
		if a.sessionExpired(msg.Err) {
			a.leaveChat()
			return a, a.login.Init()
		}

	case chat.SentMsg:
		if a.sessionExpired(msg.Err) {
			a.leaveChat()
			return a, a.login.Init()
		}
	}

	var cmd tea.Cmd
	switch a.state {
	case StateLogin:
		a.login, cmd = a.login.Update(msg)
	case StateChat:
		if _, isStoreChange := msg.(chat.StoreChangedMsg); isStoreChange {
			a.chat, cmd = a.chat.Update(msg)
			return a, tea.Batch(cmd, a.watchCmd())
		}
		a.chat, cmd = a.chat.Update(msg)
	}
	return a, cmd
}

// sessionExpired recognizes the errors that mean the token is gone or dead.
func (a *App) sessionExpired(err error) bool {
	return err != nil &&
		(errors.Is(err, api.ErrMissingToken) || errors.Is(err, api.ErrUnauthorized))
}

// View implements tea.Model.
func (a *App) View() string {
	switch a.state {
	case StateChat:
		return a.chat.View()
	case StateError:
		return styles.ErrorBanner.Render(a.errText)
	default:
		return a.login.View()
	}
}
