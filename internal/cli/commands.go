// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/chatify-tui/internal/api"
	"github.com/jeranaias/chatify-tui/internal/config"
	"github.com/jeranaias/chatify-tui/internal/identity"
	"github.com/jeranaias/chatify-tui/internal/store"
	"github.com/jeranaias/chatify-tui/internal/util"
)

// Run executes a subcommand. It returns false when no subcommand matched
// and the caller should launch the TUI instead.
func Run(args Args, cfg *config.Config) (bool, error) {
	switch args.Command {
	case "":
		return false, nil
	case "login":
		return true, runLogin(args, cfg)
	case "register":
		return true, runRegister(args, cfg)
	case "logout":
		return true, runLogout(cfg)
	case "status":
		return true, runStatus(cfg)
	default:
		fmt.Fprint(os.Stderr, Usage)
		return true, fmt.Errorf("unknown command %q", args.Command)
	}
}

func stateStore(cfg *config.Config) (*store.StateStore, string, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, "", err
	}
	return store.NewStateStore(dataDir, cfg.Session.Ephemeral), dataDir, nil
}

// =============================================================================
// LOGIN
// =============================================================================

func runLogin(args Args, cfg *config.Config) error {
	username := strings.TrimSpace(args.Username)
	var err error
	if username == "" {
		username, err = promptLine("Username: ")
		if err != nil {
			return err
		}
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.Server.BaseURL).WithTimeout(cfg.Timeout())
	res, err := client.Login(context.Background(), username, password)
	if err != nil {
		return err
	}

	sess := &store.Session{
		Token:    res.Token,
		Username: username,
		User:     res.User,
	}
	if res.User != nil {
		if s, ok := res.User["username"].(string); ok && strings.TrimSpace(s) != "" {
			sess.Username = strings.TrimSpace(s)
		}
		if id, ok := res.User["id"]; ok && id != nil {
			sess.UserID = fmt.Sprintf("%v", normalizeID(id))
		}
	}

	st, dataDir, err := stateStore(cfg)
	if err != nil {
		return err
	}
	if err := st.Save(sess); err != nil {
		return err
	}

	// Adopt any pre-namespacing bot history into this identity.
	key := identity.ResolveNamespaceKey(sess.Token, sess.User, sess.Username, sess.UserID)
	if err := store.NewBotStore(dataDir).MigrateLegacy(key); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	fmt.Printf("Logged in as %s.\n", sess.Username)
	if cfg.Session.Ephemeral {
		fmt.Println("Session is ephemeral; it will not survive this process.")
	}
	return nil
}

// normalizeID renders numeric ids without a float suffix.
func normalizeID(v any) any {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return v
}

// =============================================================================
// REGISTER
// =============================================================================

func runRegister(args Args, cfg *config.Config) error {
	username := strings.TrimSpace(args.Username)
	var err error
	if username == "" {
		username, err = promptLine("Username: ")
		if err != nil {
			return err
		}
	}
	email, err := promptLine("Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	avatar, err := promptLine("Avatar URL (optional): ")
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.Server.BaseURL).WithTimeout(cfg.Timeout())
	if err := client.Register(context.Background(), username, password, email, avatar); err != nil {
		return err
	}
	fmt.Printf("Account %s created. Run 'chatify login' to sign in.\n", username)
	return nil
}

// =============================================================================
// LOGOUT / STATUS
// =============================================================================

func runLogout(cfg *config.Config) error {
	st, _, err := stateStore(cfg)
	if err != nil {
		return err
	}
	if !st.Load().LoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}
	if err := st.Clear(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func runStatus(cfg *config.Config) error {
	st, dataDir, err := stateStore(cfg)
	if err != nil {
		return err
	}
	sess := st.Load()
	if !sess.LoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}

	key := identity.ResolveNamespaceKey(sess.Token, sess.User, sess.Username, sess.UserID)
	rows := [][2]string{
		{"Logged in as:", sess.Username},
		{"Server:", cfg.Server.BaseURL},
		{"Identity key:", key},
		{"Data directory:", dataDir},
	}
	for _, row := range rows {
		fmt.Printf("%s %s\n", util.PadRight(row[0], 15), row[1])
	}
	return nil
}
