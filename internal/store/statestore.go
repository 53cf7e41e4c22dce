// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/chatify-tui/internal/util"
)

// =============================================================================
// SESSION STATE STORE
// =============================================================================

const sessionFileName = "session.json"

// Session is the persisted login state. The user object is kept in its raw
// decoded form; identity resolution digs through it without assuming a
// shape.
type Session struct {
	Token    string         `json:"token"`
	Username string         `json:"username"`
	User     map[string]any `json:"user,omitempty"`
	UserID   string         `json:"userId,omitempty"`
}

// LoggedIn reports whether the session carries a token.
func (s *Session) LoggedIn() bool {
	return s != nil && s.Token != ""
}

// StateStore persists the session on disk so separate invocations share one
// login. With ephemeral mode on, everything stays in memory and logging out
// of the process logs out of the account.
type StateStore struct {
	dataDir   string
	ephemeral bool

	mem *Session
}

// NewStateStore returns a store rooted at dataDir. When ephemeral is true
// nothing credential-shaped touches the disk.
func NewStateStore(dataDir string, ephemeral bool) *StateStore {
	return &StateStore{dataDir: dataDir, ephemeral: ephemeral}
}

func (s *StateStore) path() string {
	return filepath.Join(s.dataDir, sessionFileName)
}

// Load returns the current session. A missing or corrupt session file means
// logged out, never an error.
func (s *StateStore) Load() *Session {
	if s.ephemeral {
		if s.mem != nil {
			return s.mem
		}
		return &Session{}
	}
	data, err := os.ReadFile(s.path())
	if err != nil {
		return &Session{}
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return &Session{}
	}
	sess.Username = strings.TrimSpace(sess.Username)
	return &sess
}

// Save persists the session.
func (s *StateStore) Save(sess *Session) error {
	if s.ephemeral {
		s.mem = sess
		return nil
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	// 0600: the file holds a live bearer token.
	if err := util.AtomicWriteFile(s.path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Clear logs out: the session file is removed, or the in-memory session
// dropped.
func (s *StateStore) Clear() error {
	if s.ephemeral {
		s.mem = nil
		return nil
	}
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
