// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists local client state: the simulated-peer message
// history (per identity namespace) and the saved login session.
package store

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/chatify-tui/internal/message"
	"github.com/jeranaias/chatify-tui/internal/util"
)

// =============================================================================
// BOT MESSAGE STORE
// =============================================================================

const (
	botDirName = "botmsgs"

	// legacyFileName is the pre-namespacing global history file. It is
	// adopted into the first identity that logs in, then removed.
	legacyFileName = "botmsgs.json"
)

// BotStore keeps one JSON file of simulated-peer messages per namespace key.
// Reads never fail: a missing or corrupt file is an empty history. Writes
// are wholesale and atomic.
type BotStore struct {
	dataDir string
}

// NewBotStore returns a store rooted at dataDir.
func NewBotStore(dataDir string) *BotStore {
	return &BotStore{dataDir: dataDir}
}

// FilePath returns the history file for a namespace key. The key is
// sanitized for the filesystem with a hash suffix so distinct keys can
// never collide after sanitization.
func (s *BotStore) FilePath(key string) string {
	return filepath.Join(s.dataDir, botDirName, sanitizeKey(key)+".json")
}

// Load reads the history for a namespace key. Missing and corrupt files
// both load as an empty history; there is nothing actionable for the user
// in either case.
func (s *BotStore) Load(key string) []message.Message {
	data, err := os.ReadFile(s.FilePath(key))
	if err != nil {
		return nil
	}
	var msgs []message.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	return msgs
}

// Save replaces the history for a namespace key wholesale.
func (s *BotStore) Save(key string, msgs []message.Message) error {
	if msgs == nil {
		msgs = []message.Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to encode bot history: %w", err)
	}
	if err := util.AtomicWriteFile(s.FilePath(key), data, 0600); err != nil {
		return fmt.Errorf("failed to write bot history: %w", err)
	}
	return nil
}

// Append loads, appends, and saves in one step.
func (s *BotStore) Append(key string, msg message.Message) error {
	return s.Save(key, append(s.Load(key), msg))
}

// Delete removes the message with the given id, if present.
func (s *BotStore) Delete(key, id string) error {
	msgs := s.Load(key)
	kept := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(msgs) {
		return nil
	}
	return s.Save(key, kept)
}

// =============================================================================
// LEGACY MIGRATION
// =============================================================================

// MigrateLegacy adopts the old un-namespaced global history into the given
// namespace key, once. The per-key history wins if it already exists; the
// legacy file is removed either way. Runs at login.
func (s *BotStore) MigrateLegacy(key string) error {
	legacyPath := filepath.Join(s.dataDir, legacyFileName)
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read legacy bot history: %w", err)
	}

	target := s.FilePath(key)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		// Only adopt content that still parses; a corrupt legacy file is
		// just removed.
		var msgs []message.Message
		if json.Unmarshal(data, &msgs) == nil && len(msgs) > 0 {
			if err := s.Save(key, msgs); err != nil {
				return err
			}
		}
	}

	if err := os.Remove(legacyPath); err != nil {
		return fmt.Errorf("failed to remove legacy bot history: %w", err)
	}
	return nil
}

// =============================================================================
// KEY SANITIZATION
// =============================================================================

// sanitizeKey maps an arbitrary namespace key to a safe filename stem. The
// FNV suffix keeps keys unique even when sanitization collapses characters.
func sanitizeKey(key string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	if len(mapped) > 64 {
		mapped = mapped[:64]
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return fmt.Sprintf("%s-%08x", mapped, h.Sum32())
}
