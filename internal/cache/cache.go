// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache persists the last assembled conversation view per identity,
// so the chat screen paints immediately on startup while the real fetch is
// still in flight. The cache is advisory: corrupt or missing rows read as
// empty and every load failure is swallowed.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/chatify-tui/internal/message"
)

// =============================================================================
// VIEW CACHE
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversation_view (
	namespace_key TEXT PRIMARY KEY,
	payload       TEXT NOT NULL,
	updated_at    INTEGER NOT NULL
);
`

// ViewCache is a SQLite-backed snapshot store of rendered conversations.
type ViewCache struct {
	db *sql.DB
}

// Open creates or opens the cache database under dataDir.
func Open(dataDir string) (*ViewCache, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "viewcache.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite allows one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &ViewCache{db: db}, nil
}

// Close releases the database handle.
func (c *ViewCache) Close() error {
	return c.db.Close()
}

// Put stores the current view for a namespace key, replacing any previous
// snapshot.
func (c *ViewCache) Put(key string, msgs []message.Message) error {
	if msgs == nil {
		msgs = []message.Message{}
	}
	payload, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to encode view snapshot: %w", err)
	}
	_, err = c.db.Exec(`
		INSERT INTO conversation_view (namespace_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(namespace_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		key, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store view snapshot: %w", err)
	}
	return nil
}

// Get returns the cached view for a namespace key. Missing or undecodable
// snapshots read as nil; the fetch that follows is the source of truth.
func (c *ViewCache) Get(key string) []message.Message {
	var payload string
	err := c.db.QueryRow(
		`SELECT payload FROM conversation_view WHERE namespace_key = ?`, key,
	).Scan(&payload)
	if err != nil {
		return nil
	}
	var msgs []message.Message
	if err := json.Unmarshal([]byte(payload), &msgs); err != nil {
		return nil
	}
	return msgs
}

// Delete drops the snapshot for a namespace key.
func (c *ViewCache) Delete(key string) error {
	_, err := c.db.Exec(`DELETE FROM conversation_view WHERE namespace_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete view snapshot: %w", err)
	}
	return nil
}
