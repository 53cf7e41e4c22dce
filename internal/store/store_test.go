// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/chatify-tui/internal/message"
)

func botMsg(id, text string) message.Message {
	return message.Message{
		ID: id, Text: text, UID: message.BotUID,
		User: message.BotUser, Bot: true,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestBotStoreRoundTrip(t *testing.T) {
	s := NewBotStore(t.TempDir())
	key := "uid:42"

	if got := s.Load(key); len(got) != 0 {
		t.Fatalf("fresh load = %v", got)
	}

	msgs := []message.Message{botMsg("b1", "hi"), botMsg("b2", "again")}
	if err := s.Save(key, msgs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := s.Load(key)
	if len(got) != 2 {
		t.Fatalf("Load len = %d", len(got))
	}
	for i := range got {
		if got[i].ID != msgs[i].ID || got[i].Text != msgs[i].Text || got[i].User != msgs[i].User {
			t.Errorf("msg %d = %+v", i, got[i])
		}
		if !got[i].CreatedAt.Equal(msgs[i].CreatedAt) {
			t.Errorf("msg %d time = %v", i, got[i].CreatedAt)
		}
	}
}

func TestBotStoreKeysAreIsolated(t *testing.T) {
	s := NewBotStore(t.TempDir())
	if err := s.Save("uid:1", []message.Message{botMsg("b1", "for one")}); err != nil {
		t.Fatal(err)
	}
	if got := s.Load("uid:2"); len(got) != 0 {
		t.Errorf("other key sees %v", got)
	}
	// Keys that sanitize to the same stem still get distinct files.
	if s.FilePath("tok:a/b") == s.FilePath("tok:a_b") {
		t.Error("sanitized keys collide")
	}
}

func TestBotStoreCorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewBotStore(dir)
	key := "uid:9"
	path := s.FilePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := s.Load(key); got != nil {
		t.Errorf("corrupt load = %v", got)
	}
}

func TestBotStoreAppendAndDelete(t *testing.T) {
	s := NewBotStore(t.TempDir())
	key := "claim:ada"

	if err := s.Append(key, botMsg("b1", "one")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(key, botMsg("b2", "two")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(key, "b1"); err != nil {
		t.Fatal(err)
	}
	got := s.Load(key)
	if len(got) != 1 || got[0].ID != "b2" {
		t.Errorf("after delete = %+v", got)
	}

	// Deleting an unknown id is a no-op.
	if err := s.Delete(key, "nope"); err != nil {
		t.Fatal(err)
	}
	if got := s.Load(key); len(got) != 1 {
		t.Errorf("after noop delete = %+v", got)
	}
}

func TestMigrateLegacyAdoptsOnce(t *testing.T) {
	dir := t.TempDir()
	s := NewBotStore(dir)
	key := "uid:7"

	legacy := filepath.Join(dir, "botmsgs.json")
	if err := os.WriteFile(legacy, []byte(`[{"id":"old1","text":"from before","uid":"bot","user":{"id":"bot","username":"bot","avatar":""},"createdAt":"2025-01-01T00:00:00Z","bot":true}]`), 0600); err != nil {
		t.Fatal(err)
	}

	if err := s.MigrateLegacy(key); err != nil {
		t.Fatalf("MigrateLegacy: %v", err)
	}
	got := s.Load(key)
	if len(got) != 1 || got[0].ID != "old1" {
		t.Errorf("adopted = %+v", got)
	}
	if _, err := os.Stat(legacy); !os.IsNotExist(err) {
		t.Error("legacy file not removed")
	}

	// Second call with no legacy file is a no-op.
	if err := s.MigrateLegacy(key); err != nil {
		t.Fatalf("second MigrateLegacy: %v", err)
	}
}

func TestMigrateLegacyKeepsExistingHistory(t *testing.T) {
	dir := t.TempDir()
	s := NewBotStore(dir)
	key := "uid:7"

	if err := s.Save(key, []message.Message{botMsg("new1", "current")}); err != nil {
		t.Fatal(err)
	}
	legacy := filepath.Join(dir, "botmsgs.json")
	if err := os.WriteFile(legacy, []byte(`[{"id":"old1"}]`), 0600); err != nil {
		t.Fatal(err)
	}

	if err := s.MigrateLegacy(key); err != nil {
		t.Fatal(err)
	}
	got := s.Load(key)
	if len(got) != 1 || got[0].ID != "new1" {
		t.Errorf("existing history lost: %+v", got)
	}
	if _, err := os.Stat(legacy); !os.IsNotExist(err) {
		t.Error("legacy file not removed")
	}
}

func TestStateStoreRoundTrip(t *testing.T) {
	s := NewStateStore(t.TempDir(), false)

	if s.Load().LoggedIn() {
		t.Fatal("fresh store should be logged out")
	}

	sess := &Session{
		Token:    "tok-1",
		Username: " ada ",
		User:     map[string]any{"id": float64(7), "username": "ada"},
		UserID:   "7",
	}
	if err := s.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := s.Load()
	if !got.LoggedIn() || got.Token != "tok-1" || got.UserID != "7" {
		t.Errorf("Load = %+v", got)
	}
	if got.Username != "ada" {
		t.Errorf("username not trimmed: %q", got.Username)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if s.Load().LoggedIn() {
		t.Error("still logged in after Clear")
	}
}

func TestStateStoreEphemeral(t *testing.T) {
	dir := t.TempDir()
	s := NewStateStore(dir, true)

	if err := s.Save(&Session{Token: "secret"}); err != nil {
		t.Fatal(err)
	}
	if !s.Load().LoggedIn() {
		t.Error("ephemeral session lost in memory")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("ephemeral mode wrote files: %v", entries)
	}

	// A second store over the same dir sees nothing.
	if NewStateStore(dir, true).Load().LoggedIn() {
		t.Error("ephemeral session leaked across instances")
	}
}

func TestWatcherSeesExternalSave(t *testing.T) {
	dir := t.TempDir()
	s := NewBotStore(dir)
	key := "uid:5"
	if err := s.Save(key, nil); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(s, key, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	// Another instance appends.
	if err := NewBotStore(dir).Append(key, botMsg("b1", "external")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changed():
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal")
	}
}

func TestWatcherDefaultsNonPositiveDebounce(t *testing.T) {
	// reply_delay_ms = 0 is valid config; the watcher must fall back to its
	// own window instead of ticking at zero.
	dir := t.TempDir()
	s := NewBotStore(dir)
	key := "uid:6"
	if err := s.Save(key, nil); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(s, key, 0)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := NewBotStore(dir).Append(key, botMsg("b1", "external")); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changed():
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal with defaulted debounce")
	}
}

func TestWatcherCloseEndsChanged(t *testing.T) {
	s := NewBotStore(t.TempDir())
	w, err := NewWatcher(s, "uid:8", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-w.Changed():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Changed still open after Close")
		}
	}
}
