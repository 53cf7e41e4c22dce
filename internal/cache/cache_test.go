// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"testing"
	"time"

	"github.com/jeranaias/chatify-tui/internal/message"
)

func openTestCache(t *testing.T) *ViewCache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestViewCacheRoundTrip(t *testing.T) {
	c := openTestCache(t)
	key := "uid:42"

	if got := c.Get(key); got != nil {
		t.Fatalf("fresh Get = %v", got)
	}

	msgs := []message.Message{
		{ID: "m1", Text: "hi", UID: "u1", CreatedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)},
		{ID: "b1", Text: "hello", UID: message.BotUID, User: message.BotUser, Bot: true,
			CreatedAt: time.Date(2026, 2, 3, 4, 5, 7, 0, time.UTC)},
	}
	if err := c.Put(key, msgs); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got := c.Get(key)
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "b1" || !got[1].Bot {
		t.Errorf("Get = %+v", got)
	}
}

func TestViewCacheReplacesSnapshot(t *testing.T) {
	c := openTestCache(t)
	key := "claim:ada"

	if err := c.Put(key, []message.Message{{ID: "m1"}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(key, []message.Message{{ID: "m2"}, {ID: "m3"}}); err != nil {
		t.Fatal(err)
	}
	got := c.Get(key)
	if len(got) != 2 || got[0].ID != "m2" {
		t.Errorf("after replace = %+v", got)
	}
}

func TestViewCacheKeysAreIsolated(t *testing.T) {
	c := openTestCache(t)
	if err := c.Put("uid:1", []message.Message{{ID: "m1"}}); err != nil {
		t.Fatal(err)
	}
	if got := c.Get("uid:2"); got != nil {
		t.Errorf("other key sees %v", got)
	}
	if err := c.Delete("uid:1"); err != nil {
		t.Fatal(err)
	}
	if got := c.Get("uid:1"); got != nil {
		t.Errorf("after delete = %v", got)
	}
}
