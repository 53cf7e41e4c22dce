// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package message

import (
	"net/url"
	"strconv"
	"time"
)

// =============================================================================
// FIELD EXTRACTION STRATEGIES
// =============================================================================

// Raw is a server message record as decoded from JSON, shape unknown.
type Raw = map[string]any

// keyPath addresses a value inside a Raw record, walking nested objects.
type keyPath []string

// strategy is a named, ordered list of key paths; the first path that
// resolves to a non-nil value wins. Keeping the chains as data makes the
// server's accepted spellings reviewable in one place.
type strategy struct {
	name  string
	paths []keyPath
}

var (
	idStrategy = strategy{name: "id", paths: []keyPath{
		{"id"}, {"_id"}, {"messageId"}, {"uuid"},
	}}
	textStrategy = strategy{name: "text", paths: []keyPath{
		{"text"}, {"message"}, {"content"},
	}}
	uidStrategy = strategy{name: "uid", paths: []keyPath{
		{"uid"}, {"userId"}, {"user_id"}, {"authorId"}, {"senderId"},
		{"user", "id"}, {"user", "userId"}, {"user", "_id"},
	}}
	timeStrategy = strategy{name: "timestamp", paths: []keyPath{
		{"createdAt"}, {"created_at"}, {"updatedAt"}, {"updated_at"},
	}}
	userIDStrategy = strategy{name: "user.id", paths: []keyPath{
		{"id"}, {"_id"}, {"userId"}, {"uid"},
	}}
	userNameStrategy = strategy{name: "user.username", paths: []keyPath{
		{"username"}, {"name"}, {"userName"},
	}}
)

// lookup resolves the strategy against a record. nil means no path hit.
func (s strategy) lookup(m Raw) any {
	for _, path := range s.paths {
		cur := any(m)
		ok := true
		for _, key := range path {
			obj, isObj := cur.(map[string]any)
			if !isObj {
				ok = false
				break
			}
			v, present := obj[key]
			if !present || v == nil {
				ok = false
				break
			}
			cur = v
		}
		if ok {
			return cur
		}
	}
	return nil
}

// lookupString resolves the strategy and stringifies scalar hits.
func (s strategy) lookupString(m Raw) string {
	return scalarString(s.lookup(m))
}

// scalarString renders JSON scalars the way the chat server's web clients
// did, so ids survive the server's habit of switching between numbers and
// strings.
func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize converts one raw server record into the canonical Message.
// Every field falls back along its strategy chain; nothing here errors or
// panics on malformed input, the result just degrades toward zero values.
// The timestamp falls back to now so every message stays sortable.
func Normalize(m Raw) Message {
	return normalizeAt(m, time.Now())
}

// normalizeAt is Normalize with an injectable clock for tests.
func normalizeAt(m Raw, now time.Time) Message {
	out := Message{
		ID:        idStrategy.lookupString(m),
		Text:      textStrategy.lookupString(m),
		UID:       uidStrategy.lookupString(m),
		CreatedAt: now.UTC(),
	}

	if raw := timeStrategy.lookupString(m); raw != "" {
		if t, err := parseTimestamp(raw); err == nil {
			out.CreatedAt = t.UTC()
		}
	}

	if userObj, ok := m["user"].(map[string]any); ok {
		u := User{
			ID:       userIDStrategy.lookupString(userObj),
			Username: userNameStrategy.lookupString(userObj),
			Avatar:   scalarString(userObj["avatar"]),
		}
		if u.Username == "" {
			u.Username = "User"
		}
		if u.Avatar == "" {
			if name, ok := userObj["username"].(string); ok && name != "" {
				u.Avatar = AvatarBase + "?u=" + url.QueryEscape(name)
			}
		}
		out.User = u
	}

	// The simulated peer always renders with its fixed identity, whatever
	// the stored record claims.
	if out.UID == BotUID || out.User.Username == "bot" {
		out.User = BotUser
		out.Bot = true
	}

	return out
}

// timestampLayouts are the formats the server has been seen emitting.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	// Epoch seconds or milliseconds also show up on some deployments.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n), nil
		}
		return time.Unix(n, 0), nil
	}
	return time.Time{}, lastErr
}
