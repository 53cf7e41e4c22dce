// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import "strings"

// =============================================================================
// IDENTITY SET
// =============================================================================

// Set is every id and display name known to belong to the current user.
// Ownership checks match against the whole set because the server is not
// consistent about which identifier it stamps on a message.
type Set struct {
	IDs   map[string]struct{}
	Names map[string]struct{} // lower-cased, trimmed
}

// nameKeys are the user-object fields accepted as a display name.
var nameKeys = []string{"username", "user", "name", "email"}

// BuildSet collects all plausible ids and names for the current user from the
// user object, the stored username, and the stored explicit id.
func BuildSet(user map[string]any, storedUsername, storedID string) Set {
	set := Set{
		IDs:   make(map[string]struct{}),
		Names: make(map[string]struct{}),
	}

	addID := func(v any) {
		if s := stringify(v); s != "" {
			set.IDs[s] = struct{}{}
		}
	}
	addName := func(v any) {
		if s, ok := v.(string); ok {
			if n := normalizeName(s); n != "" {
				set.Names[n] = struct{}{}
			}
		}
	}

	if storedID != "" {
		set.IDs[storedID] = struct{}{}
	}
	addName(storedUsername)

	collect := func(obj map[string]any) {
		for _, k := range idKeys {
			if v, ok := obj[k]; ok && v != nil {
				addID(v)
			}
		}
		for _, k := range nameKeys {
			if v, ok := obj[k]; ok {
				addName(v)
			}
		}
	}
	if user != nil {
		collect(user)
		if nested, ok := user["user"].(map[string]any); ok {
			collect(nested)
		}
	}
	return set
}

// HasID reports whether id belongs to the set. Empty ids never match.
func (s Set) HasID(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s.IDs[id]
	return ok
}

// HasName reports whether name matches a known display name, ignoring case
// and surrounding whitespace. Empty names never match.
func (s Set) HasName(name string) bool {
	n := normalizeName(name)
	if n == "" {
		return false
	}
	_, ok := s.Names[n]
	return ok
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
