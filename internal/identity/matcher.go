// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

// =============================================================================
// OWNERSHIP MATCHING
// =============================================================================

// IsMine reports whether a message authored by (uid, authorName) belongs to
// the current user. Four heuristics are tried in order and any hit wins:
//
//  1. uid is one of the user's known ids
//  2. authorName matches one of the user's known display names
//  3. the directory entry for uid (from users) matches a known display name
//  4. uid equals the explicitly stored user id
//
// The union is deliberate: depending on the endpoint, a message may carry an
// id the login response never exposed, or only a display name.
func IsMine(uid, authorName string, set Set, users map[string]string, storedID string) bool {
	if set.HasID(uid) {
		return true
	}
	if set.HasName(authorName) {
		return true
	}
	if uid != "" {
		if dirName, ok := users[uid]; ok && set.HasName(dirName) {
			return true
		}
	}
	return storedID != "" && uid == storedID
}
