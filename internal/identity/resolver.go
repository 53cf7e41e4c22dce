// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity derives a stable identity for the current user from
// whatever the Chatify API happens to return: a user object with any of
// several id spellings, a JWT whose claims may or may not carry an id,
// or nothing but the raw token string.
package identity

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/golang-jwt/jwt/v5"
)

// =============================================================================
// NAMESPACE KEY RESOLUTION
// =============================================================================

// Key prefixes record which evidence produced the namespace key.
const (
	prefixUserID = "uid:"
	prefixClaim  = "claim:"
	prefixToken  = "tok:"
)

// idKeys are the user-object fields accepted as an id, in priority order.
var idKeys = []string{"id", "userId", "_id", "uid", "ID"}

// claimKeys are the token claims accepted as an identity, in priority order.
var claimKeys = []string{"sub", "userId", "id", "email", "username"}

// ResolveNamespaceKey derives the storage namespace key for the current user.
//
// Evidence is tried in order: an explicitly stored user id, an id-like field
// on the user object (or its nested "user" object), a recognized token claim,
// and finally a hash of the raw token string. The result is a pure function
// of its inputs and is never empty; malformed tokens and odd user objects
// degrade to the hash fallback rather than failing.
func ResolveNamespaceKey(token string, user map[string]any, storedUsername, storedID string) string {
	if storedID != "" {
		return prefixUserID + storedID
	}

	if id, ok := userObjectID(user); ok {
		return prefixUserID + id
	}

	claims := decodeClaims(token)
	for _, k := range claimKeys {
		if v := claimString(claims, k); v != "" {
			return prefixClaim + v
		}
	}

	_ = storedUsername // usernames are matching evidence, not namespace evidence
	return prefixToken + HashToken(token)
}

// userObjectID scans a user object and its nested "user" field for an id.
func userObjectID(user map[string]any) (string, bool) {
	if user == nil {
		return "", false
	}
	for _, k := range idKeys {
		if v, ok := user[k]; ok && v != nil {
			return stringify(v), true
		}
	}
	if nested, ok := user["user"].(map[string]any); ok {
		for _, k := range idKeys {
			if v, ok := nested[k]; ok && v != nil {
				return stringify(v), true
			}
		}
	}
	return "", false
}

// decodeClaims parses the claims segment of a JWT without verifying the
// signature. The server is the authority on the token; here it is only a
// source of identity hints. Any parse failure yields empty claims.
func decodeClaims(token string) jwt.MapClaims {
	if token == "" {
		return jwt.MapClaims{}
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return jwt.MapClaims{}
	}
	return claims
}

// claimString extracts a claim as a string, tolerating numeric claims.
func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	return stringify(raw)
}

// stringify renders any JSON-decoded scalar the way the upstream web client
// rendered it, so namespace keys stay stable across value types.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// JSON numbers decode as float64; ids are integral in practice.
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
// TOKEN HASH
// =============================================================================

// HashToken computes a 31x rolling hash over the token's UTF-16 code units,
// wrapped to unsigned 32-bit and rendered as a decimal string. Existing
// per-user stores are keyed by this exact value, so the iteration order and
// wrap behavior must not change.
func HashToken(token string) string {
	var h int32
	for _, u := range utf16.Encode([]rune(token)) {
		h = h*31 + int32(u)
	}
	return strconv.FormatUint(uint64(uint32(h)), 10)
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

// DisplayName picks the name shown for the current user: the user object's
// username, then the stored username, then a generic fallback.
func DisplayName(user map[string]any, storedUsername string) string {
	if user != nil {
		if v, ok := user["username"].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if s := strings.TrimSpace(storedUsername); s != "" {
		return s
	}
	return "You"
}

// AvatarURL picks the avatar for the current user, synthesizing a stable
// placeholder from the display name when the user object has none.
func AvatarURL(user map[string]any, displayName, avatarBase string) string {
	if user != nil {
		if v, ok := user["avatar"].(string); ok && v != "" {
			return v
		}
	}
	name := displayName
	if name == "" {
		name = "me"
	}
	return avatarBase + "?u=" + url.QueryEscape(name)
}
