// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import "github.com/jeranaias/chatify-tui/internal/message"

// =============================================================================
// PROFILE
// =============================================================================

// Profile bundles everything the conversation layer needs to know about the
// logged-in user: the storage namespace, the matching set, and how to render
// their own messages.
type Profile struct {
	Token        string
	NamespaceKey string
	StoredID     string
	UID          string
	DisplayName  string
	Avatar       string
	Set          Set
}

// NewProfile derives a full profile from the persisted login state.
func NewProfile(token string, user map[string]any, storedUsername, storedID string) Profile {
	p := Profile{
		Token:        token,
		NamespaceKey: ResolveNamespaceKey(token, user, storedUsername, storedID),
		StoredID:     storedID,
		Set:          BuildSet(user, storedUsername, storedID),
		DisplayName:  DisplayName(user, storedUsername),
	}
	p.Avatar = AvatarURL(user, p.DisplayName, message.AvatarBase)

	// Best uid for stamping outgoing messages: the user object's own id,
	// then the stored id, then a claim-derived one.
	if id, ok := userObjectID(user); ok {
		p.UID = id
	} else if storedID != "" {
		p.UID = storedID
	} else {
		claims := decodeClaims(token)
		for _, k := range claimKeys {
			if v := claimString(claims, k); v != "" {
				p.UID = v
				break
			}
		}
	}
	return p
}
