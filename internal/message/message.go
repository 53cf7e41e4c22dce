// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package message defines the canonical chat message and the normalization
// layer that converts the server's loosely-shaped records into it.
package message

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CANONICAL TYPES
// =============================================================================

// User is the author block attached to every normalized message.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Message is the canonical message shape the rest of the application works
// with. Timestamps marshal as RFC 3339.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UID       string    `json:"uid"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	// Bot marks locally-simulated peer messages. They never touch the server.
	Bot bool `json:"bot,omitempty"`
	// Mine is computed at assembly time, not stored.
	Mine bool `json:"-"`
}

// AvatarBase is the placeholder avatar service; a username query parameter
// makes the image stable per user.
const AvatarBase = "https://i.pravatar.cc/150"

// BotUID is the sentinel author id for simulated peer messages.
const BotUID = "bot"

// BotUser is the fixed identity every bot-authored message carries,
// regardless of what the stored record says.
var BotUser = User{ID: BotUID, Username: "bot", Avatar: AvatarBase + "?u=bot"}

// NewID returns a fresh locally-generated message id, used when the server
// response carries no recognizable id for a created message.
func NewID() string {
	return uuid.NewString()
}
