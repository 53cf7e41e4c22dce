// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sanitize strips markup from user-entered and server-provided text.
// Messages are plain text end to end; anything tag-shaped is removed both
// before sending and before rendering.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict drops every element and attribute, leaving text content only.
var strict = bluemonday.StrictPolicy()

// Text removes all HTML from s and decodes entities back to plain
// characters for terminal display. Surrounding whitespace is trimmed.
func Text(s string) string {
	cleaned := strict.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
