// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text unchanged", "hello world", "hello world"},
		{"tags stripped", `hi <b>there</b>`, "hi there"},
		{"script removed entirely", `<script>alert(1)</script>ok`, "ok"},
		{"img stripped", `<img src=x onerror=alert(1)>text`, "text"},
		{"entities decoded for display", "fish &amp; chips", "fish & chips"},
		{"whitespace trimmed", "  hej  ", "hej"},
		{"empty", "", ""},
		{"only markup collapses to empty", "<div></div>", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.in); got != tc.want {
				t.Errorf("Text(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
