// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the chatify TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLORS
// =============================================================================

// Cyan - brand color, own messages, highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Purple - peer messages, accents
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Emerald - success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors, destructive actions
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - warnings, pending states
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// TextPrimary - main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}

// TextMuted - timestamps, hints, secondary text
var TextMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

// Surface - panel backgrounds
var Surface = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#1E1E2E"}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// Title renders screen headings.
	Title = lipgloss.NewStyle().Bold(true).Foreground(Cyan)

	// Subtitle renders secondary headings.
	Subtitle = lipgloss.NewStyle().Foreground(TextMuted)

	// ErrorBanner renders dismissable inline errors.
	ErrorBanner = lipgloss.NewStyle().
			Foreground(Rose).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Rose).
			Padding(0, 1)

	// HelpBar renders the key-hint line at the bottom of each screen.
	HelpBar = lipgloss.NewStyle().Foreground(TextMuted)

	// Prompt renders input field labels.
	Prompt = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)

	// MineBubble wraps the current user's messages.
	MineBubble = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Cyan).
			Padding(0, 1)

	// PeerBubble wraps everyone else's messages.
	PeerBubble = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Purple).
			Padding(0, 1)

	// SelectedBubble marks the message targeted for deletion.
	SelectedBubble = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(Amber).
			Padding(0, 1)

	// Author renders the sender name above a bubble.
	Author = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)

	// Timestamp renders message times.
	Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	// EmptyHint renders the "no messages yet" placeholder.
	EmptyHint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
)
