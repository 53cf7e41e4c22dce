// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conv

// defaultScript is the built-in rotation of simulated-peer replies, used
// when bot.script is not configured. The cursor advances once per sent
// message and wraps around.
var defaultScript = []string{
	"Hey! How's it going?",
	"Interesting, tell me more.",
	"Haha, good one!",
	"I was just thinking the same thing.",
	"Really? I had no idea.",
	"That sounds great!",
	"Hmm, let me think about that.",
	"Agreed, one hundred percent.",
	"What happened next?",
	"Nice! Catch you later?",
}

// fallbackReply is used if the script is somehow empty.
const fallbackReply = "🙂"

// Script is a round-robin sequence of canned replies.
type Script struct {
	lines []string
	index int
}

// NewScript builds a script from the configured lines, falling back to the
// built-in rotation.
func NewScript(lines []string) *Script {
	if len(lines) == 0 {
		lines = defaultScript
	}
	return &Script{lines: lines}
}

// Peek returns the reply the next Advance will consume.
func (s *Script) Peek() string {
	if len(s.lines) == 0 {
		return fallbackReply
	}
	return s.lines[s.index%len(s.lines)]
}

// Advance returns the current reply and moves the cursor one step. Called
// exactly once per successfully sent message.
func (s *Script) Advance() string {
	reply := s.Peek()
	if len(s.lines) > 0 {
		s.index = (s.index + 1) % len(s.lines)
	}
	return reply
}
