// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package message

// =============================================================================
// DEEP ID EXTRACTION
// =============================================================================

// The POST /api/messages response wraps the created record differently per
// deployment: sometimes the record itself, sometimes under data / message /
// result, sometimes one level deeper. ExtractID digs the id out wherever it
// landed.

const maxExtractDepth = 3

// extractIDKeys are the accepted id spellings, in priority order.
var extractIDKeys = []string{"id", "_id", "messageId", "uuid"}

// extractEnvelopeKeys are the wrapper fields searched before anything else.
var extractEnvelopeKeys = []string{"data", "message", "result"}

// ExtractID searches v for a message id: direct id keys first, then the
// known envelope keys, then every remaining object value, descending at most
// maxExtractDepth levels. Returns "" when nothing id-like is found.
func ExtractID(v any) string {
	return scalarString(extractID(v, 0, extractIDKeys, extractEnvelopeKeys))
}

// extractID is the walker behind ExtractID; the depth bound and key priority
// lists are parameters so the search order is explicit at the call site.
func extractID(v any, depth int, idKeys, envelopeKeys []string) any {
	if depth > maxExtractDepth {
		return nil
	}
	// A created-message envelope can also be a one-element array.
	if list, ok := v.([]any); ok {
		for _, inner := range list {
			if found := extractID(inner, depth+1, idKeys, envelopeKeys); found != nil {
				return found
			}
		}
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	for _, k := range idKeys {
		if val, present := obj[k]; present && val != nil {
			return val
		}
	}
	for _, k := range envelopeKeys {
		if inner := obj[k]; inner != nil {
			if found := extractID(inner, depth+1, idKeys, envelopeKeys); found != nil {
				return found
			}
		}
	}
	// Last resort: scan remaining object values in whatever order the map
	// yields them. Callers must not depend on which of several competing
	// deep ids wins.
	for _, inner := range obj {
		switch inner.(type) {
		case map[string]any, []any:
			if found := extractID(inner, depth+1, idKeys, envelopeKeys); found != nil {
				return found
			}
		}
	}
	return nil
}
