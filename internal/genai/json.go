// Package genai JSON helpers for tolerating markdown-wrapped model output.
package genai

import "strings"

// StripCodeFences removes a markdown code fence wrapping, if present, so
// JSON-mode responses can be parsed regardless of backend formatting.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	// Drop the opening fence line, which may carry a language tag.
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	} else {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
