// Package export renders a prompt document for sharing: a Markdown file, a
// versioned JSON envelope, and a compact URL-safe share payload.
package export

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EnvelopeVersion identifies the JSON export format.
const EnvelopeVersion = 1

// Envelope is the JSON export format. ExportedAt is UTC.
type Envelope struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Prompt     string    `json:"prompt"`
	Context    string    `json:"context,omitempty"`
}

// sharePayload is the minimal shape encoded into share links. Short keys
// keep the URL fragment small.
type sharePayload struct {
	Prompt  string `json:"p"`
	Context string `json:"c,omitempty"`
}

// Markdown renders the prompt (and optional context) as a Markdown
// document.
func Markdown(prompt, contextText string) string {
	var sb strings.Builder
	sb.WriteString("# Prompt\n\n")
	sb.WriteString(prompt)
	sb.WriteString("\n")
	if contextText != "" {
		sb.WriteString("\n## Context\n\n")
		sb.WriteString(contextText)
		sb.WriteString("\n")
	}
	return sb.String()
}

// JSON renders the versioned export envelope.
func JSON(prompt, contextText string, now time.Time) ([]byte, error) {
	env := Envelope{
		Version:    EnvelopeVersion,
		ExportedAt: now.UTC(),
		Prompt:     prompt,
		Context:    contextText,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export envelope: %w", err)
	}
	return data, nil
}

// EncodeShare packs the prompt and context into a URL-safe base64 token.
func EncodeShare(prompt, contextText string) (string, error) {
	data, err := json.Marshal(sharePayload{Prompt: prompt, Context: contextText})
	if err != nil {
		return "", fmt.Errorf("failed to marshal share payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeShare unpacks a share token back into prompt and context.
func DecodeShare(token string) (prompt, contextText string, err error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode share token: %w", err)
	}
	var payload sharePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", "", fmt.Errorf("failed to unmarshal share payload: %w", err)
	}
	return payload.Prompt, payload.Context, nil
}
