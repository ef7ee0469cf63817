// Package genai normalizes calls to heterogeneous chat-completion backends
// into a single request/response shape.
//
// Two provider adapters are supported: a structured-output provider with
// server-side chat sessions (Gemini) and a generic HTTP chat-completions
// provider (any OpenAI-compatible endpoint). Callers go through the Client
// multiplexer, which routes a logical feature to its configured model and
// wraps every invocation in the retry policy exactly once.
package genai

import (
	"context"

	"github.com/promptsmith/PromptStudio/internal/models"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat history for stateless providers.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SchemaField describes one field of a constrained JSON response schema.
type SchemaField struct {
	Name        string
	Type        string // "string", "boolean", or "array"
	Items       string // element type when Type is "array"
	Description string
	Required    bool
}

// ResponseSchema declares the JSON shape a structured-output provider must
// conform to. Providers without schema support fall back to JSON mode.
type ResponseSchema struct {
	Fields []SchemaField
}

// Request carries one normalized chat-completion invocation.
//
// Exactly one conversation shape applies per call:
//   - SessionKey set: the turn is appended to a persistent provider-side
//     session (structured provider only).
//   - Messages set: the full history is supplied and the call is stateless.
//   - Neither: a one-shot call built from System and Turn.
type Request struct {
	System      string
	Messages    []Message
	Turn        string
	SessionKey  string
	JSONMode    bool
	Schema      *ResponseSchema
	Temperature *float64
	MaxTokens   int
}

// Provider is one chat-completion backend adapter. Errors propagate
// unchanged to the retry policy; no retrying happens inside adapters.
type Provider interface {
	// Invoke performs a single chat-completion call and returns raw text.
	Invoke(ctx context.Context, cfg models.ModelConfig, apiKey, baseURL string, req Request) (string, error)
	// DropSession discards a persistent chat session, if the provider keeps
	// one under the given key. A no-op for stateless providers.
	DropSession(key string)
	// Reset discards all cached client handles and sessions.
	Reset()
}
