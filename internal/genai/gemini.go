// Package genai Gemini adapter: structured output and server-side sessions.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	gogenai "github.com/google/generative-ai-go/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiProvider adapts the structured-output backend. It keeps one client
// handle per API key and persistent chat sessions keyed by the caller's
// session key (model + system instruction + language).
type GeminiProvider struct {
	mu       sync.Mutex
	apiKey   string
	client   *gogenai.Client
	sessions map[string]*gogenai.ChatSession
}

// NewGeminiProvider creates an adapter with no cached handles.
func NewGeminiProvider() *GeminiProvider {
	return &GeminiProvider{sessions: make(map[string]*gogenai.ChatSession)}
}

// Invoke performs one Gemini call. With a session key the turn is appended
// to the session's server-side history; otherwise the call is one-shot.
func (p *GeminiProvider) Invoke(ctx context.Context, cfg models.ModelConfig, apiKey, baseURL string, req Request) (string, error) {
	if apiKey == "" {
		slog.Error("GeminiProvider.Invoke: missing API key", "model", cfg.ModelName)
		return "", models.NewConfigurationError("no API key configured for model %q", cfg.ModelName)
	}

	client, err := p.clientFor(ctx, apiKey)
	if err != nil {
		return "", err
	}

	if req.SessionKey != "" {
		return p.invokeSession(ctx, client, cfg, req)
	}
	return p.invokeOneShot(ctx, client, cfg, req)
}

// clientFor returns the cached client handle, replacing it when the key
// changed. Replacing the handle drops every cached session with it.
func (p *GeminiProvider) clientFor(ctx context.Context, apiKey string) (*gogenai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.apiKey == apiKey {
		return p.client, nil
	}
	if p.client != nil {
		slog.Debug("GeminiProvider.clientFor: API key changed, replacing client handle")
		p.client.Close()
		p.sessions = make(map[string]*gogenai.ChatSession)
	}

	client, err := gogenai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		slog.Error("GeminiProvider.clientFor: failed to create client", "error", err)
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	p.client = client
	p.apiKey = apiKey
	return client, nil
}

// invokeSession appends the turn to an existing or freshly opened session.
func (p *GeminiProvider) invokeSession(ctx context.Context, client *gogenai.Client, cfg models.ModelConfig, req Request) (string, error) {
	p.mu.Lock()
	chat, ok := p.sessions[req.SessionKey]
	if !ok {
		model := p.configureModel(client, cfg, req)
		chat = model.StartChat()
		p.sessions[req.SessionKey] = chat
		slog.Debug("GeminiProvider.invokeSession: opened session", "sessionKey", req.SessionKey, "model", cfg.ModelName)
	}
	p.mu.Unlock()

	resp, err := chat.SendMessage(ctx, gogenai.Text(req.Turn))
	if err != nil {
		return "", wrapGeminiError(err)
	}
	return extractText(resp)
}

// invokeOneShot performs a stateless generation call. Supplied history is
// flattened into the prompt since no session carries it.
func (p *GeminiProvider) invokeOneShot(ctx context.Context, client *gogenai.Client, cfg models.ModelConfig, req Request) (string, error) {
	model := p.configureModel(client, cfg, req)

	prompt := req.Turn
	if len(req.Messages) > 0 {
		var sb strings.Builder
		for _, msg := range req.Messages {
			if msg.Role == RoleSystem {
				continue
			}
			sb.WriteString(string(msg.Role))
			sb.WriteString(": ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
		prompt = sb.String()
	}

	resp, err := model.GenerateContent(ctx, gogenai.Text(prompt))
	if err != nil {
		return "", wrapGeminiError(err)
	}
	return extractText(resp)
}

// configureModel builds a generative model with the request's system
// instruction, generation options, and structured-output schema.
func (p *GeminiProvider) configureModel(client *gogenai.Client, cfg models.ModelConfig, req Request) *gogenai.GenerativeModel {
	model := client.GenerativeModel(cfg.ModelName)

	system := req.System
	if system == "" {
		for _, msg := range req.Messages {
			if msg.Role == RoleSystem {
				system = msg.Content
				break
			}
		}
	}
	if system != "" {
		model.SystemInstruction = &gogenai.Content{Parts: []gogenai.Part{gogenai.Text(system)}}
	}

	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	} else if cfg.Temperature != nil {
		model.SetTemperature(float32(*cfg.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	} else if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	if req.JSONMode || req.Schema != nil {
		model.ResponseMIMEType = "application/json"
	}
	if req.Schema != nil {
		model.ResponseSchema = convertSchema(req.Schema)
	}
	return model
}

// DropSession discards the chat session stored under the given key.
func (p *GeminiProvider) DropSession(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sessions[key]; ok {
		delete(p.sessions, key)
		slog.Debug("GeminiProvider.DropSession: session discarded", "sessionKey", key)
	}
}

// Reset discards the client handle and all sessions. Called when settings
// are replaced.
func (p *GeminiProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	p.apiKey = ""
	p.sessions = make(map[string]*gogenai.ChatSession)
	slog.Debug("GeminiProvider.Reset: cached handles discarded")
}

// convertSchema translates the provider-neutral schema declaration into the
// Gemini schema format.
func convertSchema(schema *ResponseSchema) *gogenai.Schema {
	out := &gogenai.Schema{
		Type:       gogenai.TypeObject,
		Properties: make(map[string]*gogenai.Schema, len(schema.Fields)),
	}
	for _, f := range schema.Fields {
		var fs *gogenai.Schema
		switch f.Type {
		case "boolean":
			fs = &gogenai.Schema{Type: gogenai.TypeBoolean}
		case "array":
			fs = &gogenai.Schema{Type: gogenai.TypeArray, Items: &gogenai.Schema{Type: gogenai.TypeString}}
		default:
			fs = &gogenai.Schema{Type: gogenai.TypeString}
		}
		fs.Description = f.Description
		out.Properties[f.Name] = fs
		if f.Required {
			out.Required = append(out.Required, f.Name)
		}
	}
	return out
}

// extractText flattens the text parts of the first candidate.
func extractText(resp *gogenai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &models.ProviderError{Message: "no candidates in response"}
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &models.ProviderError{Message: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(gogenai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", &models.ProviderError{Message: "no text parts in response"}
	}
	return strings.Join(parts, ""), nil
}

// wrapGeminiError converts backend failures into the shared error taxonomy.
func wrapGeminiError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return &models.ProviderError{Status: gErr.Code, Message: gErr.Message}
	}
	return &models.ProviderError{Message: err.Error()}
}
