// Package genai OpenAI-compatible adapter: stateless HTTP chat completions.
package genai

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/promptsmith/PromptStudio/internal/models"
)

// OpenAIProvider adapts any OpenAI-compatible chat-completions endpoint.
// Calls are stateless: the caller supplies the full message history every
// time. One client handle is cached per (key, base URL) pair.
type OpenAIProvider struct {
	mu      sync.Mutex
	apiKey  string
	baseURL string
	client  openai.Client
	cached  bool
}

// NewOpenAIProvider creates an adapter with no cached handle.
func NewOpenAIProvider() *OpenAIProvider {
	return &OpenAIProvider{}
}

// Invoke performs one chat-completions call. When JSON mode is requested,
// the response-format flag is set and any fenced code block wrapping the
// returned JSON is stripped.
func (p *OpenAIProvider) Invoke(ctx context.Context, cfg models.ModelConfig, apiKey, baseURL string, req Request) (string, error) {
	if apiKey == "" {
		slog.Error("OpenAIProvider.Invoke: missing API key", "model", cfg.ModelName)
		return "", models.NewConfigurationError("no API key configured for model %q", cfg.ModelName)
	}

	client := p.clientFor(apiKey, baseURL)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(cfg.ModelName),
		Messages: buildMessages(req),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if cfg.Temperature != nil {
		params.Temperature = openai.Float(*cfg.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	} else if cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(cfg.MaxTokens))
	}
	if req.JSONMode || req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &models.ProviderError{Message: "no choices returned"}
	}

	content := resp.Choices[0].Message.Content
	if req.JSONMode || req.Schema != nil {
		content = StripCodeFences(content)
	}
	return content, nil
}

// clientFor returns the cached client handle, replacing it when the
// credentials changed.
func (p *OpenAIProvider) clientFor(apiKey, baseURL string) openai.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached && p.apiKey == apiKey && p.baseURL == baseURL {
		return p.client
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	p.client = openai.NewClient(opts...)
	p.apiKey = apiKey
	p.baseURL = baseURL
	p.cached = true
	slog.Debug("OpenAIProvider.clientFor: client handle created", "baseURLSet", baseURL != "")
	return p.client
}

// DropSession is a no-op: this provider keeps no server-side sessions.
func (p *OpenAIProvider) DropSession(key string) {}

// Reset discards the cached client handle.
func (p *OpenAIProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = false
	p.apiKey = ""
	p.baseURL = ""
	slog.Debug("OpenAIProvider.Reset: cached handle discarded")
}

// buildMessages maps the normalized request onto the wire message union.
func buildMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion
	if len(req.Messages) > 0 {
		for _, m := range req.Messages {
			switch m.Role {
			case RoleSystem:
				msgs = append(msgs, openai.SystemMessage(m.Content))
			case RoleAssistant:
				msgs = append(msgs, openai.AssistantMessage(m.Content))
			default:
				msgs = append(msgs, openai.UserMessage(m.Content))
			}
		}
		return msgs
	}
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Turn))
	return msgs
}

// wrapOpenAIError converts backend failures into the shared error taxonomy.
func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &models.ProviderError{Status: apiErr.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}
	return &models.ProviderError{Message: err.Error()}
}
