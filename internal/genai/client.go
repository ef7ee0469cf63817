// Package genai client multiplexer: feature routing, provider selection,
// and the retry chokepoint for every external AI call.
package genai

import (
	"context"
	"log/slog"
	"sync"

	"github.com/promptsmith/PromptStudio/internal/models"
	"github.com/promptsmith/PromptStudio/internal/router"
)

// Client multiplexes requests across the configured providers. It holds the
// current settings snapshot; UpdateSettings replaces the snapshot wholesale
// and invalidates every cached provider handle.
type Client struct {
	mu       sync.RWMutex
	settings *models.Settings

	gemini Provider
	openai Provider
	retry  *RetryPolicy
}

// NewClient creates a multiplexing client over the given settings snapshot.
func NewClient(settings *models.Settings) *Client {
	slog.Debug("genai.NewClient: creating client", "models", len(settings.Models))
	return &Client{
		settings: settings.Clone(),
		gemini:   NewGeminiProvider(),
		openai:   NewOpenAIProvider(),
		retry:    NewRetryPolicy(),
	}
}

// Generate resolves the feature to its configured model, selects the
// provider adapter once, and runs the invocation through the retry policy.
func (c *Client) Generate(ctx context.Context, feature models.Feature, req Request) (string, error) {
	res, err := c.Resolve(feature)
	if err != nil {
		return "", err
	}

	provider := c.providerFor(res.Config.InferProvider())
	slog.Debug("Client.Generate: invoking provider", "feature", feature, "model", res.Config.ModelName, "provider", res.Config.InferProvider(), "jsonMode", req.JSONMode, "session", req.SessionKey != "")

	return c.retry.Do(ctx, func(ctx context.Context) (string, error) {
		return provider.Invoke(ctx, res.Config, res.APIKey, res.BaseURL, req)
	})
}

// Resolve routes a feature against the current settings snapshot.
func (c *Client) Resolve(feature models.Feature) (router.Resolution, error) {
	c.mu.RLock()
	settings := c.settings
	c.mu.RUnlock()
	return router.Resolve(settings, feature)
}

// Settings returns a copy of the current snapshot.
func (c *Client) Settings() *models.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.Clone()
}

// UpdateSettings replaces the settings snapshot atomically and drops all
// cached provider handles and sessions.
func (c *Client) UpdateSettings(settings *models.Settings) {
	c.mu.Lock()
	c.settings = settings.Clone()
	c.mu.Unlock()

	c.gemini.Reset()
	c.openai.Reset()
	slog.Info("Client.UpdateSettings: settings snapshot replaced, provider handles reset")
}

// DropSession discards a persistent provider-side chat session.
func (c *Client) DropSession(key string) {
	c.gemini.DropSession(key)
	c.openai.DropSession(key)
}

// providerFor selects the adapter for a provider kind.
func (c *Client) providerFor(kind models.ProviderKind) Provider {
	if kind == models.ProviderGemini {
		return c.gemini
	}
	return c.openai
}
