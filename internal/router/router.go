// Package router resolves logical AI features to concrete model
// configurations, effective API keys, and base URLs.
//
// Resolution is a pure function of a Settings snapshot: nothing is cached
// here, so replacing the snapshot is all a caller needs to do to
// invalidate previous resolutions.
package router

import (
	"log/slog"

	"github.com/promptsmith/PromptStudio/internal/models"
)

// Resolution is the outcome of routing a feature: the model configuration
// to invoke plus the effective credentials for it.
type Resolution struct {
	Config  models.ModelConfig
	APIKey  string
	BaseURL string
}

// Resolve looks up the model assigned to the feature in the settings
// snapshot and resolves credential precedence.
//
// API key priority: model-specific > global default > provider-specific.
// Base URL priority: model-specific > global default. Providers with a
// fixed endpoint (Gemini) ignore the base URL entirely.
func Resolve(s *models.Settings, feature models.Feature) (Resolution, error) {
	if s == nil {
		return Resolution{}, models.NewConfigurationError("no settings loaded")
	}

	modelID, ok := s.Routing[feature]
	if !ok || modelID == "" {
		slog.Debug("router.Resolve: no model assigned to feature", "feature", feature)
		return Resolution{}, models.NewConfigurationError("no model assigned to feature %q", feature)
	}

	cfg := s.ModelByID(modelID)
	if cfg == nil {
		// Covers deleted or renamed custom models still referenced by routing.
		slog.Warn("router.Resolve: routed model not found", "feature", feature, "modelID", modelID)
		return Resolution{}, models.NewConfigurationError("model %q assigned to feature %q does not exist", modelID, feature)
	}

	res := Resolution{Config: *cfg}
	res.APIKey = resolveAPIKey(s, cfg)
	res.BaseURL = resolveBaseURL(s, cfg)

	slog.Debug("router.Resolve: resolved feature", "feature", feature, "modelID", cfg.ID, "provider", cfg.InferProvider(), "keySet", res.APIKey != "")
	return res, nil
}

// resolveAPIKey applies the key precedence chain for a model config.
func resolveAPIKey(s *models.Settings, cfg *models.ModelConfig) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	if s.DefaultAPIKey != "" {
		return s.DefaultAPIKey
	}
	return s.ProviderKeys[cfg.InferProvider()]
}

// resolveBaseURL applies the base URL precedence chain for a model config.
func resolveBaseURL(s *models.Settings, cfg *models.ModelConfig) string {
	if cfg.InferProvider() == models.ProviderGemini {
		return ""
	}
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return s.DefaultBaseURL
}
