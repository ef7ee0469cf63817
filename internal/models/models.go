// Package models defines the core data structures for PromptStudio.
//
// It includes model configurations, feature routing, settings, and the
// shared types used by the interview and editor flows.
package models

import (
	"errors"
	"strings"
)

// Feature identifies a logical AI capability that is routed independently
// to its own model configuration.
type Feature string

const (
	// FeatureInterview drives the guided requirement-gathering conversation.
	FeatureInterview Feature = "interview"
	// FeatureMentor produces the single actionable improvement tip.
	FeatureMentor Feature = "mentor"
	// FeatureFeedback applies the current mentor tip as a minimal edit.
	FeatureFeedback Feature = "feedback"
	// FeatureCritique runs the deep scan producing inline suggestions.
	FeatureCritique Feature = "critique"
	// FeatureClassify assigns locked segments to a prompt pillar.
	FeatureClassify Feature = "classify"
	// FeatureRewrite reconstructs the document (full or partial).
	FeatureRewrite Feature = "rewrite"
	// FeatureRewriteFast is the optional fallback model for reconstruction
	// when the primary rewrite model is rate limited.
	FeatureRewriteFast Feature = "rewrite_fast"
	// FeatureReverseEngineer infers a prompt from an example output.
	FeatureReverseEngineer Feature = "reverse_engineer"
)

// IsValidFeature checks if the given feature is supported.
func IsValidFeature(f Feature) bool {
	switch f {
	case FeatureInterview, FeatureMentor, FeatureFeedback, FeatureCritique,
		FeatureClassify, FeatureRewrite, FeatureRewriteFast, FeatureReverseEngineer:
		return true
	default:
		return false
	}
}

// ProviderKind distinguishes the two supported chat-completion backends.
type ProviderKind string

const (
	// ProviderGemini is the structured-output provider with server-side chat sessions.
	ProviderGemini ProviderKind = "gemini"
	// ProviderOpenAICompatible is any generic HTTP chat-completions backend.
	ProviderOpenAICompatible ProviderKind = "openai_compatible"
)

// Language selects the localized system instructions for the interview flow.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
	LanguageFrench  Language = "fr"
	LanguageGerman  Language = "de"
)

// Validation error variables for settings and model configurations.
var (
	ErrEmptyModelID        = errors.New("model config id cannot be empty")
	ErrEmptyModelName      = errors.New("model name cannot be empty")
	ErrInvalidProviderKind = errors.New("invalid provider kind")
	ErrDuplicateModelID    = errors.New("duplicate model config id")
	ErrInvalidFeature      = errors.New("invalid feature in routing table")
)

// ModelConfig identifies one invocable backend configuration.
// Immutable once created; settings updates replace it wholesale.
type ModelConfig struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	Provider    ProviderKind `json:"provider"`
	ModelName   string       `json:"model_name"`
	BaseURL     string       `json:"base_url,omitempty"`
	APIKey      string       `json:"api_key,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
}

// Validate checks the model configuration for required fields.
func (m *ModelConfig) Validate() error {
	if m.ID == "" {
		return ErrEmptyModelID
	}
	if m.ModelName == "" {
		return ErrEmptyModelName
	}
	if m.Provider != ProviderGemini && m.Provider != ProviderOpenAICompatible {
		return ErrInvalidProviderKind
	}
	return nil
}

// InferProvider guesses the provider kind from the model name when the
// config does not carry one. Gemini model names are prefixed "gemini".
func (m *ModelConfig) InferProvider() ProviderKind {
	if m.Provider != "" {
		return m.Provider
	}
	if strings.HasPrefix(strings.ToLower(m.ModelName), "gemini") {
		return ProviderGemini
	}
	return ProviderOpenAICompatible
}

// Settings is the aggregate configuration snapshot. It is loaded at startup,
// replaced atomically on save, and never partially mutated in place: every
// reader gets a full snapshot.
type Settings struct {
	ActiveProvider ProviderKind            `json:"active_provider"`
	ProviderKeys   map[ProviderKind]string `json:"provider_keys,omitempty"`
	DefaultAPIKey  string                  `json:"default_api_key,omitempty"`
	DefaultBaseURL string                  `json:"default_base_url,omitempty"`
	Routing        map[Feature]string      `json:"routing"`
	Models         []ModelConfig           `json:"models"`
	Language       Language                `json:"language"`
	Theme          string                  `json:"theme,omitempty"`
}

// Validate checks the settings aggregate for internal consistency.
func (s *Settings) Validate() error {
	seen := make(map[string]bool, len(s.Models))
	for i := range s.Models {
		if err := s.Models[i].Validate(); err != nil {
			return err
		}
		if seen[s.Models[i].ID] {
			return ErrDuplicateModelID
		}
		seen[s.Models[i].ID] = true
	}
	for f := range s.Routing {
		if !IsValidFeature(f) {
			return ErrInvalidFeature
		}
	}
	return nil
}

// ModelByID returns the model config with the given id, or nil.
func (s *Settings) ModelByID(id string) *ModelConfig {
	for i := range s.Models {
		if s.Models[i].ID == id {
			return &s.Models[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the settings snapshot so callers can hold it
// without observing later mutations.
func (s *Settings) Clone() *Settings {
	out := *s
	out.Models = make([]ModelConfig, len(s.Models))
	copy(out.Models, s.Models)
	out.Routing = make(map[Feature]string, len(s.Routing))
	for k, v := range s.Routing {
		out.Routing[k] = v
	}
	out.ProviderKeys = make(map[ProviderKind]string, len(s.ProviderKeys))
	for k, v := range s.ProviderKeys {
		out.ProviderKeys[k] = v
	}
	return &out
}

// APIResponse is the uniform JSON envelope returned by all HTTP endpoints.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Status constants for APIResponse.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Success creates a success response with a result payload.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: StatusSuccess, Result: result}
}

// SuccessWithMessage creates a success response with a message and optional result.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: StatusSuccess, Message: message, Result: result}
}

// Error creates an error response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: StatusError, Message: message}
}
