package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/promptsmith/PromptStudio/internal/models"
)

// fakeProvider records invocations and returns scripted responses.
type fakeProvider struct {
	invocations []Request
	models      []string
	responses   []string
	errs        []error
	resets      int
}

func (f *fakeProvider) Invoke(ctx context.Context, cfg models.ModelConfig, apiKey, baseURL string, req Request) (string, error) {
	i := len(f.invocations)
	f.invocations = append(f.invocations, req)
	f.models = append(f.models, cfg.ModelName)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func (f *fakeProvider) DropSession(key string) {}
func (f *fakeProvider) Reset()                 { f.resets++ }

func clientSettings() *models.Settings {
	return &models.Settings{
		Routing: map[models.Feature]string{
			models.FeatureMentor:    "openai-model",
			models.FeatureInterview: "gemini-model",
		},
		Models: []models.ModelConfig{
			{ID: "openai-model", ModelName: "gpt-4o", Provider: models.ProviderOpenAICompatible, APIKey: "k1"},
			{ID: "gemini-model", ModelName: "gemini-2.0-flash", Provider: models.ProviderGemini, APIKey: "k2"},
		},
	}
}

func TestGenerateSelectsProviderByKind(t *testing.T) {
	c := NewClient(clientSettings())
	gemini := &fakeProvider{responses: []string{"from gemini"}}
	oai := &fakeProvider{responses: []string{"from openai"}}
	c.gemini = gemini
	c.openai = oai

	out, err := c.Generate(context.Background(), models.FeatureMentor, Request{Turn: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "from openai" {
		t.Errorf("expected openai response, got %q", out)
	}
	if len(gemini.invocations) != 0 || len(oai.invocations) != 1 {
		t.Errorf("wrong provider invoked: gemini=%d openai=%d", len(gemini.invocations), len(oai.invocations))
	}

	out, err = c.Generate(context.Background(), models.FeatureInterview, Request{Turn: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "from gemini" {
		t.Errorf("expected gemini response, got %q", out)
	}
}

func TestGenerateUnroutedFeatureFailsFast(t *testing.T) {
	c := NewClient(clientSettings())
	oai := &fakeProvider{}
	c.openai = oai

	_, err := c.Generate(context.Background(), models.FeatureCritique, Request{Turn: "hi"})
	var cfgErr *models.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if len(oai.invocations) != 0 {
		t.Error("no provider call should happen for an unrouted feature")
	}
}

func TestGenerateRetriesThroughPolicy(t *testing.T) {
	c := NewClient(clientSettings())
	limited := &models.ProviderError{Status: 429, Message: "limited"}
	oai := &fakeProvider{
		errs:      []error{limited, nil},
		responses: []string{"", "recovered"},
	}
	c.openai = oai
	c.retry.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	out, err := c.Generate(context.Background(), models.FeatureMentor, Request{Turn: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "recovered" {
		t.Errorf("expected recovered, got %q", out)
	}
	if len(oai.invocations) != 2 {
		t.Errorf("expected 2 invocations, got %d", len(oai.invocations))
	}
}

func TestUpdateSettingsResetsProviders(t *testing.T) {
	c := NewClient(clientSettings())
	gemini := &fakeProvider{}
	oai := &fakeProvider{}
	c.gemini = gemini
	c.openai = oai

	s := clientSettings()
	s.DefaultAPIKey = "new-key"
	c.UpdateSettings(s)

	if gemini.resets != 1 || oai.resets != 1 {
		t.Errorf("expected both providers reset once, got gemini=%d openai=%d", gemini.resets, oai.resets)
	}
	if c.Settings().DefaultAPIKey != "new-key" {
		t.Error("settings snapshot was not replaced")
	}
}
