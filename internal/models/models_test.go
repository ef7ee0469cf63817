package models

import "testing"

func TestModelConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     ModelConfig
		wantErr error
	}{
		{"valid gemini", ModelConfig{ID: "m1", ModelName: "gemini-2.0-flash", Provider: ProviderGemini}, nil},
		{"valid openai", ModelConfig{ID: "m2", ModelName: "gpt-4o", Provider: ProviderOpenAICompatible}, nil},
		{"missing id", ModelConfig{ModelName: "gpt-4o", Provider: ProviderOpenAICompatible}, ErrEmptyModelID},
		{"missing model name", ModelConfig{ID: "m3", Provider: ProviderGemini}, ErrEmptyModelName},
		{"bad provider", ModelConfig{ID: "m4", ModelName: "x", Provider: "mystery"}, ErrInvalidProviderKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err != tc.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestInferProvider(t *testing.T) {
	cfg := ModelConfig{ID: "m", ModelName: "gemini-2.0-flash"}
	if got := cfg.InferProvider(); got != ProviderGemini {
		t.Errorf("expected gemini inference, got %s", got)
	}
	cfg = ModelConfig{ID: "m", ModelName: "llama-3-70b"}
	if got := cfg.InferProvider(); got != ProviderOpenAICompatible {
		t.Errorf("expected openai_compatible inference, got %s", got)
	}
	// Explicit provider wins over the name heuristic.
	cfg = ModelConfig{ID: "m", ModelName: "gemini-2.0-flash", Provider: ProviderOpenAICompatible}
	if got := cfg.InferProvider(); got != ProviderOpenAICompatible {
		t.Errorf("explicit provider should win, got %s", got)
	}
}

func TestSettingsValidate(t *testing.T) {
	s := Settings{
		Models: []ModelConfig{
			{ID: "a", ModelName: "gpt-4o", Provider: ProviderOpenAICompatible},
			{ID: "a", ModelName: "gemini-2.0-flash", Provider: ProviderGemini},
		},
	}
	if err := s.Validate(); err != ErrDuplicateModelID {
		t.Errorf("expected ErrDuplicateModelID, got %v", err)
	}

	s = Settings{Routing: map[Feature]string{"telepathy": "a"}}
	if err := s.Validate(); err != ErrInvalidFeature {
		t.Errorf("expected ErrInvalidFeature, got %v", err)
	}
}

func TestSettingsClone(t *testing.T) {
	s := &Settings{
		Routing:      map[Feature]string{FeatureMentor: "a"},
		Models:       []ModelConfig{{ID: "a", ModelName: "gpt-4o", Provider: ProviderOpenAICompatible}},
		ProviderKeys: map[ProviderKind]string{ProviderGemini: "key"},
	}
	c := s.Clone()
	c.Routing[FeatureMentor] = "b"
	c.Models[0].ID = "b"
	c.ProviderKeys[ProviderGemini] = "other"

	if s.Routing[FeatureMentor] != "a" || s.Models[0].ID != "a" || s.ProviderKeys[ProviderGemini] != "key" {
		t.Error("Clone must not share state with the original snapshot")
	}
}

func TestInterviewReplyNormalize(t *testing.T) {
	r := InterviewReply{Options: []string{"a", "", "b", "c", "d"}}
	r.Normalize()
	if len(r.Options) != MaxInterviewOptions {
		t.Fatalf("expected %d options, got %d", MaxInterviewOptions, len(r.Options))
	}
	if r.Options[0] != "a" || r.Options[1] != "b" || r.Options[2] != "c" {
		t.Errorf("unexpected options after normalize: %v", r.Options)
	}
}
