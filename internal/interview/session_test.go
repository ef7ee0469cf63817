package interview

import (
	"context"
	"testing"

	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
	"github.com/promptsmith/PromptStudio/internal/router"
)

// fakeAIClient scripts responses and records requests.
type fakeAIClient struct {
	kind          models.ProviderKind
	responses     []string
	requests      []genai.Request
	droppedKeys   []string
	resolveErr    error
	generateErr   error
	generateCalls int
}

func (f *fakeAIClient) Generate(ctx context.Context, feature models.Feature, req genai.Request) (string, error) {
	f.requests = append(f.requests, req)
	f.generateCalls++
	if f.generateErr != nil {
		return "", f.generateErr
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeAIClient) Resolve(feature models.Feature) (router.Resolution, error) {
	if f.resolveErr != nil {
		return router.Resolution{}, f.resolveErr
	}
	return router.Resolution{
		Config: models.ModelConfig{ID: "interview-model", ModelName: "test-model", Provider: f.kind},
		APIKey: "key",
	}, nil
}

func (f *fakeAIClient) DropSession(key string) {
	f.droppedKeys = append(f.droppedKeys, key)
}

func TestSendTurnReturnsStructuredReply(t *testing.T) {
	client := &fakeAIClient{
		kind:      models.ProviderOpenAICompatible,
		responses: []string{`{"question":"What tone?","options":["Friendly","Formal","Neutral"],"isFinalDraft":false}`},
	}
	s := NewSession(client)
	if err := s.Start(models.LanguageEnglish); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	reply, err := s.SendTurn(context.Background(), "I want a customer support bot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Question != "What tone?" {
		t.Errorf("unexpected question: %q", reply.Question)
	}
	if len(reply.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(reply.Options))
	}
	if reply.IsFinalDraft {
		t.Error("expected isFinalDraft false")
	}
}

func TestSendTurnFencedAndUnfencedAreEquivalent(t *testing.T) {
	body := `{"question":"Q","options":["a","b","c"],"isFinalDraft":false}`
	for _, raw := range []string{body, "```json\n" + body + "\n```"} {
		client := &fakeAIClient{kind: models.ProviderOpenAICompatible, responses: []string{raw}}
		s := NewSession(client)

		reply, err := s.SendTurn(context.Background(), "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply.Question != "Q" || len(reply.Options) != 3 {
			t.Errorf("fenced and unfenced replies must parse identically, got %+v", reply)
		}
	}
}

func TestSendTurnUnparsableReturnsSentinel(t *testing.T) {
	client := &fakeAIClient{kind: models.ProviderOpenAICompatible, responses: []string{"I refuse to answer in JSON"}}
	s := NewSession(client)

	reply, err := s.SendTurn(context.Background(), "hello")
	if err != nil {
		t.Fatalf("parse failures must not become errors: %v", err)
	}
	if reply.Question != locales[models.LanguageEnglish].parseError {
		t.Errorf("expected localized sentinel, got %q", reply.Question)
	}
	if len(reply.Options) != 0 || reply.IsFinalDraft {
		t.Errorf("sentinel reply must be empty-options non-final, got %+v", reply)
	}
}

func TestRepresentationsAreMutuallyExclusive(t *testing.T) {
	// Structured provider: session key, no local history.
	client := &fakeAIClient{kind: models.ProviderGemini, responses: []string{`{"question":"Q","options":[],"isFinalDraft":false}`}}
	s := NewSession(client)
	if _, err := s.SendTurn(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.sessionKey == "" {
		t.Error("structured provider must use a session key")
	}
	if s.history != nil {
		t.Error("structured provider must not keep local history")
	}
	if client.requests[0].SessionKey == "" || client.requests[0].Schema == nil {
		t.Error("structured request must carry session key and schema")
	}

	// HTTP provider: local history including the system instruction, no key.
	client = &fakeAIClient{kind: models.ProviderOpenAICompatible, responses: []string{`{"question":"Q","options":[],"isFinalDraft":false}`}}
	s = NewSession(client)
	if _, err := s.SendTurn(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.sessionKey != "" {
		t.Error("HTTP provider must not use a session key")
	}
	if len(s.history) != 3 { // system + user + assistant
		t.Fatalf("expected 3 history messages, got %d", len(s.history))
	}
	if s.history[0].Role != genai.RoleSystem {
		t.Error("history must be seeded with the system instruction")
	}
	if len(client.requests[0].Messages) != 2 { // system + new user turn
		t.Errorf("stateless request must carry full history, got %d messages", len(client.requests[0].Messages))
	}
}

func TestFinalizeReturnsGeneratedPrompt(t *testing.T) {
	client := &fakeAIClient{
		kind:      models.ProviderOpenAICompatible,
		responses: []string{`{"question":"done","options":[],"isFinalDraft":true,"generatedPrompt":"You are a support bot."}`},
	}
	s := NewSession(client)

	prompt, err := s.Finalize(context.Background(), models.LanguageEnglish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "You are a support bot." {
		t.Errorf("unexpected prompt: %q", prompt)
	}
}

func TestFinalizeFallsBackToQuestion(t *testing.T) {
	client := &fakeAIClient{
		kind:      models.ProviderOpenAICompatible,
		responses: []string{`{"question":"Here is your prompt instead","options":[],"isFinalDraft":true}`},
	}
	s := NewSession(client)

	prompt, err := s.Finalize(context.Background(), models.LanguageEnglish)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "Here is your prompt instead" {
		t.Errorf("expected question fallback, got %q", prompt)
	}
}

func TestRestartTearsDownStructuredSession(t *testing.T) {
	client := &fakeAIClient{kind: models.ProviderGemini, responses: []string{`{"question":"Q","options":[],"isFinalDraft":false}`}}
	s := NewSession(client)
	if _, err := s.SendTurn(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oldKey := s.sessionKey

	if err := s.Restart(models.LanguageFrench); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if len(client.droppedKeys) != 1 || client.droppedKeys[0] != oldKey {
		t.Errorf("expected old session %q dropped, got %v", oldKey, client.droppedKeys)
	}
	if s.sessionKey == oldKey {
		t.Error("restart must produce a fresh session key")
	}
	if len(s.Transcript()) != 0 {
		t.Error("restart must clear the transcript")
	}
}

func TestTranscriptIsAppendOnly(t *testing.T) {
	client := &fakeAIClient{
		kind:      models.ProviderOpenAICompatible,
		responses: []string{`{"question":"Q1","options":["a","b","c"],"isFinalDraft":false}`},
	}
	s := NewSession(client)
	if _, err := s.SendTurn(context.Background(), "first answer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turns := s.Transcript()
	if len(turns) != 2 {
		t.Fatalf("expected user + ai turns, got %d", len(turns))
	}
	if turns[0].Speaker != models.SpeakerUser || turns[0].Text != "first answer" {
		t.Errorf("unexpected first turn: %+v", turns[0])
	}
	if turns[1].Speaker != models.SpeakerAI || turns[1].Text != "Q1" {
		t.Errorf("unexpected second turn: %+v", turns[1])
	}
}
