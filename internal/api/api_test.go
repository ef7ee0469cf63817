package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
	"github.com/promptsmith/PromptStudio/internal/store"
)

// fakeBackend is a minimal OpenAI-compatible chat-completions endpoint that
// replays scripted assistant messages.
type fakeBackend struct {
	mu      sync.Mutex
	queue   []string
	calls   int
	lastMsg string
}

func (f *fakeBackend) push(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, content)
}

func (f *fakeBackend) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) > 0 {
		f.lastMsg = req.Messages[len(req.Messages)-1].Content
	}

	content := "ok"
	if len(f.queue) > 0 {
		content = f.queue[0]
		f.queue = f.queue[1:]
	}

	resp := map[string]interface{}{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func testSettings(baseURL string) *models.Settings {
	routing := make(map[models.Feature]string)
	for _, f := range []models.Feature{
		models.FeatureInterview, models.FeatureMentor, models.FeatureFeedback,
		models.FeatureCritique, models.FeatureClassify, models.FeatureRewrite,
		models.FeatureRewriteFast, models.FeatureReverseEngineer,
	} {
		routing[f] = "default-model"
	}
	return &models.Settings{
		ActiveProvider: models.ProviderOpenAICompatible,
		DefaultAPIKey:  "test-key",
		DefaultBaseURL: baseURL,
		Routing:        routing,
		Models: []models.ModelConfig{
			{ID: "default-model", ModelName: "test-model", Provider: models.ProviderOpenAICompatible},
		},
		Language: models.LanguageEnglish,
	}
}

// newTestServer wires a full server against a scripted backend.
func newTestServer(t *testing.T) (*Server, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	backendSrv := httptest.NewServer(http.HandlerFunc(backend.handler))
	t.Cleanup(backendSrv.Close)

	client := genai.NewClient(testSettings(backendSrv.URL))
	s := NewServer(client, store.NewInMemoryStore())
	t.Cleanup(s.editor.Close)
	return s, backend
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var env models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	updated := testSettings("http://localhost:9999")
	updated.Theme = "dark"
	rec = doJSON(t, s, http.MethodPut, "/settings", updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := s.client.Settings().Theme; got != "dark" {
		t.Errorf("client must carry updated settings, got theme %q", got)
	}
	if saved, err := s.st.LoadSettings(); err != nil || saved == nil || saved.Theme != "dark" {
		t.Errorf("settings must be persisted, got %+v err %v", saved, err)
	}
}

func TestSettingsRejectsInvalid(t *testing.T) {
	s, _ := newTestServer(t)
	bad := testSettings("http://localhost:9999")
	bad.Models = append(bad.Models, models.ModelConfig{ID: "default-model", ModelName: "dup", Provider: models.ProviderOpenAICompatible})

	rec := doJSON(t, s, http.MethodPut, "/settings", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate model ids must be rejected, got %d", rec.Code)
	}
	if saved, _ := s.st.LoadSettings(); saved != nil {
		t.Error("rejected settings must not be persisted")
	}
}

func TestInterviewTurnEndToEnd(t *testing.T) {
	s, backend := newTestServer(t)
	backend.push(`{"question":"Who is the audience?","options":["Developers","Executives","Students"],"isFinalDraft":false}`)

	rec := doJSON(t, s, http.MethodPost, "/interview/turn", map[string]string{"text": "I need a summary prompt"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	result, err := json.Marshal(env.Result)
	if err != nil {
		t.Fatalf("failed to re-marshal result: %v", err)
	}
	var reply models.InterviewReply
	if err := json.Unmarshal(result, &reply); err != nil {
		t.Fatalf("failed to decode reply: %v", err)
	}
	if reply.Question != "Who is the audience?" || len(reply.Options) != 3 {
		t.Errorf("unexpected reply: %+v", reply)
	}

	rec = doJSON(t, s, http.MethodGet, "/interview/transcript", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "I need a summary prompt") {
		t.Error("transcript must contain the user turn")
	}
}

func TestInterviewFinalizeFeedsEditor(t *testing.T) {
	s, backend := newTestServer(t)
	backend.push(`{"question":"","options":[],"isFinalDraft":true,"generatedPrompt":"You are a concise summarizer."}`)

	rec := doJSON(t, s, http.MethodPost, "/interview/finalize", map[string]string{"language": "en"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := s.editor.Document(); got != "You are a concise summarizer." {
		t.Errorf("finalized prompt must become the editor document, got %q", got)
	}
}

func TestEditorScanAndApplyEndToEnd(t *testing.T) {
	s, backend := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/editor/document", map[string]string{"text": "Summarize the text quickly."})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	backend.push(`[{"originalText":"quickly","suggestedText":"in at most three sentences","reason":"vague","category":"specificity"}]`)
	rec = doJSON(t, s, http.MethodPost, "/editor/scan", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	suggestions := s.editor.Suggestions()
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/editor/suggestions/%s/apply", suggestions[0].ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := s.editor.Document(); got != "Summarize the text in at most three sentences." {
		t.Errorf("unexpected document after apply: %q", got)
	}

	rec = doJSON(t, s, http.MethodPost, "/editor/suggestions/missing/apply", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown suggestion must 404, got %d", rec.Code)
	}
}

func TestEditorLockEndpoints(t *testing.T) {
	s, backend := newTestServer(t)
	backend.push("Persona")

	rec := doJSON(t, s, http.MethodPost, "/editor/locks", map[string]string{"text": "You are a pirate."})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	locks := s.editor.Locks()
	if len(locks) != 1 {
		t.Fatalf("expected 1 lock, got %d", len(locks))
	}

	rec = doJSON(t, s, http.MethodDelete, "/editor/locks/"+locks[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(s.editor.Locks()) != 0 {
		t.Error("lock must be removed")
	}
}

func TestExportAndShare(t *testing.T) {
	s, _ := newTestServer(t)
	doJSON(t, s, http.MethodPut, "/editor/document", map[string]string{"text": "Be concise."})
	doJSON(t, s, http.MethodPut, "/editor/context", map[string]string{"text": "Support chat."})

	rec := doJSON(t, s, http.MethodGet, "/export?format=markdown", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# Prompt") {
		t.Errorf("unexpected markdown export: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/export?format=json", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"version"`) {
		t.Errorf("unexpected json export: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/export?format=pdf", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format must 400, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/share", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	token, _ := env.Result.(map[string]interface{})["token"].(string)
	if token == "" {
		t.Fatal("share token missing")
	}

	doJSON(t, s, http.MethodPut, "/editor/document", map[string]string{"text": "overwritten"})
	rec = doJSON(t, s, http.MethodPost, "/share?token="+token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := s.editor.Document(); got != "Be concise." {
		t.Errorf("share load must restore the document, got %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	for path, method := range map[string]string{
		"/editor/scan":     http.MethodGet,
		"/editor/document": http.MethodPost,
		"/interview/turn":  http.MethodGet,
		"/health":          http.MethodDelete,
	} {
		rec := doJSON(t, s, method, path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s must 405, got %d", method, path, rec.Code)
		}
	}
}
