// Package interview implements the guided requirements interview: a
// multi-turn chat session that turns user answers into the next question,
// and eventually into a final prompt draft.
package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
	"github.com/promptsmith/PromptStudio/internal/router"
)

// AIClient is the slice of the genai client the interview needs.
type AIClient interface {
	Generate(ctx context.Context, feature models.Feature, req genai.Request) (string, error)
	Resolve(feature models.Feature) (router.Resolution, error)
	DropSession(key string)
}

// Session owns one interview conversation. At most one representation of
// the conversation exists at a time: a provider-side session key for the
// structured provider, or a locally held message history for the HTTP
// provider, never both.
type Session struct {
	mu     sync.Mutex
	client AIClient

	language     models.Language
	providerKind models.ProviderKind
	sessionKey   string
	history      []genai.Message
	transcript   []models.InterviewTurn
	active       bool
}

// NewSession creates an inactive session. Start (or the first SendTurn)
// activates it.
func NewSession(client AIClient) *Session {
	return &Session{client: client, language: models.LanguageEnglish}
}

// Start initializes the session for a language, choosing the conversation
// representation from the routed interview model's provider kind.
func (s *Session) Start(language models.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(language)
}

func (s *Session) startLocked(language models.Language) error {
	res, err := s.client.Resolve(models.FeatureInterview)
	if err != nil {
		slog.Error("Session.Start: failed to resolve interview model", "error", err)
		return err
	}

	s.teardownLocked()
	s.language = language
	s.providerKind = res.Config.InferProvider()

	system := systemInstruction(language)
	if s.providerKind == models.ProviderGemini {
		s.sessionKey = fmt.Sprintf("interview|%s|%s", res.Config.ID, language)
		s.history = nil
	} else {
		s.sessionKey = ""
		s.history = []genai.Message{{Role: genai.RoleSystem, Content: system}}
	}
	s.transcript = nil
	s.active = true

	slog.Info("Session.Start: interview session initialized", "language", language, "provider", s.providerKind, "model", res.Config.ModelName)
	return nil
}

// SendTurn appends the user's answer and returns the model's next
// structured reply. A session is started implicitly if none is active.
// Unparsable model output yields a localized sentinel reply instead of an
// error, so the conversation is never aborted by formatting noise.
func (s *Session) SendTurn(ctx context.Context, userText string) (models.InterviewReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		slog.Debug("Session.SendTurn: no active session, starting implicitly", "language", s.language)
		if err := s.startLocked(s.language); err != nil {
			return models.InterviewReply{}, err
		}
	}

	s.transcript = append(s.transcript, models.InterviewTurn{
		Speaker:   models.SpeakerUser,
		Text:      userText,
		Timestamp: time.Now(),
	})

	req := s.buildRequest(userText)

	// Release the lock during the network round trip so a restart is not
	// blocked behind a slow provider.
	s.mu.Unlock()
	raw, err := s.client.Generate(ctx, models.FeatureInterview, req)
	s.mu.Lock()

	if err != nil {
		slog.Error("Session.SendTurn: generation failed", "error", err)
		return models.InterviewReply{}, err
	}

	if s.providerKind != models.ProviderGemini {
		s.history = append(s.history,
			genai.Message{Role: genai.RoleUser, Content: userText},
			genai.Message{Role: genai.RoleAssistant, Content: raw},
		)
	}

	reply := s.parseReply(raw)
	s.transcript = append(s.transcript, models.InterviewTurn{
		Speaker:   models.SpeakerAI,
		Text:      reply.Question,
		Options:   reply.Options,
		Timestamp: time.Now(),
	})
	return reply, nil
}

// Finalize sends the fixed closing instruction and returns the consolidated
// prompt. When the model omits generatedPrompt, the question text is the
// fallback. This is the terminal transition to the editing phase.
func (s *Session) Finalize(ctx context.Context, language models.Language) (string, error) {
	l := localeFor(language)
	reply, err := s.SendTurn(ctx, l.closing)
	if err != nil {
		return "", err
	}
	if reply.GeneratedPrompt != "" {
		return reply.GeneratedPrompt, nil
	}
	slog.Warn("Session.Finalize: no generated prompt in final reply, falling back to question text")
	return reply.Question, nil
}

// Restart tears the session down entirely and starts a fresh one. System
// instructions are language-specific, so nothing is reused.
func (s *Session) Restart(language models.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slog.Info("Session.Restart: replacing interview session", "from", s.language, "to", language)
	return s.startLocked(language)
}

// Transcript returns a copy of the append-only conversation transcript.
func (s *Session) Transcript() []models.InterviewTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InterviewTurn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// buildRequest shapes the provider request for the active representation.
func (s *Session) buildRequest(userText string) genai.Request {
	if s.providerKind == models.ProviderGemini {
		return genai.Request{
			System:     systemInstruction(s.language),
			SessionKey: s.sessionKey,
			Turn:       userText,
			Schema:     interviewSchema(),
			JSONMode:   true,
		}
	}

	messages := make([]genai.Message, len(s.history), len(s.history)+1)
	copy(messages, s.history)
	messages = append(messages, genai.Message{Role: genai.RoleUser, Content: userText})
	return genai.Request{Messages: messages, JSONMode: true}
}

// parseReply decodes the model output, substituting the localized sentinel
// on parse failure.
func (s *Session) parseReply(raw string) models.InterviewReply {
	cleaned := genai.StripCodeFences(raw)

	var reply models.InterviewReply
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		slog.Warn("Session.parseReply: unparsable interview reply, using sentinel", "error", err, "rawLength", len(raw))
		return models.InterviewReply{
			Question: localeFor(s.language).parseError,
			Options:  []string{},
		}
	}
	reply.Normalize()
	return reply
}

// teardownLocked drops whichever conversation representation is active.
func (s *Session) teardownLocked() {
	if s.sessionKey != "" {
		s.client.DropSession(s.sessionKey)
		s.sessionKey = ""
	}
	s.history = nil
	s.active = false
}
