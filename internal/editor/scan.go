package editor

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
)

// rawSuggestion is the wire shape the critique model produces; ids are
// assigned locally after filtering.
type rawSuggestion struct {
	OriginalText  string `json:"originalText"`
	SuggestedText string `json:"suggestedText"`
	Reason        string `json:"reason"`
	Category      string `json:"category"`
}

// DeepScan requests a full critique of the document and replaces the
// suggestion set with the findings. Suggestions whose originalText is not
// an exact substring of the document at store time are dropped, so every
// stored suggestion is applicable. Unparsable model output clears the set
// rather than failing the scan.
func (e *Engine) DeepScan(ctx context.Context) ([]models.Suggestion, error) {
	if err := e.beginBusy(BusyScan, nil); err != nil {
		return nil, err
	}
	defer e.endBusy()

	e.mu.Lock()
	doc := e.doc
	contextText := e.contextText
	e.mu.Unlock()

	slog.Info("Engine.DeepScan: starting critique scan", "docLength", len(doc))
	raw, err := e.client.Generate(ctx, models.FeatureCritique, genai.Request{
		Messages: []genai.Message{{Role: genai.RoleUser, Content: critiquePrompt(doc, contextText)}},
		JSONMode: true,
	})
	if err != nil {
		slog.Error("Engine.DeepScan: critique generation failed", "error", err)
		return nil, err
	}

	suggestions := e.storeSuggestions(raw)
	slog.Info("Engine.DeepScan: scan complete", "suggestions", len(suggestions))
	return suggestions, nil
}

// storeSuggestions parses, filters, and installs the suggestion set,
// returning a copy of what was stored.
func (e *Engine) storeSuggestions(raw string) []models.Suggestion {
	var parsed []rawSuggestion
	if err := json.Unmarshal([]byte(genai.StripCodeFences(raw)), &parsed); err != nil {
		slog.Warn("Engine.storeSuggestions: unparsable critique output, clearing suggestions", "error", err, "rawLength", len(raw))
		parsed = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Filter against the document as it is now, not as it was when the scan
	// started; edits made during the round trip invalidate excerpts.
	kept := make([]models.Suggestion, 0, len(parsed))
	for _, r := range parsed {
		if r.OriginalText == "" || !strings.Contains(e.doc, r.OriginalText) {
			slog.Debug("Engine.storeSuggestions: dropping non-matching suggestion", "excerptLength", len(r.OriginalText))
			continue
		}
		kept = append(kept, models.Suggestion{
			ID:            uuid.NewString(),
			OriginalText:  r.OriginalText,
			SuggestedText: r.SuggestedText,
			Reason:        r.Reason,
			Category:      models.SuggestionCategory(r.Category),
		})
	}
	e.suggestions = kept

	out := make([]models.Suggestion, len(kept))
	copy(out, kept)
	return out
}
