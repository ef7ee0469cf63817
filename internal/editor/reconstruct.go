package editor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
)

// ReconstructFull rewrites the whole document from the stated purpose.
// On a quota failure the call is retried once on the fast-rewrite route; if
// that also fails the original document is returned unchanged with the
// error, never a partial result.
func (e *Engine) ReconstructFull(ctx context.Context) (string, error) {
	if err := e.beginBusy(BusyReconstruct, nil); err != nil {
		return "", err
	}
	defer e.endBusy()

	e.mu.Lock()
	doc := e.doc
	contextText := e.contextText
	locks := e.lockTexts()
	e.mu.Unlock()

	req := genai.Request{
		Messages: []genai.Message{{Role: genai.RoleUser, Content: rewritePrompt(doc, contextText, locks)}},
	}

	slog.Info("Engine.ReconstructFull: starting full rewrite", "docLength", len(doc))
	raw, err := e.client.Generate(ctx, models.FeatureRewrite, req)
	if err != nil && genai.IsRateLimited(err) {
		slog.Warn("Engine.ReconstructFull: primary route exhausted, falling back to fast route", "error", err)
		raw, err = e.client.Generate(ctx, models.FeatureRewriteFast, req)
	}
	if err != nil {
		slog.Error("Engine.ReconstructFull: rewrite failed, document unchanged", "error", err)
		return doc, err
	}

	rewritten := strings.TrimSpace(raw)
	if rewritten == "" {
		slog.Warn("Engine.ReconstructFull: empty rewrite, document unchanged")
		return doc, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc = rewritten
	e.undo = nil
	e.suggestions = nil
	slog.Info("Engine.ReconstructFull: rewrite complete", "before", len(doc), "after", len(rewritten))
	return rewritten, nil
}

// ReconstructPartial rewrites only the selected [start, end) span and
// splices the replacement back verbatim. The replacement is not
// re-validated against locks; protecting locked text inside the selection
// is the model's instruction, not a post-check.
func (e *Engine) ReconstructPartial(ctx context.Context, start, end int) (string, error) {
	e.mu.Lock()
	doc := e.doc
	e.mu.Unlock()

	if start < 0 || end > len(doc) || start >= end {
		return "", ErrInvalidRange
	}
	if err := e.beginBusy(BusyReconstruct, &Range{Start: start, End: end}); err != nil {
		return "", err
	}
	defer e.endBusy()

	selection := doc[start:end]
	slog.Info("Engine.ReconstructPartial: rewriting selection", "start", start, "end", end)
	raw, err := e.client.Generate(ctx, models.FeatureRewrite, genai.Request{
		Messages: []genai.Message{{Role: genai.RoleUser, Content: rewriteSelectionPrompt(doc, selection)}},
	})
	if err != nil {
		slog.Error("Engine.ReconstructPartial: selection rewrite failed", "error", err)
		return doc, err
	}

	replacement := strings.TrimSpace(raw)
	if replacement == "" {
		return doc, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc != doc {
		// Offsets are only valid against the snapshot they were taken from.
		slog.Warn("Engine.ReconstructPartial: document changed mid-flight, discarding replacement")
		return e.doc, nil
	}
	e.doc = doc[:start] + replacement + doc[end:]
	e.undo = nil
	e.suggestions = nil
	return e.doc, nil
}

// ReverseEngineer infers a prompt from an example output and installs it as
// the new document. The previous document goes into the undo slot.
func (e *Engine) ReverseEngineer(ctx context.Context, exampleOutput string) (string, error) {
	if err := e.beginBusy(BusyReconstruct, nil); err != nil {
		return "", err
	}
	defer e.endBusy()

	slog.Info("Engine.ReverseEngineer: inferring prompt from example", "exampleLength", len(exampleOutput))
	raw, err := e.client.Generate(ctx, models.FeatureReverseEngineer, genai.Request{
		Messages: []genai.Message{{Role: genai.RoleUser, Content: reverseEngineerPrompt(exampleOutput)}},
	})
	if err != nil {
		slog.Error("Engine.ReverseEngineer: inference failed", "error", err)
		return "", err
	}
	inferred := strings.TrimSpace(raw)
	if inferred == "" {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.doc, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.doc
	e.undo = &prev
	e.doc = inferred
	e.suggestions = nil
	return inferred, nil
}
