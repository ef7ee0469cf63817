package editor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
)

// armFeedbackTimer schedules a mentor feedback request once the document
// has been quiet for the quiescence window. Any further edit resets the
// timer, so feedback is only requested against a settled document.
func (e *Engine) armFeedbackTimer() {
	e.mu.Lock()
	doc := e.doc
	quiescence := e.quiescence
	minLen := e.minFeedbackLen
	e.mu.Unlock()

	if len(strings.TrimSpace(doc)) < minLen {
		e.debounce.Stop()
		return
	}
	e.debounce.Trigger(quiescence, func() {
		if _, err := e.RequestFeedback(context.Background()); err != nil {
			slog.Debug("Engine.armFeedbackTimer: background feedback request failed", "error", err)
		}
	})
}

// RequestFeedback asks the mentor model for one improvement tip and stores
// it. Tips the user dismissed since the last fresh edit cycle are passed as
// negative constraints. A response from a stale document state is discarded.
// Requests are skipped while another AI operation holds the busy gate or
// when the document has not changed since the last request.
func (e *Engine) RequestFeedback(ctx context.Context) (string, error) {
	return e.requestFeedback(ctx, false)
}

func (e *Engine) requestFeedback(ctx context.Context, force bool) (string, error) {
	e.mu.Lock()
	doc := e.doc
	contextText := e.contextText
	minLen := e.minFeedbackLen
	busy := e.busy
	current := e.feedback
	unchanged := doc == e.lastFeedbackDoc
	ignored := make([]string, len(e.ignoredFeedback))
	copy(ignored, e.ignoredFeedback)
	e.mu.Unlock()

	if len(strings.TrimSpace(doc)) < minLen {
		return "", nil
	}
	if busy != BusyIdle {
		slog.Debug("Engine.RequestFeedback: engine busy, skipping mentor request", "busy", busy)
		return "", nil
	}
	if unchanged && !force {
		slog.Debug("Engine.RequestFeedback: document unchanged since last request, skipping")
		return current, nil
	}

	raw, err := e.client.Generate(ctx, models.FeatureMentor, genai.Request{
		Messages: []genai.Message{{Role: genai.RoleUser, Content: mentorPrompt(doc, contextText, ignored)}},
	})
	if err != nil {
		slog.Warn("Engine.RequestFeedback: mentor generation failed", "error", err)
		return "", err
	}

	tip := strings.TrimSpace(raw)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc != doc {
		// The user kept typing while the request was in flight.
		slog.Debug("Engine.RequestFeedback: document changed mid-flight, discarding tip")
		return "", nil
	}
	e.feedback = tip
	e.lastFeedbackDoc = doc
	slog.Info("Engine.RequestFeedback: mentor tip stored", "tipLength", len(tip))
	return tip, nil
}

// Feedback returns the current mentor tip, empty when none is pending.
func (e *Engine) Feedback() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feedback
}

// DismissFeedback records the current tip as ignored and immediately
// requests a replacement that must avoid it.
func (e *Engine) DismissFeedback(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.feedback == "" {
		e.mu.Unlock()
		return "", ErrNoFeedback
	}
	e.ignoredFeedback = append(e.ignoredFeedback, e.feedback)
	e.feedback = ""
	e.mu.Unlock()

	// The document has not changed, so force the request past the
	// unchanged-document check.
	slog.Debug("Engine.DismissFeedback: tip dismissed, requesting replacement")
	return e.requestFeedback(ctx, true)
}

// ApplyFeedback rewrites the document per the current mentor tip with the
// minimum necessary edit. On success the previous document goes into the
// single undo slot and the suggestion set is cleared; on failure the
// document and undo slot are untouched.
func (e *Engine) ApplyFeedback(ctx context.Context) (string, error) {
	if err := e.beginBusy(BusyApplyFeedback, nil); err != nil {
		return "", err
	}
	defer e.endBusy()

	e.mu.Lock()
	tip := e.feedback
	doc := e.doc
	locks := e.lockTexts()
	e.mu.Unlock()

	if tip == "" {
		return "", ErrNoFeedback
	}

	raw, err := e.client.Generate(ctx, models.FeatureFeedback, genai.Request{
		Messages: []genai.Message{{Role: genai.RoleUser, Content: feedbackPrompt(doc, tip, locks)}},
	})
	if err != nil {
		slog.Error("Engine.ApplyFeedback: rewrite generation failed", "error", err)
		return "", err
	}
	revised := strings.TrimSpace(raw)
	if revised == "" {
		slog.Warn("Engine.ApplyFeedback: empty rewrite, keeping document")
		return doc, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.doc
	e.undo = &prev
	e.doc = revised
	e.feedback = ""
	// The rewrite invalidates critique entries aimed at the old text.
	e.suggestions = nil
	slog.Info("Engine.ApplyFeedback: tip applied", "before", len(prev), "after", len(revised))
	return revised, nil
}
