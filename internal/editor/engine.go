// Package editor implements the orchestration engine for interactive AI
// editing sessions: background critique scans, mentor feedback, locked
// segments, document reconstruction, and single-level undo, all operating
// on one mutable prompt document.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
	"github.com/promptsmith/PromptStudio/internal/router"
)

// AIClient is the slice of the genai client the editor needs.
type AIClient interface {
	Generate(ctx context.Context, feature models.Feature, req genai.Request) (string, error)
	Resolve(feature models.Feature) (router.Resolution, error)
}

// BusyState names the AI operation currently mutating the document.
type BusyState string

const (
	BusyIdle          BusyState = ""
	BusyScan          BusyState = "scan"
	BusyReconstruct   BusyState = "reconstruct"
	BusyApplyFeedback BusyState = "apply_feedback"
)

// Range is a half-open [Start, End) span of the document.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Engine errors surfaced to callers.
var (
	ErrBusy            = errors.New("another AI operation is in progress")
	ErrNoFeedback      = errors.New("no mentor feedback to apply")
	ErrSuggestionStale = errors.New("suggestion no longer matches the document")
	ErrUnknownID       = errors.New("no entry with the given id")
	ErrEmptyLock       = errors.New("locked segment text cannot be empty")
	ErrDuplicateLock   = errors.New("segment is already locked")
	ErrInvalidRange    = errors.New("selection range is out of bounds")
)

// Default tuning for the mentor feedback loop.
const (
	// DefaultQuiescence is how long the document must stay unchanged before
	// mentor feedback is requested.
	DefaultQuiescence = 2500 * time.Millisecond
	// DefaultMinFeedbackLength is the minimum document length for the
	// mentor loop to engage.
	DefaultMinFeedbackLength = 40
	// classifyTimeout bounds one background lock classification call.
	classifyTimeout = 30 * time.Second
)

// Engine owns the prompt document and all derived editing state. A single
// busy gate serializes AI operations that mutate the document; in-flight
// requests are not cancelled when superseded (the stale-response window is
// a known property of the design, not closed here).
type Engine struct {
	mu     sync.Mutex
	client AIClient

	doc         string
	contextText string
	suggestions []models.Suggestion
	locks       []models.LockedSegment

	feedback        string
	ignoredFeedback []string
	lastFeedbackDoc string

	undo *string

	busy      BusyState
	busyRange *Range

	classifying map[string]bool

	debounce       *Debouncer
	quiescence     time.Duration
	minFeedbackLen int
}

// NewEngine creates an engine with an empty document.
func NewEngine(client AIClient) *Engine {
	slog.Debug("editor.NewEngine: creating engine")
	return &Engine{
		client:         client,
		classifying:    make(map[string]bool),
		debounce:       NewDebouncer(),
		quiescence:     DefaultQuiescence,
		minFeedbackLen: DefaultMinFeedbackLength,
	}
}

// State is a consistent snapshot of the engine for rendering.
type State struct {
	Document    string                 `json:"document"`
	Context     string                 `json:"context"`
	Suggestions []models.Suggestion    `json:"suggestions"`
	Locks       []models.LockedSegment `json:"locks"`
	Feedback    string                 `json:"feedback,omitempty"`
	Busy        BusyState              `json:"busy,omitempty"`
	BusyRange   *Range                 `json:"busy_range,omitempty"`
	CanUndo     bool                   `json:"can_undo"`
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		Document:    e.doc,
		Context:     e.contextText,
		Suggestions: make([]models.Suggestion, len(e.suggestions)),
		Locks:       make([]models.LockedSegment, len(e.locks)),
		Feedback:    e.feedback,
		Busy:        e.busy,
		CanUndo:     e.undo != nil,
	}
	copy(st.Suggestions, e.suggestions)
	copy(st.Locks, e.locks)
	if e.busyRange != nil {
		r := *e.busyRange
		st.BusyRange = &r
	}
	return st
}

// Document returns the current prompt document.
func (e *Engine) Document() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

// SetDocument records a manual edit. Manual edits clear the undo snapshot,
// begin a fresh mentor cycle (resetting the ignored-tip history), and arm
// the quiescence timer.
func (e *Engine) SetDocument(text string) {
	e.mu.Lock()
	if text == e.doc {
		e.mu.Unlock()
		return
	}
	e.doc = text
	e.undo = nil
	e.ignoredFeedback = nil
	e.mu.Unlock()

	slog.Debug("Engine.SetDocument: document replaced", "length", len(text))
	e.armFeedbackTimer()
}

// SetContext replaces the background context used by scan and rewrite.
func (e *Engine) SetContext(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contextText = text
}

// Context returns the background context string.
func (e *Engine) Context() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contextText
}

// Undo restores the single-slot snapshot taken by the last apply-feedback
// mutation. It reports whether a restore happened; a second call without a
// new apply is a no-op.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.undo == nil {
		return false
	}
	e.doc = *e.undo
	e.undo = nil
	slog.Info("Engine.Undo: document restored from snapshot")
	return true
}

// ApplySuggestion replaces exactly the suggestion's originalText span and
// removes the suggestion. The edit counts as a manual change.
func (e *Engine) ApplySuggestion(id string) error {
	e.mu.Lock()
	idx := e.suggestionIndex(id)
	if idx < 0 {
		e.mu.Unlock()
		return ErrUnknownID
	}
	s := e.suggestions[idx]
	if !strings.Contains(e.doc, s.OriginalText) {
		// The document moved on since the scan; drop the stale entry.
		e.suggestions = append(e.suggestions[:idx], e.suggestions[idx+1:]...)
		e.mu.Unlock()
		slog.Warn("Engine.ApplySuggestion: stale suggestion dropped", "id", id)
		return ErrSuggestionStale
	}

	e.doc = strings.Replace(e.doc, s.OriginalText, s.SuggestedText, 1)
	e.suggestions = append(e.suggestions[:idx], e.suggestions[idx+1:]...)
	e.undo = nil
	e.ignoredFeedback = nil
	e.mu.Unlock()

	slog.Debug("Engine.ApplySuggestion: suggestion applied", "id", id)
	e.armFeedbackTimer()
	return nil
}

// DismissSuggestion removes a suggestion without touching the document.
func (e *Engine) DismissSuggestion(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.suggestionIndex(id)
	if idx < 0 {
		return ErrUnknownID
	}
	e.suggestions = append(e.suggestions[:idx], e.suggestions[idx+1:]...)
	slog.Debug("Engine.DismissSuggestion: suggestion dismissed", "id", id)
	return nil
}

// AddLock protects a selection from AI rewriting. Classification starts
// Pending and resolves asynchronously exactly once.
func (e *Engine) AddLock(text string) (models.LockedSegment, error) {
	if strings.TrimSpace(text) == "" {
		return models.LockedSegment{}, ErrEmptyLock
	}

	e.mu.Lock()
	for _, l := range e.locks {
		if l.Text == text {
			e.mu.Unlock()
			return models.LockedSegment{}, ErrDuplicateLock
		}
	}
	lock := models.LockedSegment{ID: uuid.NewString(), Text: text, Pillar: models.PillarPending}
	e.locks = append(e.locks, lock)
	e.classifying[lock.ID] = true
	e.mu.Unlock()

	slog.Debug("Engine.AddLock: segment locked", "id", lock.ID, "length", len(text))
	go e.classifyLock(lock.ID, text)
	return lock, nil
}

// RemoveLock releases a locked segment.
func (e *Engine) RemoveLock(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.locks {
		if l.ID == id {
			e.locks = append(e.locks[:i], e.locks[i+1:]...)
			slog.Debug("Engine.RemoveLock: segment unlocked", "id", id)
			return nil
		}
	}
	return ErrUnknownID
}

// Locks returns a copy of the active locked segments.
func (e *Engine) Locks() []models.LockedSegment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.LockedSegment, len(e.locks))
	copy(out, e.locks)
	return out
}

// Suggestions returns a copy of the current suggestion set.
func (e *Engine) Suggestions() []models.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Suggestion, len(e.suggestions))
	copy(out, e.suggestions)
	return out
}

// beginBusy acquires the single AI-mutation gate.
func (e *Engine) beginBusy(op BusyState, r *Range) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy != BusyIdle {
		slog.Warn("Engine.beginBusy: operation rejected, engine busy", "requested", op, "current", e.busy)
		return ErrBusy
	}
	e.busy = op
	e.busyRange = r
	return nil
}

// endBusy releases the AI-mutation gate.
func (e *Engine) endBusy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = BusyIdle
	e.busyRange = nil
}

// lockTexts returns the locked segment texts under the engine lock.
func (e *Engine) lockTexts() []string {
	texts := make([]string, len(e.locks))
	for i, l := range e.locks {
		texts[i] = l.Text
	}
	return texts
}

func (e *Engine) suggestionIndex(id string) int {
	for i, s := range e.suggestions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Close stops background timers.
func (e *Engine) Close() {
	e.debounce.Stop()
}
