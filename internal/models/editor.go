// Package models defines editor-side types: critique suggestions, locked
// segments, and the pillar classification used across the editing flow.
package models

// Pillar is one of the four structural categories used to classify prompt
// content, plus the resolution states for asynchronous classification.
type Pillar string

const (
	PillarPersona Pillar = "Persona"
	PillarTask    Pillar = "Task"
	PillarContext Pillar = "Context"
	PillarFormat  Pillar = "Format"
	PillarOther   Pillar = "Other"
	// PillarPending marks a locked segment whose classification has not yet
	// resolved. Each segment leaves this state exactly once.
	PillarPending Pillar = "Pending"
)

// KnownPillars lists the four classifiable pillar names in match order.
var KnownPillars = []Pillar{PillarPersona, PillarTask, PillarContext, PillarFormat}

// SuggestionCategory groups critique suggestions for display.
type SuggestionCategory string

const (
	CategoryClarity     SuggestionCategory = "clarity"
	CategorySpecificity SuggestionCategory = "specificity"
	CategoryStructure   SuggestionCategory = "structure"
	CategoryTone        SuggestionCategory = "tone"
)

// Suggestion is one critique finding. OriginalText must be an exact
// substring of the prompt document at the moment the suggestion set is
// stored; entries failing that check are dropped before storage.
type Suggestion struct {
	ID            string             `json:"id"`
	OriginalText  string             `json:"originalText"`
	SuggestedText string             `json:"suggestedText"`
	Reason        string             `json:"reason"`
	Category      SuggestionCategory `json:"category"`
}

// LockedSegment is a user-protected substring that AI rewriting operations
// must preserve verbatim. Text is unique among active locks.
type LockedSegment struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Pillar Pillar `json:"pillar"`
}
