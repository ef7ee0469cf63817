// Package models defines interview conversation types.
package models

import "time"

// Speaker identifies who produced an interview turn.
type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerAI     Speaker = "ai"
	SpeakerSystem Speaker = "system"
)

// InterviewTurn is one entry in the append-only conversation transcript.
// Turns are never mutated after append.
type InterviewTurn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Options   []string  `json:"options,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxInterviewOptions is the number of quick-reply options the interview
// contract asks the model for; longer lists are truncated.
const MaxInterviewOptions = 3

// InterviewReply is the structured response contract for every interview
// turn. GeneratedPrompt is populated only when IsFinalDraft is true.
type InterviewReply struct {
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	IsFinalDraft    bool     `json:"isFinalDraft"`
	GeneratedPrompt string   `json:"generatedPrompt,omitempty"`
}

// Normalize truncates the options list to the contract maximum and drops
// empty entries.
func (r *InterviewReply) Normalize() {
	options := make([]string, 0, MaxInterviewOptions)
	for _, opt := range r.Options {
		if opt == "" {
			continue
		}
		options = append(options, opt)
		if len(options) == MaxInterviewOptions {
			break
		}
	}
	r.Options = options
}
