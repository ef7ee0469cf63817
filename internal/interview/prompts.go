// Package interview system instructions and localized fixed strings.
package interview

import (
	"fmt"

	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
)

// locale bundles the fixed strings that must match the interview language.
type locale struct {
	languageName string
	parseError   string
	closing      string
}

var locales = map[models.Language]locale{
	models.LanguageEnglish: {
		languageName: "English",
		parseError:   "Sorry, I had trouble reading that answer. Could you rephrase your last message?",
		closing:      "We have covered everything I need. Consolidate the Persona, Task, Context and Format we discussed into one final prompt, written as a single instruction block, and return it as the generated prompt of a final draft.",
	},
	models.LanguageSpanish: {
		languageName: "Spanish",
		parseError:   "Lo siento, no pude interpretar esa respuesta. ¿Podrías reformular tu último mensaje?",
		closing:      "Ya hemos cubierto todo lo necesario. Consolida la Persona, la Tarea, el Contexto y el Formato que discutimos en un único prompt final, escrito como un solo bloque de instrucciones, y devuélvelo como el prompt generado de un borrador final.",
	},
	models.LanguageFrench: {
		languageName: "French",
		parseError:   "Désolé, je n'ai pas pu interpréter cette réponse. Pouvez-vous reformuler votre dernier message ?",
		closing:      "Nous avons couvert tout le nécessaire. Consolidez la Persona, la Tâche, le Contexte et le Format dont nous avons discuté en un seul prompt final, rédigé comme un bloc d'instructions unique, et renvoyez-le comme prompt généré d'un brouillon final.",
	},
	models.LanguageGerman: {
		languageName: "German",
		parseError:   "Entschuldigung, ich konnte diese Antwort nicht verarbeiten. Könntest du deine letzte Nachricht umformulieren?",
		closing:      "Wir haben alles Nötige besprochen. Fasse Persona, Aufgabe, Kontext und Format aus unserem Gespräch zu einem einzigen finalen Prompt zusammen, geschrieben als ein Anweisungsblock, und gib ihn als generierten Prompt eines finalen Entwurfs zurück.",
	},
}

// localeFor returns the locale for a language, falling back to English.
func localeFor(lang models.Language) locale {
	if l, ok := locales[lang]; ok {
		return l
	}
	return locales[models.LanguageEnglish]
}

// systemInstruction builds the fixed interview contract for a language.
// It encodes the four-pillar objective, the one-question-at-a-time
// discipline, and the strict structured output shape.
func systemInstruction(lang models.Language) string {
	l := localeFor(lang)
	return fmt.Sprintf(`You are an expert prompt engineer conducting a requirements interview.
Your goal is to gather everything needed to write an excellent AI prompt, organized around four pillars: Persona (who the AI should be), Task (what it must do), Context (background and constraints), and Format (how the output should look).

Rules:
- Ask exactly one question per turn. Never bundle questions.
- Offer exactly 3 short answer options the user can pick from.
- Conduct the conversation in %s.
- When all four pillars are covered, set isFinalDraft to true and put the complete consolidated prompt in generatedPrompt.

Always respond with a JSON object of this exact shape:
{"question": string, "options": [string, string, string], "isFinalDraft": boolean, "generatedPrompt": string (required only when isFinalDraft is true)}`, l.languageName)
}

// interviewSchema declares the structured output contract for providers
// that support constrained JSON schemas.
func interviewSchema() *genai.ResponseSchema {
	return &genai.ResponseSchema{
		Fields: []genai.SchemaField{
			{Name: "question", Type: "string", Description: "the next interview question", Required: true},
			{Name: "options", Type: "array", Items: "string", Description: "exactly 3 short answer options", Required: true},
			{Name: "isFinalDraft", Type: "boolean", Description: "true once the prompt is complete", Required: true},
			{Name: "generatedPrompt", Type: "string", Description: "the consolidated prompt, required when isFinalDraft is true"},
		},
	}
}
