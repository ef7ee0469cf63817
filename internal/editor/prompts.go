// Package editor prompt builders for the AI editing operations.
package editor

import (
	"fmt"
	"strings"
)

// critiquePrompt asks for a structured deep scan of the whole document.
func critiquePrompt(doc, contextText string) string {
	var sb strings.Builder
	sb.WriteString("You are a prompt-engineering reviewer. Critique the prompt below and propose focused improvements.\n\n")
	if contextText != "" {
		fmt.Fprintf(&sb, "Background context about the prompt's purpose:\n%s\n\n", contextText)
	}
	fmt.Fprintf(&sb, "Prompt to review:\n%s\n\n", doc)
	sb.WriteString(`Respond with a JSON array. Each element must have this shape:
{"originalText": string (an exact, character-for-character excerpt of the prompt), "suggestedText": string, "reason": string, "category": one of "clarity", "specificity", "structure", "tone"}
Return [] if the prompt needs no changes. Do not include any other text.`)
	return sb.String()
}

// mentorPrompt asks for the single most valuable improvement tip.
func mentorPrompt(doc, contextText string, ignored []string) string {
	var sb strings.Builder
	sb.WriteString("You are a prompt-engineering mentor. Read the prompt below and give the single most valuable, actionable improvement tip in one or two sentences of plain text.\n\n")
	if contextText != "" {
		fmt.Fprintf(&sb, "Background context:\n%s\n\n", contextText)
	}
	fmt.Fprintf(&sb, "Prompt:\n%s\n", doc)
	if len(ignored) > 0 {
		sb.WriteString("\nThe user has dismissed the following tips. Do not repeat them or minor variations of them:\n")
		for _, tip := range ignored {
			fmt.Fprintf(&sb, "- %s\n", tip)
		}
	}
	return sb.String()
}

// feedbackPrompt asks for the minimum edit satisfying the mentor tip.
func feedbackPrompt(doc, tip string, lockTexts []string) string {
	var sb strings.Builder
	sb.WriteString("Apply the following advice to the prompt below, making the minimum edit necessary. Keep everything else untouched.\n\n")
	fmt.Fprintf(&sb, "Advice:\n%s\n\n", tip)
	fmt.Fprintf(&sb, "Prompt:\n%s\n", doc)
	writeLockClause(&sb, lockTexts)
	sb.WriteString("\nReturn only the full revised prompt, with no commentary.")
	return sb.String()
}

// rewritePrompt asks for a full reconstruction guided strictly by context.
func rewritePrompt(doc, contextText string, lockTexts []string) string {
	var sb strings.Builder
	sb.WriteString("Rewrite the prompt below from scratch, guided strictly by the stated purpose. Do not introduce requirements that are absent from the purpose.\n\n")
	fmt.Fprintf(&sb, "Purpose:\n%s\n\n", contextText)
	fmt.Fprintf(&sb, "Current prompt:\n%s\n", doc)
	writeLockClause(&sb, lockTexts)
	sb.WriteString("\nReturn only the rewritten prompt, with no commentary.")
	return sb.String()
}

// rewriteSelectionPrompt asks to rewrite only the selected fragment.
func rewriteSelectionPrompt(doc, selection string) string {
	var sb strings.Builder
	sb.WriteString("The user selected a fragment of the prompt below for rewriting. Rewrite only that fragment, improving clarity and precision while keeping its role in the surrounding text.\n\n")
	fmt.Fprintf(&sb, "Full prompt:\n%s\n\n", doc)
	fmt.Fprintf(&sb, "Selected fragment:\n%s\n\n", selection)
	sb.WriteString("Return only the replacement text for the fragment. No surrounding prompt content, no quotes, no commentary.")
	return sb.String()
}

// classifyPrompt asks for a single pillar name for a locked segment.
func classifyPrompt(text string) string {
	return fmt.Sprintf(`Classify the following prompt fragment into exactly one category: Persona, Task, Context, Format, or Other.
Respond with the single category word only.

Fragment:
%s`, text)
}

// reverseEngineerPrompt asks to infer the prompt behind an example output.
func reverseEngineerPrompt(output string) string {
	return fmt.Sprintf(`Below is an example of output produced by an AI assistant. Infer the prompt that would most plausibly produce this output, covering the assistant's persona, its task, relevant context, and the output format.

Example output:
%s

Return only the inferred prompt, with no commentary.`, output)
}

// writeLockClause appends the must-preserve instruction for locked segments.
func writeLockClause(sb *strings.Builder, lockTexts []string) {
	if len(lockTexts) == 0 {
		return
	}
	sb.WriteString("\nThe following segments are locked. Each one must appear verbatim, character for character, in your output:\n")
	for _, text := range lockTexts {
		fmt.Fprintf(sb, "- %q\n", text)
	}
}
