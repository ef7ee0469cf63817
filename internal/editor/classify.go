package editor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/promptsmith/PromptStudio/internal/genai"
	"github.com/promptsmith/PromptStudio/internal/models"
)

// classifyLock resolves a locked segment's pillar in the background. Each
// lock is classified exactly once; any failure or unrecognized answer
// resolves to Other so no segment stays Pending forever.
func (e *Engine) classifyLock(id, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), classifyTimeout)
	defer cancel()

	pillar := models.PillarOther
	raw, err := e.client.Generate(ctx, models.FeatureClassify, genai.Request{
		Messages: []genai.Message{{Role: genai.RoleUser, Content: classifyPrompt(text)}},
	})
	if err != nil {
		slog.Warn("Engine.classifyLock: classification failed, resolving to Other", "id", id, "error", err)
	} else {
		pillar = matchPillar(raw)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.classifying, id)
	for i, l := range e.locks {
		if l.ID == id {
			e.locks[i].Pillar = pillar
			slog.Debug("Engine.classifyLock: lock classified", "id", id, "pillar", pillar)
			return
		}
	}
	// Lock removed while classification was in flight; nothing to update.
}

// matchPillar maps a free-form model answer onto a known pillar by
// case-insensitive substring match, defaulting to Other.
func matchPillar(answer string) models.Pillar {
	lowered := strings.ToLower(answer)
	for _, p := range models.KnownPillars {
		if strings.Contains(lowered, strings.ToLower(string(p))) {
			return p
		}
	}
	return models.PillarOther
}
