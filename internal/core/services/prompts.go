package services

import (
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// defaultPrompts are the built-in templates used when the prompt store
// is absent, failing, or missing a key. Queries must keep working on a
// fresh install with no prompt configuration at all.
var defaultPrompts = map[string]string{
	driven.PromptRAGSystem: "You are a helpful assistant that answers questions based on the provided context.\n" +
		"Use ONLY the context below to answer the question. If the context doesn't contain " +
		"enough information to answer, say so clearly.\n" +
		"Always cite which source(s) you used in your answer.",

	driven.PromptRAGUser: "Context:\n{context}\n{history_block}\n" +
		"Question: {question}\n\n" +
		"Answer based on the context above:",

	driven.PromptAutoTagSystem: "You are a tagging assistant for car manuals and automotive documents. " +
		"Return ONLY a comma-separated list of short, lowercase tags. " +
		"No numbering, no explanation, no extra text. " +
		"ALWAYS include the vehicle make (e.g. ford, toyota, bmw) and model " +
		"(e.g. f-150, camry, 3 series) as separate tags if they can be identified. " +
		"Also include the model year if present. " +
		"Fill remaining tags with other useful descriptors like document type " +
		"(e.g. owners manual, service manual, wiring diagram) or key topics.",

	driven.PromptAutoTagUser: "Generate up to {max_tags} short descriptive tags for this automotive " +
		"document:\n\n{filename_hint}{truncated}",
}

// DefaultPrompt returns the built-in template for a prompt name, or the
// empty string for unknown names.
func DefaultPrompt(name string) string {
	return defaultPrompts[name]
}

// loadPrompt fetches a template from the store, falling back to the
// built-in default. Never fails.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		body, err := store.Load(name)
		if err == nil && strings.TrimSpace(body) != "" {
			return body
		}
		if err != nil {
			logger.Warn("Prompt %q unavailable, using default: %v", name, err)
		}
	}
	return defaultPrompts[name]
}

// interpolate substitutes {name} placeholders in a template.
// Unknown placeholders are left untouched.
func interpolate(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
