package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure RAGOrchestrator implements the interface.
var _ driving.RAGService = (*RAGOrchestrator)(nil)

// maxTagContentRunes bounds how much document text is sent to the LLM
// for auto-tagging.
const maxTagContentRunes = 8000

// defaultMaxTags bounds the number of auto-generated tags.
const defaultMaxTags = 5

// RAGOrchestrator composes retrieval and generation into grounded
// question answering. Both entry points share one context-preparation
// routine; AnswerStream additionally emits incremental events.
type RAGOrchestrator struct {
	search    *SearchService
	inference driven.InferenceService
	scheduler *Scheduler
	prompts   driven.PromptStore
	metrics   driven.MetricsSink
	settings  domain.OllamaSettings
}

// NewRAGOrchestrator creates the orchestrator. The prompt store and
// metrics sink are optional (can be nil).
func NewRAGOrchestrator(
	search *SearchService,
	inference driven.InferenceService,
	scheduler *Scheduler,
	prompts driven.PromptStore,
	metric driven.MetricsSink,
	settings domain.OllamaSettings,
) *RAGOrchestrator {
	return &RAGOrchestrator{
		search:    search,
		inference: inference,
		scheduler: scheduler,
		prompts:   prompts,
		metrics:   metric,
		settings:  settings,
	}
}

// ragContext is the prepared input to generation.
type ragContext struct {
	prompt  string
	system  string
	sources []domain.RetrievalResult
	model   string
}

// Answer runs the full pipeline and blocks until generation completes.
func (o *RAGOrchestrator) Answer(ctx context.Context, req driving.AnswerRequest) (*domain.Answer, error) {
	started := time.Now()

	rc, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	var result *driven.GenerateResult
	err = o.scheduler.Execute(ctx, domain.PriorityQuery, func(ctx context.Context) error {
		var genErr error
		result, genErr = o.inference.Generate(ctx, driven.GenerateRequest{
			Model:  rc.model,
			Prompt: rc.prompt,
			System: rc.system,
		})
		return genErr
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	duration := time.Since(started)
	o.record(ctx, "query", rc.model, duration, result.Stats, map[string]any{
		"question_length": len(req.Question),
		"top_k":           req.TopK,
	})

	return &domain.Answer{
		Answer:   result.Response,
		Sources:  rc.sources,
		Model:    rc.model,
		Duration: duration,
	}, nil
}

// AnswerStream runs the same pipeline, emitting a sources event after
// retrieval, token events during generation, and a terminal done or
// error event. The channel closes after the terminal event.
func (o *RAGOrchestrator) AnswerStream(ctx context.Context, req driving.AnswerRequest) <-chan domain.StreamEvent {
	events := make(chan domain.StreamEvent)

	go func() {
		defer close(events)
		started := time.Now()

		emit := func(ev domain.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		rc, err := o.prepare(ctx, req)
		if err != nil {
			emit(domain.StreamEvent{Type: domain.StreamEventError, Error: err.Error()})
			return
		}

		// Sources go out before generation so the caller can render
		// citations while waiting for the first token.
		if !emit(domain.StreamEvent{Type: domain.StreamEventSources, Sources: rc.sources}) {
			return
		}

		var result *driven.GenerateResult
		err = o.scheduler.Execute(ctx, domain.PriorityQuery, func(ctx context.Context) error {
			var genErr error
			result, genErr = o.inference.GenerateStream(ctx, driven.GenerateRequest{
				Model:  rc.model,
				Prompt: rc.prompt,
				System: rc.system,
			}, func(token string) error {
				if !emit(domain.StreamEvent{Type: domain.StreamEventToken, Token: token}) {
					return ctx.Err()
				}
				return nil
			})
			return genErr
		})
		if err != nil {
			emit(domain.StreamEvent{Type: domain.StreamEventError, Error: err.Error()})
			return
		}

		duration := time.Since(started)
		o.record(ctx, "query_stream", rc.model, duration, result.Stats, map[string]any{
			"question_length": len(req.Question),
			"top_k":           req.TopK,
		})

		emit(domain.StreamEvent{Type: domain.StreamEventDone, Model: rc.model, Duration: duration})
	}()

	return events
}

// GenerateTags asks the LLM for descriptive tags for document content.
// Best-effort: any failure returns an empty set so auto-tagging never
// blocks or fails ingestion.
func (o *RAGOrchestrator) GenerateTags(ctx context.Context, content, filename string, maxTags int) []string {
	if maxTags <= 0 {
		maxTags = defaultMaxTags
	}

	truncated := content
	if runes := []rune(content); len(runes) > maxTagContentRunes {
		truncated = string(runes[:maxTagContentRunes])
	}

	filenameHint := ""
	if filename != "" {
		filenameHint = "Filename: " + filename + "\n\n"
	}

	system := loadPrompt(o.prompts, driven.PromptAutoTagSystem)
	prompt := interpolate(loadPrompt(o.prompts, driven.PromptAutoTagUser), map[string]string{
		"max_tags":      strconv.Itoa(maxTags),
		"filename_hint": filenameHint,
		"truncated":     truncated,
	})

	started := time.Now()
	var result *driven.GenerateResult
	err := o.scheduler.Execute(ctx, domain.PriorityTagging, func(ctx context.Context) error {
		var genErr error
		result, genErr = o.inference.Generate(ctx, driven.GenerateRequest{
			Model:  o.settings.LLMModel,
			Prompt: prompt,
			System: system,
		})
		return genErr
	})
	if err != nil {
		logger.Warn("Auto-tag generation failed: %v", err)
		return nil
	}

	o.record(ctx, "tag_generation", o.settings.LLMModel, time.Since(started), result.Stats, map[string]any{
		"filename":       filename,
		"content_length": len(content),
	})

	var tags []string
	for _, raw := range strings.Split(result.Response, ",") {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// prepare runs retrieval and assembles the generation prompt.
func (o *RAGOrchestrator) prepare(ctx context.Context, req driving.AnswerRequest) (*ragContext, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	model := req.Model
	if model == "" {
		model = o.settings.LLMModel
	}

	sources, err := o.search.Search(ctx, question, driving.SearchOptions{
		TopK:   req.TopK,
		Tags:   req.Tags,
		Rerank: req.Rerank,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	contextBlock := buildContextBlock(sources)
	historyBlock := buildHistoryBlock(req.History)

	system := loadPrompt(o.prompts, driven.PromptRAGSystem)
	prompt := interpolate(loadPrompt(o.prompts, driven.PromptRAGUser), map[string]string{
		"context":       contextBlock,
		"history_block": historyBlock,
		"question":      question,
	})

	return &ragContext{
		prompt:  prompt,
		system:  system,
		sources: sources,
		model:   model,
	}, nil
}

// buildContextBlock renders retrieved chunks as numbered sources.
func buildContextBlock(sources []domain.RetrievalResult) string {
	parts := make([]string, len(sources))
	for i, src := range sources {
		name := "unknown"
		if fn, ok := src.Metadata["filename"].(string); ok && fn != "" {
			name = fn
		}
		parts[i] = fmt.Sprintf("[Source %d: %s]\n%s", i+1, name, src.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// buildHistoryBlock renders prior conversation turns, or nothing.
func buildHistoryBlock(history []domain.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, len(history))
	for i, msg := range history {
		label := "Assistant"
		if msg.Role == "user" {
			label = "User"
		}
		lines[i] = label + ": " + msg.Content
	}
	return "\n\nConversation history:\n" + strings.Join(lines, "\n") + "\n"
}

// record sends a metrics event when a sink is configured.
func (o *RAGOrchestrator) record(
	ctx context.Context, kind, model string, duration time.Duration,
	stats driven.GenerateStats, metadata map[string]any,
) {
	if o.metrics == nil {
		return
	}
	o.metrics.Record(ctx, driven.MetricsEvent{
		Type:             kind,
		Model:            model,
		Duration:         duration,
		PromptTokens:     stats.PromptTokens,
		CompletionTokens: stats.CompletionTokens,
		Metadata:         metadata,
	})
}
