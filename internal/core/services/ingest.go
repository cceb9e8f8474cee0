package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.IngestService = (*IngestOrchestrator)(nil)

// loadFunc produces the parsed content for a job. Running it inside the
// job means fetch and parse failures surface as job failures, not as
// errors on the submitting call.
type loadFunc func(ctx context.Context) (content string, metadata map[string]any, err error)

// IngestOrchestrator runs the background ingestion pipeline:
// parsing, auto-tagging, chunking, embedding, indexing. Each stage
// checks for cooperative cancellation before starting.
type IngestOrchestrator struct {
	store       driven.DocumentStore
	inference   driven.InferenceService
	scheduler   *Scheduler
	rag         *RAGOrchestrator
	pipeline    driven.ChunkPipeline
	jobs        *JobTracker
	fetcher     driven.Fetcher
	normalisers map[string]driven.Normaliser
	metrics     driven.MetricsSink
	chunking    domain.ChunkingSettings
}

// NewIngestOrchestrator creates the ingestion orchestrator. The RAG
// orchestrator powers best-effort auto-tagging; fetcher and metrics are
// optional.
func NewIngestOrchestrator(
	store driven.DocumentStore,
	inference driven.InferenceService,
	scheduler *Scheduler,
	rag *RAGOrchestrator,
	pipeline driven.ChunkPipeline,
	jobs *JobTracker,
	fetcher driven.Fetcher,
	metrics driven.MetricsSink,
	chunking domain.ChunkingSettings,
) *IngestOrchestrator {
	return &IngestOrchestrator{
		store:       store,
		inference:   inference,
		scheduler:   scheduler,
		rag:         rag,
		pipeline:    pipeline,
		jobs:        jobs,
		fetcher:     fetcher,
		normalisers: make(map[string]driven.Normaliser),
		metrics:     metrics,
		chunking:    chunking,
	}
}

// RegisterNormaliser makes a normaliser available for its MIME types.
func (o *IngestOrchestrator) RegisterNormaliser(n driven.Normaliser) {
	for _, mimeType := range n.SupportedMIMETypes() {
		o.normalisers[mimeType] = n
	}
}

// IngestContent queues ingestion of already-parsed text content.
func (o *IngestOrchestrator) IngestContent(
	_ context.Context, filename, sourceType, content string, metadata map[string]any, tags []string,
) (*domain.Job, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is empty", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is empty", domain.ErrInvalidInput)
	}
	if sourceType == "" {
		sourceType = "text"
	}

	job := domain.NewJob(uuid.NewString(), filename, sourceType)
	o.jobs.Register(job)

	go o.run(job, func(context.Context) (string, map[string]any, error) {
		return content, metadata, nil
	}, tags)

	return job, nil
}

// IngestURL queues ingestion of a web page. The fetch happens inside
// the job so network failures land on the job, not the caller.
func (o *IngestOrchestrator) IngestURL(_ context.Context, url string, tags []string) (*domain.Job, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: url must be http or https", domain.ErrInvalidInput)
	}
	if o.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", domain.ErrInvalidInput)
	}

	job := domain.NewJob(uuid.NewString(), url, "web")
	o.jobs.Register(job)

	go o.run(job, func(ctx context.Context) (string, map[string]any, error) {
		raw, err := o.fetcher.Fetch(ctx, url)
		if err != nil {
			return "", nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		return o.normalise(ctx, raw)
	}, tags)

	return job, nil
}

// normalise extracts plain text from a raw document using the
// registered normaliser for its MIME type.
func (o *IngestOrchestrator) normalise(ctx context.Context, raw *domain.RawDocument) (string, map[string]any, error) {
	mimeType := raw.MIMEType
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}

	n, ok := o.normalisers[mimeType]
	if !ok {
		// Unknown types fall back to plain text handling when available.
		n, ok = o.normalisers["text/plain"]
		if !ok {
			return "", nil, fmt.Errorf("no normaliser for %q", raw.MIMEType)
		}
	}

	result, err := n.Normalise(ctx, raw)
	if err != nil {
		return "", nil, fmt.Errorf("normalise %s: %w", raw.URI, err)
	}

	metadata := map[string]any{"url": raw.URI}
	for k, v := range result.Metadata {
		metadata[k] = v
	}
	if result.Title != "" {
		metadata["title"] = result.Title
	}
	return result.Content, metadata, nil
}

// run executes the pipeline stages for one job. Always detached from
// the submitting request's context: ingestion outlives the call.
func (o *IngestOrchestrator) run(job *domain.Job, load loadFunc, userTags []string) {
	ctx := context.Background()
	started := time.Now()
	defer o.jobs.Finish(ctx, job)

	fail := func(err error) {
		if errors.Is(err, domain.ErrJobCancelled) {
			// Cancel already set the terminal state.
			return
		}
		logger.Warn("Ingest job %s failed: %v", job.ID, err)
		job.Fail(err.Error())
	}

	if !job.SetStage(domain.JobParsing) {
		return
	}
	content, metadata, err := load(ctx)
	if err != nil {
		fail(err)
		return
	}
	if err := job.CheckCancelled(); err != nil {
		return
	}

	if !job.SetStage(domain.JobTagging) {
		return
	}
	autoTags := o.rag.GenerateTags(ctx, content, job.Filename, defaultMaxTags)
	tags := unionTags(userTags, autoTags)
	if err := job.CheckCancelled(); err != nil {
		return
	}

	// Re-ingesting a known source replaces the previous version.
	existingID, findErr := o.store.FindDocumentBySource(ctx, job.Filename, job.SourceType)
	switch {
	case findErr == nil:
		if _, delErr := o.store.DeleteDocument(ctx, existingID); delErr != nil {
			fail(fmt.Errorf("replace existing document: %w", delErr))
			return
		}
		logger.Info("Replaced existing document %s for %s", existingID, job.Filename)
	case !errors.Is(findErr, domain.ErrNotFound):
		fail(fmt.Errorf("look up existing document: %w", findErr))
		return
	}

	docID := uuid.NewString()
	chunks, err := o.pipeline.Process(ctx, docID, content)
	if err != nil {
		fail(fmt.Errorf("chunk content: %w", err))
		return
	}
	if len(chunks) == 0 {
		fail(errors.New("document produced no chunks"))
		return
	}

	if !job.SetStage(domain.JobEmbedding) {
		return
	}
	job.SetProgress(len(chunks), 0)

	embeddings, err := o.embedChunks(ctx, job, chunks)
	if err != nil {
		fail(err)
		return
	}
	if err := job.CheckCancelled(); err != nil {
		return
	}

	// Cancellation wins over indexing: a job the user cancelled must not
	// write to the store.
	if !job.SetStage(domain.JobIndexing) {
		return
	}

	docMeta := map[string]any{
		"filename":    job.Filename,
		"source_type": job.SourceType,
	}
	for k, v := range metadata {
		docMeta[k] = v
	}

	now := time.Now().UTC()
	embedded := make([]domain.EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		embedded[i] = domain.EmbeddedChunk{
			Chunk:     chunk,
			ID:        uuid.NewString(),
			Embedding: embeddings[i],
			Metadata:  docMeta,
			Tags:      tags,
			CreatedAt: now,
		}
	}

	indexed, err := o.store.IndexChunks(ctx, embedded)
	if err != nil {
		fail(fmt.Errorf("index chunks: %w", err))
		return
	}

	if !job.Complete(docID, indexed, tags) {
		return
	}
	logger.Info("Ingested %s: %d chunks, tags %v", job.Filename, indexed, tags)

	if o.metrics != nil {
		o.metrics.Record(ctx, driven.MetricsEvent{
			Type:       "ingest",
			DocumentID: docID,
			Duration:   time.Since(started),
			Metadata: map[string]any{
				"filename":       job.Filename,
				"chunks":         indexed,
				"content_length": len(content),
			},
		})
	}
}

// embedChunks embeds chunk texts in batches through the scheduler at
// embedding priority, updating job progress and honouring cancellation
// between batches.
func (o *IngestOrchestrator) embedChunks(ctx context.Context, job *domain.Job, chunks []domain.Chunk) ([][]float32, error) {
	batchSize := o.chunking.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	prefix := driven.PrefixDocument + job.Filename + "\n\n"

	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		if err := job.CheckCancelled(); err != nil {
			return nil, err
		}

		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, chunk := range chunks[start:end] {
			texts[i] = chunk.Text
		}

		err := o.scheduler.Execute(ctx, domain.PriorityEmbedding, func(ctx context.Context) error {
			vectors, embedErr := o.inference.Embed(ctx, texts, prefix)
			if embedErr != nil {
				return embedErr
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
			}
			embeddings = append(embeddings, vectors...)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}

		job.SetProgress(len(chunks), len(embeddings))
	}
	return embeddings, nil
}

// unionTags merges user and auto-generated tags, lowercased, first
// occurrence wins.
func unionTags(user, auto []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tag := range append(append([]string{}, user...), auto...) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
