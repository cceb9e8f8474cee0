package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// --- Mock implementations shared across service tests ---

// mockDocumentStore implements driven.DocumentStore for testing.
type mockDocumentStore struct {
	mu sync.Mutex

	keywordHits []driven.SearchHit
	keywordErr  error
	vectorHits  []driven.SearchHit
	vectorErr   error

	neighbours   map[string][]domain.EmbeddedChunk // keyed by document id
	neighbourErr error

	docs   map[string]*domain.Document
	chunks map[string][]domain.EmbeddedChunk

	indexed    []domain.EmbeddedChunk
	indexErr   error
	deleteErr  error
	findErr    error
	embeddings map[string][][]float32
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{
		docs:       make(map[string]*domain.Document),
		chunks:     make(map[string][]domain.EmbeddedChunk),
		neighbours: make(map[string][]domain.EmbeddedChunk),
	}
}

func (m *mockDocumentStore) IndexChunks(_ context.Context, chunks []domain.EmbeddedChunk) (int, error) {
	if m.indexErr != nil {
		return 0, m.indexErr
	}
	m.mu.Lock()
	m.indexed = append(m.indexed, chunks...)
	m.mu.Unlock()
	return len(chunks), nil
}

func (m *mockDocumentStore) KeywordSearch(_ context.Context, _ string, limit int, _ []string) ([]driven.SearchHit, error) {
	if m.keywordErr != nil {
		return nil, m.keywordErr
	}
	if limit < len(m.keywordHits) {
		return m.keywordHits[:limit], nil
	}
	return m.keywordHits, nil
}

func (m *mockDocumentStore) VectorSearch(_ context.Context, _ []float32, limit int, _ []string) ([]driven.SearchHit, error) {
	if m.vectorErr != nil {
		return nil, m.vectorErr
	}
	if limit < len(m.vectorHits) {
		return m.vectorHits[:limit], nil
	}
	return m.vectorHits, nil
}

func (m *mockDocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, *d)
	}
	return docs, nil
}

func (m *mockDocumentStore) GetDocumentChunks(_ context.Context, documentID string) ([]domain.EmbeddedChunk, error) {
	return m.chunks[documentID], nil
}

func (m *mockDocumentStore) GetNeighbours(_ context.Context, documentID string, index, window int) ([]domain.EmbeddedChunk, error) {
	if m.neighbourErr != nil {
		return nil, m.neighbourErr
	}
	var out []domain.EmbeddedChunk
	for _, c := range m.neighbours[documentID] {
		if c.Index >= index-window && c.Index <= index+window {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockDocumentStore) DeleteDocument(_ context.Context, id string) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	n := len(m.chunks[id])
	delete(m.docs, id)
	delete(m.chunks, id)
	return n, nil
}

func (m *mockDocumentStore) FindDocumentBySource(_ context.Context, filename, sourceType string) (string, error) {
	if m.findErr != nil {
		return "", m.findErr
	}
	for id, d := range m.docs {
		if d.Filename == filename && d.SourceType == sourceType {
			return id, nil
		}
	}
	return "", domain.ErrNotFound
}

func (m *mockDocumentStore) UpdateDocumentTags(_ context.Context, documentID string, tags []string) (int, error) {
	doc, ok := m.docs[documentID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	doc.Tags = tags
	return len(m.chunks[documentID]), nil
}

func (m *mockDocumentStore) AllEmbeddingsByDocument(_ context.Context) (map[string][][]float32, error) {
	return m.embeddings, nil
}

func (m *mockDocumentStore) Close() error { return nil }

// mockInference implements driven.InferenceService for testing.
type mockInference struct {
	mu sync.Mutex

	embedding  []float32
	embedErr   error
	embedDelay chan struct{} // Embed blocks until this closes, when set
	embedCalls [][]string
	prefixes   []string

	generateResponse string
	generateErr      error
	generateCalls    []driven.GenerateRequest

	streamTokens []string
	streamErr    error
}

func (m *mockInference) Embed(_ context.Context, texts []string, prefix string) ([][]float32, error) {
	m.mu.Lock()
	m.embedCalls = append(m.embedCalls, texts)
	m.prefixes = append(m.prefixes, prefix)
	delay := m.embedDelay
	m.mu.Unlock()
	if delay != nil {
		<-delay
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.embedding
	}
	return out, nil
}

func (m *mockInference) Generate(_ context.Context, req driven.GenerateRequest) (*driven.GenerateResult, error) {
	m.mu.Lock()
	m.generateCalls = append(m.generateCalls, req)
	m.mu.Unlock()
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &driven.GenerateResult{
		Response: m.generateResponse,
		Model:    req.Model,
		Stats:    driven.GenerateStats{PromptTokens: 10, CompletionTokens: 20},
	}, nil
}

func (m *mockInference) GenerateStream(_ context.Context, req driven.GenerateRequest, fn driven.TokenFunc) (*driven.GenerateResult, error) {
	m.mu.Lock()
	m.generateCalls = append(m.generateCalls, req)
	m.mu.Unlock()
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	for _, tok := range m.streamTokens {
		if err := fn(tok); err != nil {
			return nil, err
		}
	}
	return &driven.GenerateResult{
		Model: req.Model,
		Stats: driven.GenerateStats{PromptTokens: 10, CompletionTokens: len(m.streamTokens)},
	}, nil
}

func (m *mockInference) ListModels(_ context.Context) ([]string, error) {
	return []string{"llama3.2", "nomic-embed-text"}, nil
}

func (m *mockInference) EnsureModel(_ context.Context, _ string) error { return nil }

func (m *mockInference) Ping(_ context.Context) error { return nil }

func (m *mockInference) Close() error { return nil }

// mockReranker implements driven.Reranker for testing.
type mockReranker struct {
	scores    []driven.RerankScore
	rerankErr error
	calls     int
}

func (m *mockReranker) Rerank(_ context.Context, _ string, _ []string) ([]driven.RerankScore, error) {
	m.calls++
	if m.rerankErr != nil {
		return nil, m.rerankErr
	}
	return m.scores, nil
}

func (m *mockReranker) ModelName() string { return "mock-cross-encoder" }

func (m *mockReranker) Ping(_ context.Context) error { return nil }

func (m *mockReranker) Close() error { return nil }

// mockMetrics implements driven.MetricsSink for testing.
type mockMetrics struct {
	mu     sync.Mutex
	events []driven.MetricsEvent
}

func (m *mockMetrics) Record(_ context.Context, ev driven.MetricsEvent) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
}

// mockJobStore implements driven.JobStore for testing.
type mockJobStore struct {
	mu      sync.Mutex
	jobs    map[string]domain.JobView
	saveErr error
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[string]domain.JobView)}
}

func (m *mockJobStore) SaveJob(_ context.Context, job domain.JobView) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()
	return nil
}

func (m *mockJobStore) GetJob(_ context.Context, id string) (*domain.JobView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *mockJobStore) ListJobs(_ context.Context, limit int) ([]domain.JobView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.JobView, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockFetcher implements driven.Fetcher for testing.
type mockFetcher struct {
	raw      *domain.RawDocument
	fetchErr error
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*domain.RawDocument, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	raw := *m.raw
	raw.URI = url
	return &raw, nil
}

// --- Test helpers ---

// startedScheduler returns a running scheduler stopped at test cleanup.
func startedScheduler(tb interface{ Cleanup(func()) }) *Scheduler {
	s := NewScheduler()
	s.Start()
	tb.Cleanup(s.Stop)
	return s
}

// hit builds a SearchHit for the given document, index, and text.
func hit(docID string, index int, text string, score float64) driven.SearchHit {
	return driven.SearchHit{
		Chunk: domain.EmbeddedChunk{
			Chunk: domain.Chunk{
				Text:       text,
				DocumentID: docID,
				Index:      index,
			},
		},
		Score: score,
	}
}
