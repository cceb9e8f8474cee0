package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
)

// fakeSearch implements driving.SearchService.
type fakeSearch struct {
	results  []domain.RetrievalResult
	err      error
	lastOpts driving.SearchOptions
	query    string
}

func (f *fakeSearch) Search(_ context.Context, query string, opts driving.SearchOptions) ([]domain.RetrievalResult, error) {
	f.query = query
	f.lastOpts = opts
	return f.results, f.err
}

// fakeRAG implements driving.RAGService.
type fakeRAG struct {
	answer *domain.Answer
	events []domain.StreamEvent
	err    error
}

func (f *fakeRAG) Answer(_ context.Context, _ driving.AnswerRequest) (*domain.Answer, error) {
	return f.answer, f.err
}

func (f *fakeRAG) AnswerStream(_ context.Context, _ driving.AnswerRequest) <-chan domain.StreamEvent {
	ch := make(chan domain.StreamEvent, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch
}

// fakeDocuments implements driving.DocumentService.
type fakeDocuments struct {
	docs    []domain.Document
	chunks  []domain.EmbeddedChunk
	graph   *domain.SimilarityGraph
	deleted int
	err     error
}

func (f *fakeDocuments) ListDocuments(context.Context) ([]domain.Document, error) {
	return f.docs, f.err
}

func (f *fakeDocuments) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDocuments) GetDocumentChunks(context.Context, string) ([]domain.EmbeddedChunk, error) {
	return f.chunks, f.err
}

func (f *fakeDocuments) DeleteDocument(context.Context, string) (int, error) {
	return f.deleted, f.err
}

func (f *fakeDocuments) UpdateTags(context.Context, string, []string) (int, error) {
	return len(f.chunks), f.err
}

func (f *fakeDocuments) SimilarityGraph(context.Context, float64) (*domain.SimilarityGraph, error) {
	return f.graph, f.err
}

// fakeJobs implements driving.JobService.
type fakeJobs struct {
	jobs      []domain.JobView
	cancelled bool
	err       error
}

func (f *fakeJobs) GetJob(_ context.Context, id string) (*domain.JobView, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.jobs {
		if f.jobs[i].ID == id {
			return &f.jobs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeJobs) ListJobs(context.Context) ([]domain.JobView, error) {
	return f.jobs, f.err
}

func (f *fakeJobs) CancelJob(context.Context, string) (bool, error) {
	return f.cancelled, f.err
}

// setupTestServices wires fakes into the package-level service vars and
// returns the fakes plus a cleanup restoring the previous wiring.
func setupTestServices() (*fakeSearch, *fakeRAG, *fakeDocuments, *fakeJobs, func()) {
	search := &fakeSearch{}
	rag := &fakeRAG{answer: &domain.Answer{Answer: "answer", Model: "test-llm", Duration: time.Second}}
	docs := &fakeDocuments{}
	jobs := &fakeJobs{}

	prev := Services{
		Search:    searchService,
		RAG:       ragService,
		Ingest:    ingestService,
		Jobs:      jobService,
		Documents: documentService,
		Chats:     chatService,
		Metrics:   metricsHandler,
	}
	SetServices(Services{Search: search, RAG: rag, Documents: docs, Jobs: jobs})

	return search, rag, docs, jobs, func() { SetServices(prev) }
}
