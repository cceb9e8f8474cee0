package driven

import (
	"context"
	"time"
)

// Embedding task prefixes required by nomic-style embedding models.
// The indexing and query prefixes must differ; mixing them degrades
// retrieval quality silently.
const (
	// PrefixDocument marks content being indexed. The source label is
	// appended by the caller ("search_document: <filename>\n\n").
	PrefixDocument = "search_document: "

	// PrefixQuery marks an incoming question.
	PrefixQuery = "search_query: "
)

// GenerateRequest is a single text generation call.
type GenerateRequest struct {
	// Model overrides the configured default when non-empty.
	Model string

	// Prompt is the user prompt.
	Prompt string

	// System is the system prompt.
	System string
}

// GenerateStats carries backend-reported token and timing counters.
// Fields are zero when the backend omits them.
type GenerateStats struct {
	PromptTokens     int
	CompletionTokens int
	LoadDuration     time.Duration
	PromptEvalTime   time.Duration
	EvalTime         time.Duration
	TotalTime        time.Duration
}

// GenerateResult is the outcome of a generation call.
type GenerateResult struct {
	// Response is the full generated text. Empty for streamed calls
	// where tokens were delivered through the TokenFunc.
	Response string

	// Model is the model that served the request.
	Model string

	// Stats are backend timing and token counters.
	Stats GenerateStats
}

// TokenFunc receives one incrementally generated piece of text.
// Returning an error stops the stream.
type TokenFunc func(token string) error

// InferenceService is the serialized local inference backend (Ollama).
// Callers must route every call through the InferenceScheduler; the
// backend processes one request at a time.
type InferenceService interface {
	// Embed generates embeddings for a batch of texts. The prefix is
	// prepended to every text before embedding.
	Embed(ctx context.Context, texts []string, prefix string) ([][]float32, error)

	// Generate produces a complete answer in one call.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// GenerateStream produces an answer incrementally, invoking fn per
	// token. The returned result carries stats but an empty Response.
	GenerateStream(ctx context.Context, req GenerateRequest, fn TokenFunc) (*GenerateResult, error)

	// ListModels returns the models available on the backend.
	ListModels(ctx context.Context) ([]string, error)

	// EnsureModel pulls the model if it is not already available.
	EnsureModel(ctx context.Context, model string) error

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
