package domain

import "time"

// Settings holds the process-wide configuration.
// Loaded from ~/.ragdex/config.toml; all fields have working defaults
// so a missing file yields a usable local setup.
type Settings struct {
	// Ollama configures the local inference backend.
	Ollama OllamaSettings `toml:"ollama"`

	// Chunking configures the recursive chunker.
	Chunking ChunkingSettings `toml:"chunking"`

	// Retrieval configures hybrid search and fusion.
	Retrieval RetrievalSettings `toml:"retrieval"`

	// Rerank configures the optional cross-encoder stage.
	Rerank RerankSettings `toml:"rerank"`
}

// OllamaSettings configures the inference backend connection.
type OllamaSettings struct {
	BaseURL        string        `toml:"base_url"`
	LLMModel       string        `toml:"llm_model"`
	EmbeddingModel string        `toml:"embedding_model"`
	Timeout        time.Duration `toml:"timeout"`
}

// ChunkingSettings configures text splitting.
type ChunkingSettings struct {
	ChunkSize      int `toml:"chunk_size"`
	ChunkOverlap   int `toml:"chunk_overlap"`
	EmbedBatchSize int `toml:"embed_batch_size"`
}

// RetrievalSettings configures hybrid search.
type RetrievalSettings struct {
	// TopK is the default number of results returned to the caller.
	TopK int `toml:"top_k"`

	// RRFK is the reciprocal rank fusion damping constant.
	RRFK int `toml:"rrf_k"`
}

// RerankSettings configures the reranking stage.
type RerankSettings struct {
	// Enabled is the process-wide default; per-request overrides win.
	Enabled bool `toml:"enabled"`

	// BaseURL is the cross-encoder sidecar address.
	BaseURL string `toml:"base_url"`

	// Model is the cross-encoder model name.
	Model string `toml:"model"`

	// Multiplier widens retrieval to top_k x multiplier candidates
	// before reranking.
	Multiplier int `toml:"multiplier"`

	// ExpandContext stitches neighbouring chunks after reranking.
	ExpandContext bool `toml:"expand_context"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Ollama: OllamaSettings{
			BaseURL:        "http://localhost:11434",
			LLMModel:       "llama3.2",
			EmbeddingModel: "nomic-embed-text",
			Timeout:        120 * time.Second,
		},
		Chunking: ChunkingSettings{
			ChunkSize:      2000,
			ChunkOverlap:   200,
			EmbedBatchSize: 32,
		},
		Retrieval: RetrievalSettings{
			TopK: 10,
			RRFK: 60,
		},
		Rerank: RerankSettings{
			Enabled:       false,
			BaseURL:       "http://localhost:8787",
			Model:         "ms-marco-MiniLM-L-12-v2",
			Multiplier:    3,
			ExpandContext: true,
		},
	}
}
