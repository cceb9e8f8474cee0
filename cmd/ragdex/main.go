// Command ragdex is a local RAG CLI: ingest documents, search them and
// ask questions answered by a local LLM, with nothing leaving the
// machine.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/ragdex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragdex/internal/adapters/driven/fetch"
	"github.com/custodia-labs/ragdex/internal/adapters/driven/inference/ollama"
	"github.com/custodia-labs/ragdex/internal/adapters/driven/metrics/prom"
	rerankhttp "github.com/custodia-labs/ragdex/internal/adapters/driven/rerank/http"
	"github.com/custodia-labs/ragdex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragdex/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragdex/internal/core/services"
	"github.com/custodia-labs/ragdex/internal/normalisers/html"
	"github.com/custodia-labs/ragdex/internal/normalisers/plaintext"
	"github.com/custodia-labs/ragdex/internal/postprocessors"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settingsStore, err := file.NewSettingsStore("")
	if err != nil {
		return fmt.Errorf("initialising config: %w", err)
	}
	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer store.Close()

	inference := ollama.NewClient(ollama.Config{
		BaseURL:        settings.Ollama.BaseURL,
		LLMModel:       settings.Ollama.LLMModel,
		EmbeddingModel: settings.Ollama.EmbeddingModel,
		Timeout:        settings.Ollama.Timeout,
	})
	defer inference.Close()

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("initialising prompts: %w", err)
	}
	defer prompts.Close()

	scheduler := services.NewScheduler()
	scheduler.Start()
	defer scheduler.Stop()

	sink := prom.NewSink()
	docStore := store.DocumentStore()

	// The rerank stage and expander exist even when reranking is off by
	// default; per-query --rerank can still switch them on.
	reranker := rerankhttp.NewReranker(rerankhttp.Config{
		BaseURL: settings.Rerank.BaseURL,
		Model:   settings.Rerank.Model,
	})
	defer reranker.Close()
	rerankStage := services.NewRerankStage(reranker)
	expander := services.NewContextExpander(docStore, 1)

	search := services.NewSearchService(docStore, inference, scheduler, rerankStage, expander, sink, settings)
	rag := services.NewRAGOrchestrator(search, inference, scheduler, prompts, sink, settings.Ollama)

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	chunkerProc, err := registry.Build("chunker", map[string]any{
		"chunk_size":    settings.Chunking.ChunkSize,
		"chunk_overlap": settings.Chunking.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("building chunker: %w", err)
	}
	pipeline := postprocessors.NewPipeline(chunkerProc)

	jobs := services.NewJobTracker(store.JobStore())
	fetcher := fetch.NewFetcher(fetch.Config{})

	ingest := services.NewIngestOrchestrator(
		docStore, inference, scheduler, rag, pipeline, jobs, fetcher, sink, settings.Chunking)
	ingest.RegisterNormaliser(plaintext.New())
	ingest.RegisterNormaliser(html.New())

	cli.SetServices(cli.Services{
		Search:    search,
		RAG:       rag,
		Ingest:    ingest,
		Jobs:      jobs,
		Documents: services.NewDocumentService(docStore),
		Chats:     services.NewChatManager(store.ChatStore()),
		Metrics:   sink.Handler(),
	})

	return cli.Execute(version)
}
