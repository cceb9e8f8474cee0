// Package cli provides the ragdex command-line interface.
package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// version is set from main at startup.
var version = "dev"

// Services the commands call into. Wired from main; commands guard
// against nil services so partial wiring fails with a clear message.
var (
	searchService   driving.SearchService
	ragService      driving.RAGService
	ingestService   driving.IngestService
	jobService      driving.JobService
	documentService driving.DocumentService
	chatService     driving.ChatService
	metricsHandler  http.Handler
)

// Services bundles everything the CLI needs.
type Services struct {
	Search    driving.SearchService
	RAG       driving.RAGService
	Ingest    driving.IngestService
	Jobs      driving.JobService
	Documents driving.DocumentService
	Chats     driving.ChatService

	// Metrics serves the /metrics endpoint in serve mode. Optional.
	Metrics http.Handler
}

// SetServices injects the service implementations.
func SetServices(s Services) {
	searchService = s.Search
	ragService = s.RAG
	ingestService = s.Ingest
	jobService = s.Jobs
	documentService = s.Documents
	chatService = s.Chats
	metricsHandler = s.Metrics
}

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "ragdex",
	Short: "Local RAG over your own documents",
	Long: `Ragdex indexes documents locally and answers questions about them
using hybrid retrieval (keyword + semantic) and a local LLM via Ollama.
Nothing leaves your machine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose pipeline logging")
}

// Execute runs the root command.
func Execute(ver string) error {
	if ver != "" {
		version = ver
	}
	return rootCmd.Execute()
}
