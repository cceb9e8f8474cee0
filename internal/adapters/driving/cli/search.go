package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
)

var (
	searchTopK   int
	searchTags   []string
	searchRerank bool
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs hybrid search across all indexed documents.
Combines keyword (FTS) and semantic (vector) legs fused by reciprocal rank.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 0, "maximum number of results (0 uses the configured default)")
	searchCmd.Flags().StringSliceVar(&searchTags, "tags", nil, "only search documents carrying any of these tags")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "force cross-encoder reranking for this query")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return fmt.Errorf("search service not configured: %w", domain.ErrInferenceUnavailable)
	}

	opts := driving.SearchOptions{
		TopK: searchTopK,
		Tags: searchTags,
	}
	if cmd.Flags().Changed("rerank") {
		opts.Rerank = &searchRerank
	}

	results, err := searchService.Search(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printResults(cmd, results)
	return nil
}

func printResults(cmd *cobra.Command, results []domain.RetrievalResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	for i, res := range results {
		filename, _ := res.Metadata["filename"].(string)
		if filename == "" {
			filename = res.DocumentID
		}
		cmd.Printf("  [%d] %s #%d (%.4f)", i+1, filename, res.ChunkIndex, res.Score)
		if res.RerankScore != nil {
			cmd.Printf(" rerank=%.4f", *res.RerankScore)
		}
		cmd.Println()
		cmd.Printf("      %s\n\n", snippet(res.Content, 200))
	}
}

// snippet truncates text to max runes on a single line.
func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) > max {
		text = string(runes[:max]) + "..."
	}
	return text
}
