package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage indexed documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Print a document's chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsChunks,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsTagCmd = &cobra.Command{
	Use:   "tag [doc-id] [tags...]",
	Short: "Replace a document's tags",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runDocumentsTag,
}

var (
	graphThreshold float64
	graphJSON      bool
)

var documentsGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the corpus similarity graph",
	Long: `Computes pairwise document similarity from embedding centroids and
prints the edges above the threshold.`,
	Args: cobra.NoArgs,
	RunE: runDocumentsGraph,
}

func init() {
	documentsGraphCmd.Flags().Float64Var(&graphThreshold, "threshold", 0, "similarity threshold (0 uses the default)")
	documentsGraphCmd.Flags().BoolVar(&graphJSON, "json", false, "output the graph as JSON")

	documentsCmd.AddCommand(documentsListCmd, documentsGetCmd, documentsChunksCmd,
		documentsDeleteCmd, documentsTagCmd, documentsGraphCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return fmt.Errorf("document service not configured: %w", domain.ErrStoreUnavailable)
	}

	docs, err := documentService.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for _, doc := range docs {
		cmd.Printf("%s  %s (%s, %d chunks)", doc.ID, doc.Filename, doc.SourceType, doc.ChunkCount)
		if len(doc.Tags) > 0 {
			cmd.Printf("  [%s]", strings.Join(doc.Tags, ", "))
		}
		cmd.Println()
	}
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document service not configured: %w", domain.ErrStoreUnavailable)
	}

	doc, err := documentService.GetDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("getting document: %w", err)
	}

	cmd.Printf("ID:          %s\n", doc.ID)
	cmd.Printf("Filename:    %s\n", doc.Filename)
	cmd.Printf("Source type: %s\n", doc.SourceType)
	cmd.Printf("Chunks:      %d\n", doc.ChunkCount)
	cmd.Printf("Tags:        %s\n", strings.Join(doc.Tags, ", "))
	cmd.Printf("Indexed:     %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runDocumentsChunks(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document service not configured: %w", domain.ErrStoreUnavailable)
	}

	chunks, err := documentService.GetDocumentChunks(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("getting chunks: %w", err)
	}

	for _, ch := range chunks {
		cmd.Printf("--- chunk %d [%d:%d] ---\n%s\n", ch.Index, ch.CharStart, ch.CharEnd, ch.Text)
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document service not configured: %w", domain.ErrStoreUnavailable)
	}

	deleted, err := documentService.DeleteDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	cmd.Printf("Deleted %d chunks.\n", deleted)
	return nil
}

func runDocumentsTag(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return fmt.Errorf("document service not configured: %w", domain.ErrStoreUnavailable)
	}

	updated, err := documentService.UpdateTags(context.Background(), args[0], args[1:])
	if err != nil {
		return fmt.Errorf("updating tags: %w", err)
	}
	cmd.Printf("Updated tags on %d chunks.\n", updated)
	return nil
}

func runDocumentsGraph(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return fmt.Errorf("document service not configured: %w", domain.ErrStoreUnavailable)
	}

	graph, err := documentService.SimilarityGraph(context.Background(), graphThreshold)
	if err != nil {
		return fmt.Errorf("computing similarity graph: %w", err)
	}

	if graphJSON {
		data, err := json.MarshalIndent(graph, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling graph: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("%d documents, %d edges (threshold %.2f)\n", len(graph.Nodes), len(graph.Edges), graph.Threshold)
	names := make(map[string]string, len(graph.Nodes))
	for _, node := range graph.Nodes {
		names[node.DocumentID] = node.Filename
	}
	for _, edge := range graph.Edges {
		cmd.Printf("  %s <-> %s  %.4f\n", names[edge.Source], names[edge.Target], edge.Similarity)
	}
	return nil
}
