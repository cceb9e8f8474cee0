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
	queryTopK   int
	queryModel  string
	queryTags   []string
	queryRerank bool
	queryStream bool
	queryJSON   bool
	queryChat   string
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves relevant chunks and generates a grounded answer with the
local LLM. Sources are listed after the answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "n", 0, "maximum number of sources (0 uses the configured default)")
	queryCmd.Flags().StringVarP(&queryModel, "model", "m", "", "override the configured LLM")
	queryCmd.Flags().StringSliceVar(&queryTags, "tags", nil, "only retrieve from documents carrying any of these tags")
	queryCmd.Flags().BoolVar(&queryRerank, "rerank", false, "force cross-encoder reranking for this query")
	queryCmd.Flags().BoolVar(&queryStream, "stream", false, "stream tokens as they are generated")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON (non-streaming only)")
	queryCmd.Flags().StringVar(&queryChat, "chat", "", "continue the given conversation, persisting both turns")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if ragService == nil {
		return fmt.Errorf("rag service not configured: %w", domain.ErrInferenceUnavailable)
	}

	ctx := context.Background()
	req := driving.AnswerRequest{
		Question: args[0],
		TopK:     queryTopK,
		Model:    queryModel,
		Tags:     queryTags,
	}
	if cmd.Flags().Changed("rerank") {
		req.Rerank = &queryRerank
	}

	if queryChat != "" {
		if chatService == nil {
			return fmt.Errorf("chat service not configured: %w", domain.ErrStoreUnavailable)
		}
		chat, err := chatService.GetChat(ctx, queryChat)
		if err != nil {
			return fmt.Errorf("loading chat %s: %w", queryChat, err)
		}
		req.History = chat.Messages
	}

	var answerText string
	var err error
	if queryStream {
		answerText, err = streamAnswer(ctx, cmd, req)
	} else {
		answerText, err = printAnswer(ctx, cmd, req)
	}
	if err != nil {
		return err
	}

	if queryChat != "" {
		_, err = chatService.AppendMessages(ctx, queryChat, []domain.ChatMessage{
			{Role: "user", Content: req.Question},
			{Role: "assistant", Content: answerText},
		})
		if err != nil {
			return fmt.Errorf("saving conversation: %w", err)
		}
	}
	return nil
}

func printAnswer(ctx context.Context, cmd *cobra.Command, req driving.AnswerRequest) (string, error) {
	answer, err := ragService.Answer(ctx, req)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshalling answer: %w", err)
		}
		cmd.Println(string(data))
		return answer.Answer, nil
	}

	cmd.Println(answer.Answer)
	printSources(cmd, answer.Sources)
	cmd.Printf("\n(%s, %.1fs)\n", answer.Model, answer.Duration.Seconds())
	return answer.Answer, nil
}

func streamAnswer(ctx context.Context, cmd *cobra.Command, req driving.AnswerRequest) (string, error) {
	var full string
	var sources []domain.RetrievalResult

	for ev := range ragService.AnswerStream(ctx, req) {
		switch ev.Type {
		case domain.StreamEventSources:
			sources = ev.Sources
		case domain.StreamEventToken:
			cmd.Print(ev.Token)
			full += ev.Token
		case domain.StreamEventDone:
			cmd.Println()
			printSources(cmd, sources)
			cmd.Printf("\n(%s, %.1fs)\n", ev.Model, ev.Duration.Seconds())
		case domain.StreamEventError:
			return "", fmt.Errorf("query failed: %s", ev.Error)
		}
	}
	return full, nil
}

func printSources(cmd *cobra.Command, sources []domain.RetrievalResult) {
	if len(sources) == 0 {
		return
	}
	cmd.Println("\nSources:")
	for i, src := range sources {
		filename, _ := src.Metadata["filename"].(string)
		if filename == "" {
			filename = src.DocumentID
		}
		cmd.Printf("  [%d] %s #%d\n", i+1, filename, src.ChunkIndex)
	}
}
