package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

var (
	ingestTags []string
	ingestWait bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|url]",
	Short: "Ingest a document into the index",
	Long: `Ingests a local file or a web page. Ingestion runs as a background
job: the document is chunked, auto-tagged, embedded and indexed.
Use --wait to block until the job finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestTags, "tags", nil, "tags to attach to the document")
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "wait for the ingestion job to finish")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return fmt.Errorf("ingest service not configured: %w", domain.ErrStoreUnavailable)
	}

	ctx := context.Background()
	source := args[0]

	var job *domain.Job
	var err error
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		job, err = ingestService.IngestURL(ctx, source, ingestTags)
	} else {
		job, err = ingestFile(ctx, source)
	}
	if err != nil {
		return fmt.Errorf("starting ingestion: %w", err)
	}

	cmd.Printf("Job %s queued for %s\n", job.ID, job.Filename)

	if !ingestWait {
		cmd.Println("Track progress with: ragdex jobs get " + job.ID)
		return nil
	}
	return waitForJob(ctx, cmd, job.ID)
}

func ingestFile(ctx context.Context, path string) (*domain.Job, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ingestService.IngestContent(ctx, filepath.Base(path), "text", string(content), nil, ingestTags)
}

func waitForJob(ctx context.Context, cmd *cobra.Command, id string) error {
	if jobService == nil {
		return fmt.Errorf("job service not configured: %w", domain.ErrStoreUnavailable)
	}

	for {
		view, err := jobService.GetJob(ctx, id)
		if err != nil {
			return fmt.Errorf("polling job: %w", err)
		}

		if view.Status.Terminal() {
			switch view.Status {
			case domain.JobCompleted:
				cmd.Printf("Done: %d chunks indexed as %s\n", view.ChunkCount, view.DocumentID)
				if len(view.Tags) > 0 {
					cmd.Printf("Tags: %s\n", strings.Join(view.Tags, ", "))
				}
				return nil
			case domain.JobCancelled:
				return errors.New("job was cancelled")
			default:
				return fmt.Errorf("job failed: %s", view.Error)
			}
		}

		if view.Status == domain.JobEmbedding && view.TotalChunks > 0 {
			cmd.Printf("\rEmbedding %d/%d chunks", view.EmbeddedChunks, view.TotalChunks)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
