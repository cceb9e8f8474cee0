package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Track ingestion jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active and recent jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsGetCmd = &cobra.Command{
	Use:   "get [job-id]",
	Short: "Show job status",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsGet,
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel [job-id]",
	Short: "Cancel an active job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsCancel,
}

func init() {
	jobsCmd.AddCommand(jobsListCmd, jobsGetCmd, jobsCancelCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	if jobService == nil {
		return fmt.Errorf("job service not configured: %w", domain.ErrStoreUnavailable)
	}

	jobs, err := jobService.ListJobs(context.Background())
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}

	if len(jobs) == 0 {
		cmd.Println("No jobs.")
		return nil
	}

	for _, job := range jobs {
		cmd.Printf("%s  %-10s  %s", job.ID, job.Status, job.Filename)
		if job.Status == domain.JobEmbedding && job.TotalChunks > 0 {
			cmd.Printf("  (%d/%d)", job.EmbeddedChunks, job.TotalChunks)
		}
		cmd.Println()
	}
	return nil
}

func runJobsGet(cmd *cobra.Command, args []string) error {
	if jobService == nil {
		return fmt.Errorf("job service not configured: %w", domain.ErrStoreUnavailable)
	}

	job, err := jobService.GetJob(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("getting job: %w", err)
	}

	cmd.Printf("ID:       %s\n", job.ID)
	cmd.Printf("File:     %s (%s)\n", job.Filename, job.SourceType)
	cmd.Printf("Status:   %s\n", job.Status)
	if job.TotalChunks > 0 {
		cmd.Printf("Embedded: %d/%d\n", job.EmbeddedChunks, job.TotalChunks)
	}
	if job.DocumentID != "" {
		cmd.Printf("Document: %s (%d chunks)\n", job.DocumentID, job.ChunkCount)
	}
	if job.Error != "" {
		cmd.Printf("Error:    %s\n", job.Error)
	}
	return nil
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	if jobService == nil {
		return fmt.Errorf("job service not configured: %w", domain.ErrStoreUnavailable)
	}

	cancelled, err := jobService.CancelJob(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("cancelling job: %w", err)
	}
	if !cancelled {
		cmd.Println("Job is not active; nothing to cancel.")
		return nil
	}
	cmd.Println("Cancellation requested.")
	return nil
}
