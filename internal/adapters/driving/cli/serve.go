package cli

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdex/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose Prometheus metrics over HTTP",
	Long: `Runs an HTTP server exposing pipeline metrics at /metrics. Intended
to run alongside long ingestion sessions; queries and ingests from other
terminals share the same database.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:9090", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if metricsHandler == nil {
		return errors.New("metrics not configured")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              serveAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	cmd.Printf("Serving metrics on http://%s/metrics\n", serveAddr)
	logger.Info("Metrics server listening on %s", serveAddr)
	return server.ListenAndServe()
}
