// Package http provides the cross-encoder reranker adapter. It speaks
// to a local sidecar exposing POST /rerank; the sidecar hosts the
// actual cross-encoder model.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8787"
	DefaultModel   = "ms-marco-MiniLM-L-12-v2"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the reranker sidecar client.
type Config struct {
	// BaseURL is the sidecar address (default: http://localhost:8787).
	BaseURL string

	// Model is the cross-encoder model name.
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Reranker scores (query, passage) pairs via the sidecar.
type Reranker struct {
	client  *http.Client
	baseURL string
	model   string
}

// NewReranker creates a new sidecar reranker client.
func NewReranker(cfg Config) *Reranker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Reranker{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// rerankRequest is the sidecar /rerank request format.
type rerankRequest struct {
	Query    string   `json:"query"`
	Passages []string `json:"passages"`
	Model    string   `json:"model"`
}

// rerankResult is one scored passage in the sidecar response.
type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Rerank scores every passage against the query. Results are returned
// sorted by score descending regardless of sidecar ordering.
func (r *Reranker) Rerank(ctx context.Context, query string, passages []string) ([]driven.RerankScore, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Passages: passages, Model: r.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reranker error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("reranker error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	scores := make([]driven.RerankScore, 0, len(results))
	for _, res := range results {
		scores = append(scores, driven.RerankScore{Index: res.Index, Score: res.RelevanceScore})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores, nil
}

// ModelName returns the cross-encoder model name.
func (r *Reranker) ModelName() string {
	return r.model
}

// Ping validates the sidecar is reachable.
func (r *Reranker) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("reranker unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reranker error (status %d)", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (r *Reranker) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
