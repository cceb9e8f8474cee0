// Package ollama provides the inference backend adapter using Ollama's
// HTTP API. Embedding uses the batch /api/embed endpoint; generation
// uses /api/generate with optional NDJSON streaming.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.InferenceService = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultLLMModel       = "llama3.2"
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultTimeout        = 120 * time.Second
)

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// LLMModel is the default generation model (default: llama3.2).
	LLMModel string

	// EmbeddingModel is the embedding model (default: nomic-embed-text).
	EmbeddingModel string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Client talks to a local Ollama instance.
type Client struct {
	client         *http.Client
	baseURL        string
	llmModel       string
	embeddingModel string
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = DefaultLLMModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client:         &http.Client{Timeout: cfg.Timeout},
		baseURL:        cfg.BaseURL,
		llmModel:       cfg.LLMModel,
		embeddingModel: cfg.EmbeddingModel,
	}
}

// embedRequest is the Ollama /api/embed request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the Ollama /api/embed response format.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

// generateResponse is one Ollama /api/generate response object. For
// streamed calls every line is one object; counters arrive on the
// final object with done=true.
type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	LoadDuration    int64  `json:"load_duration"`
	PromptEvalDur   int64  `json:"prompt_eval_duration"`
	EvalDuration    int64  `json:"eval_duration"`
	TotalDuration   int64  `json:"total_duration"`
}

// Embed generates embeddings for a batch of texts with the given
// task prefix prepended to each.
func (c *Client) Embed(ctx context.Context, texts []string, prefix string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = prefix + t
	}

	var embResp embedResponse
	if err := c.postJSON(ctx, "/api/embed", embedRequest{Model: c.embeddingModel, Input: input}, &embResp); err != nil {
		return nil, err
	}

	if len(embResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(embResp.Embeddings), len(texts))
	}
	return embResp.Embeddings, nil
}

// Generate produces a complete answer in one call.
func (c *Client) Generate(ctx context.Context, req driven.GenerateRequest) (*driven.GenerateResult, error) {
	model := req.Model
	if model == "" {
		model = c.llmModel
	}

	var genResp generateResponse
	err := c.postJSON(ctx, "/api/generate", generateRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}, &genResp)
	if err != nil {
		return nil, err
	}

	return &driven.GenerateResult{
		Response: genResp.Response,
		Model:    genResp.Model,
		Stats:    statsFrom(genResp),
	}, nil
}

// GenerateStream produces an answer incrementally. The response body is
// NDJSON, one object per token; fn is invoked for every non-empty piece.
func (c *Client) GenerateStream(ctx context.Context, req driven.GenerateRequest, fn driven.TokenFunc) (*driven.GenerateResult, error) {
	model := req.Model
	if model == "" {
		model = c.llmModel
	}

	body, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	result := &driven.GenerateResult{Model: model}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk generateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("decode stream line: %w", err)
		}

		if chunk.Response != "" {
			if err := fn(chunk.Response); err != nil {
				return nil, fmt.Errorf("token callback: %w", err)
			}
		}

		if chunk.Done {
			if chunk.Model != "" {
				result.Model = chunk.Model
			}
			result.Stats = statsFrom(chunk)
			return result, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}
	return result, nil
}

// tagsResponse is the Ollama /api/tags response format.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the models available on the backend.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

// pullRequest is the Ollama /api/pull request format.
type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// EnsureModel pulls the model if it is not already available.
func (c *Client) EnsureModel(ctx context.Context, model string) error {
	models, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m == model {
			return nil
		}
	}

	var status struct {
		Status string `json:"status"`
	}
	if err := c.postJSON(ctx, "/api/pull", pullRequest{Name: model, Stream: false}, &status); err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	return nil
}

// Ping validates the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
	}
	return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
}

func statsFrom(resp generateResponse) driven.GenerateStats {
	return driven.GenerateStats{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		LoadDuration:     time.Duration(resp.LoadDuration),
		PromptEvalTime:   time.Duration(resp.PromptEvalDur),
		EvalTime:         time.Duration(resp.EvalDuration),
		TotalTime:        time.Duration(resp.TotalDuration),
	}
}
