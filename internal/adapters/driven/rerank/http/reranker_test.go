package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReranker(t *testing.T, handler http.Handler) *Reranker {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewReranker(Config{BaseURL: server.URL, Model: "test-cross-encoder"})
}

func TestReranker_Rerank(t *testing.T) {
	var gotReq rerankRequest
	reranker := newTestReranker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		// Sidecar returns scores in input order; client must sort.
		json.NewEncoder(w).Encode([]rerankResult{
			{Index: 0, RelevanceScore: 0.2},
			{Index: 1, RelevanceScore: 0.9},
			{Index: 2, RelevanceScore: 0.5},
		})
	}))

	scores, err := reranker.Rerank(context.Background(), "oil change", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, 1, scores[0].Index)
	assert.Equal(t, 0.9, scores[0].Score)
	assert.Equal(t, 2, scores[1].Index)
	assert.Equal(t, 0, scores[2].Index)

	assert.Equal(t, "oil change", gotReq.Query)
	assert.Equal(t, []string{"a", "b", "c"}, gotReq.Passages)
	assert.Equal(t, "test-cross-encoder", gotReq.Model)
}

func TestReranker_RerankEmptyPassages(t *testing.T) {
	reranker := NewReranker(Config{BaseURL: "http://localhost:1"})
	scores, err := reranker.Rerank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestReranker_RerankServerError(t *testing.T) {
	reranker := newTestReranker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))

	_, err := reranker.Rerank(context.Background(), "query", []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestReranker_Ping(t *testing.T) {
	reranker := newTestReranker(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	assert.NoError(t, reranker.Ping(context.Background()))
}

func TestReranker_ModelName(t *testing.T) {
	reranker := NewReranker(Config{})
	assert.Equal(t, DefaultModel, reranker.ModelName())
}
