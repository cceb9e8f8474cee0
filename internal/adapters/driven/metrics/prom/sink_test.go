package prom

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

func TestSink_RecordAndExpose(t *testing.T) {
	sink := NewSink()

	sink.Record(context.Background(), driven.MetricsEvent{
		Type:             "query",
		Model:            "llama3.2",
		Duration:         2 * time.Second,
		PromptTokens:     100,
		CompletionTokens: 50,
	})
	sink.Record(context.Background(), driven.MetricsEvent{
		Type:  "ingest",
		Model: "nomic-embed-text",
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	sink.Handler().ServeHTTP(rec, req)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, `ragdex_events_total{model="llama3.2",type="query"} 1`)
	assert.Contains(t, out, `ragdex_events_total{model="nomic-embed-text",type="ingest"} 1`)
	assert.Contains(t, out, `ragdex_tokens_total{direction="prompt",model="llama3.2",type="query"} 100`)
	assert.Contains(t, out, `ragdex_tokens_total{direction="completion",model="llama3.2",type="query"} 50`)
}

func TestSink_ZeroTokensNotCounted(t *testing.T) {
	sink := NewSink()
	sink.Record(context.Background(), driven.MetricsEvent{Type: "tag_generation"})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	sink.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Body)
	assert.NotContains(t, string(body), "ragdex_tokens_total")
}
