// Package prom provides the Prometheus metrics sink for pipeline
// events.
package prom

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.MetricsSink = (*Sink)(nil)

// Sink records pipeline events as Prometheus metrics.
type Sink struct {
	registry *prometheus.Registry

	eventCount    *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	tokenCount    *prometheus.CounterVec
}

// NewSink creates a sink with its own registry, keeping the process
// default registry free of pipeline metrics.
func NewSink() *Sink {
	s := &Sink{
		registry: prometheus.NewRegistry(),
		eventCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragdex_events_total",
				Help: "Total pipeline events by type and model",
			},
			[]string{"type", "model"},
		),
		eventDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragdex_event_duration_seconds",
				Help:    "Pipeline event duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"type", "model"},
		),
		tokenCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragdex_tokens_total",
				Help: "Backend-reported token counts by direction",
			},
			[]string{"type", "model", "direction"},
		),
	}

	s.registry.MustRegister(s.eventCount, s.eventDuration, s.tokenCount)
	s.registry.MustRegister(collectors.NewGoCollector())
	return s
}

// Record counts one pipeline event. Never fails.
func (s *Sink) Record(_ context.Context, ev driven.MetricsEvent) {
	s.eventCount.WithLabelValues(ev.Type, ev.Model).Inc()
	s.eventDuration.WithLabelValues(ev.Type, ev.Model).Observe(ev.Duration.Seconds())

	if ev.PromptTokens > 0 {
		s.tokenCount.WithLabelValues(ev.Type, ev.Model, "prompt").Add(float64(ev.PromptTokens))
	}
	if ev.CompletionTokens > 0 {
		s.tokenCount.WithLabelValues(ev.Type, ev.Model, "completion").Add(float64(ev.CompletionTokens))
	}
}

// Handler returns the /metrics HTTP handler for this sink's registry.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
