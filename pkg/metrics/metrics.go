// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks processed engine requests by operation and outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_requests_total",
			Help: "Total engine requests processed",
		},
		[]string{"operation", "outcome"},
	)

	// StageDuration tracks how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"stage"},
	)

	// LLMRequestsTotal tracks LLM invocations by purpose.
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total LLM completion requests",
		},
		[]string{"provider", "purpose", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// RetrievedDocuments tracks how many documents each retrieval returned.
	RetrievedDocuments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrieval_documents",
			Help:    "Documents returned per retrieval",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12},
		},
	)

	// TranslationsTotal tracks answers translated to the human's language.
	TranslationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "translations_total",
			Help: "Total answers translated",
		},
	)

	// SourcesEmitted tracks attributed sources per response.
	SourcesEmitted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_sources",
			Help:    "Attributed sources per response",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8},
		},
	)

	// IngestedChunks tracks chunks written by the ingestion job.
	IngestedChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingested_chunks_total",
			Help: "Total chunks written to the vector store",
		},
		[]string{"knowledge_base"},
	)

	// HTTPRequestDuration tracks ops endpoint request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path", "status"},
	)
)

// RecordRequest records the outcome of one engine request.
func RecordRequest(operation, outcome string) {
	RequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordStage records the duration of one pipeline stage.
func RecordStage(stage string, seconds float64) {
	StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordLLMCall records an LLM completion request.
func RecordLLMCall(provider, purpose, status string) {
	LLMRequestsTotal.WithLabelValues(provider, purpose, status).Inc()
}

// RecordTokens records token usage of a completion.
func RecordTokens(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordHTTPRequest records metrics for an ops HTTP request.
func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
}
