// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMRequestDuration tracks reasoning and extraction call duration.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM request duration",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"purpose", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// ToolCallsTotal counts tool dispatches.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Tool invocations requested by the model",
		},
		[]string{"tool", "status"},
	)

	// MemoryReconciliationsTotal counts reconciliation cycles by outcome.
	MemoryReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_reconciliations_total",
			Help: "Long-term memory reconciliation cycles",
		},
		[]string{"outcome"},
	)

	// InboundMessagesTotal counts webhook messages by kind.
	InboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_messages_total",
			Help: "Inbound WhatsApp messages",
		},
		[]string{"kind"},
	)

	// OutboundDeliveriesTotal counts reply deliveries.
	OutboundDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_deliveries_total",
			Help: "Outbound WhatsApp deliveries",
		},
		[]string{"status"},
	)

	// HandoversTotal counts escalations to a human.
	HandoversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "handovers_total",
			Help: "Conversations handed over to a human",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for a completed LLM call.
func RecordLLMCall(purpose, model, status string, duration float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(purpose, status).Observe(duration)
	if model == "" {
		return
	}
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordToolCall records the outcome of a tool dispatch.
func RecordToolCall(tool, status string) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
}

// RecordReconciliation records a memory reconciliation outcome.
func RecordReconciliation(outcome string) {
	MemoryReconciliationsTotal.WithLabelValues(outcome).Inc()
}
