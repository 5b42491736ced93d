// Package metrics provides Prometheus metrics export for the chat-turn core.
//
// All Record methods are safe to call on a nil *PrometheusExporter so
// callers can run without metrics.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/verdant/ai/core/llm"
)

const (
	namespace = "verdant"
	subsystem = "chat"
)

// PrometheusExporter exports chat-turn metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Turn metrics
	turnLatency  *prometheus.HistogramVec
	turnRequests *prometheus.CounterVec
	turnActive   prometheus.Gauge

	// Routing, safety and memory
	routeDecisions     *prometheus.CounterVec
	safetyPlans        *prometheus.CounterVec
	moderationVerdicts *prometheus.CounterVec
	escalations        prometheus.Counter
	memoryOps          *prometheus.CounterVec
	fallbacks          *prometheus.CounterVec

	// LLM token metrics
	llmTokensUsed *prometheus.CounterVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.turnLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "turn_latency_seconds",
			Help:      "Chat turn latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"agent"},
	)

	e.turnRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "turns_total",
			Help:      "Total number of chat turns",
		},
		[]string{"agent", "status"},
	)

	e.turnActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "turns_active",
			Help:      "Number of chat turns in flight",
		},
	)

	e.routeDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "route_decisions_total",
			Help:      "Intent routing decisions by agent and method",
		},
		[]string{"agent", "method"},
	)

	e.safetyPlans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "safety_plans_total",
			Help:      "Safety plans attached to turns, by source",
		},
		[]string{"source"},
	)

	e.moderationVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "moderation_verdicts_total",
			Help:      "Moderation verdicts by risk level",
		},
		[]string{"risk_level"},
	)

	e.escalations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "escalations_total",
			Help:      "Replies the moderator flagged for escalation",
		},
	)

	e.memoryOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "memory_operations_total",
			Help:      "Long-term memory operations",
		},
		[]string{"op", "status"},
	)

	e.fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fallbacks_total",
			Help:      "Auxiliary subsystem failures absorbed by a fallback",
		},
		[]string{"subsystem"},
	)

	e.llmTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed by reply generation",
		},
		[]string{"agent", "token_type"},
	)

	registry.MustRegister(
		e.turnLatency,
		e.turnRequests,
		e.turnActive,
		e.routeDecisions,
		e.safetyPlans,
		e.moderationVerdicts,
		e.escalations,
		e.memoryOps,
		e.fallbacks,
		e.llmTokensUsed,
	)

	return e
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// TurnStarted marks a turn in flight and returns a func that records its outcome.
func (e *PrometheusExporter) TurnStarted() func(agent string, success bool) {
	if e == nil {
		return func(string, bool) {}
	}
	start := time.Now()
	e.turnActive.Inc()
	return func(agent string, success bool) {
		e.turnActive.Dec()
		e.turnRequests.WithLabelValues(agent, statusLabel(success)).Inc()
		e.turnLatency.WithLabelValues(agent).Observe(time.Since(start).Seconds())
	}
}

// RecordRoute records which agent a message was routed to and how.
func (e *PrometheusExporter) RecordRoute(agent, method string) {
	if e == nil {
		return
	}
	e.routeDecisions.WithLabelValues(agent, method).Inc()
}

// RecordSafetyPlan records a safety plan attached to a turn.
func (e *PrometheusExporter) RecordSafetyPlan(source string) {
	if e == nil {
		return
	}
	e.safetyPlans.WithLabelValues(source).Inc()
}

// RecordModeration records a moderation verdict.
func (e *PrometheusExporter) RecordModeration(riskLevel string, escalated bool) {
	if e == nil {
		return
	}
	e.moderationVerdicts.WithLabelValues(riskLevel).Inc()
	if escalated {
		e.escalations.Inc()
	}
}

// RecordMemoryOp records a memory retrieve or remember call.
func (e *PrometheusExporter) RecordMemoryOp(op string, success bool) {
	if e == nil {
		return
	}
	e.memoryOps.WithLabelValues(op, statusLabel(success)).Inc()
}

// RecordFallback records an auxiliary failure that was absorbed.
func (e *PrometheusExporter) RecordFallback(subsystem string) {
	if e == nil {
		return
	}
	e.fallbacks.WithLabelValues(subsystem).Inc()
}

// RecordLLMUsage records token usage of a reply generation call.
func (e *PrometheusExporter) RecordLLMUsage(agent string, stats *llm.LLMCallStats) {
	if e == nil || stats == nil {
		return
	}
	e.llmTokensUsed.WithLabelValues(agent, "prompt").Add(float64(stats.PromptTokens))
	e.llmTokensUsed.WithLabelValues(agent, "completion").Add(float64(stats.CompletionTokens))
	if stats.CacheReadTokens > 0 {
		e.llmTokensUsed.WithLabelValues(agent, "cache_read").Add(float64(stats.CacheReadTokens))
	}
}

// Handler returns the HTTP handler for Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		ErrorLog: slogErrorLogger{},
	})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}

// slogErrorLogger routes promhttp errors into slog.
type slogErrorLogger struct{}

func (slogErrorLogger) Println(v ...any) {
	slog.Error("prometheus handler error", "detail", v)
}
