// Package metrics provides Prometheus metrics for the Idea Forge service.
// Exports HTTP, LLM, forge-run, and WebSocket metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds all Prometheus metric collectors for the service
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// LLM Metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	LLMTokensUsed      *prometheus.CounterVec
	LLMRetriesTotal    *prometheus.CounterVec

	// Forge Metrics
	ForgeRunsTotal    *prometheus.CounterVec
	ForgeRunDuration  prometheus.Histogram
	ArtifactsTotal    *prometheus.CounterVec
	RefinementsTotal  *prometheus.CounterVec
	ActiveForgeRuns   prometheus.Gauge
	QuestionsReturned prometheus.Histogram

	// WebSocket Metrics
	WebSocketConnectionsGauge prometheus.Gauge
	WebSocketMessagesTotal    *prometheus.CounterVec
}

// Get returns the singleton Metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ideaforge_http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ideaforge_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		HTTPRequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ideaforge_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		}),

		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ideaforge_llm_requests_total",
			Help: "Total LLM requests by model and outcome",
		}, []string{"model", "outcome"}),

		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ideaforge_llm_request_duration_seconds",
			Help:    "LLM request latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		}, []string{"model"}),

		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ideaforge_llm_tokens_total",
			Help: "Tokens consumed by model and direction (prompt/completion)",
		}, []string{"model", "direction"}),

		LLMRetriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ideaforge_llm_retries_total",
			Help: "Retry attempts by reason (rate_limit/other)",
		}, []string{"reason"}),

		ForgeRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ideaforge_forge_runs_total",
			Help: "Completed forge runs by terminal status (ready/error)",
		}, []string{"status"}),

		ForgeRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ideaforge_forge_run_duration_seconds",
			Help:    "Wall time of a full forge run",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
		}),

		ArtifactsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ideaforge_artifacts_generated_total",
			Help: "Artifacts generated by expert role",
		}, []string{"role"}),

		RefinementsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ideaforge_refinements_total",
			Help: "Artifact refinements by outcome",
		}, []string{"outcome"}),

		ActiveForgeRuns: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ideaforge_active_forge_runs",
			Help: "Forge runs currently in progress",
		}),

		QuestionsReturned: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ideaforge_clarify_questions_returned",
			Help:    "Question count returned by the clarification step",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8},
		}),

		WebSocketConnectionsGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ideaforge_websocket_connections",
			Help: "Active WebSocket connections",
		}),

		WebSocketMessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ideaforge_websocket_messages_total",
			Help: "WebSocket messages by direction",
		}, []string{"direction"}),
	}
}

// ObserveLLMRequest records a single LLM call
func (m *Metrics) ObserveLLMRequest(model, outcome string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(model, outcome).Inc()
	m.LLMRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// ObserveForgeRun records a completed forge run
func (m *Metrics) ObserveForgeRun(status string, duration time.Duration) {
	m.ForgeRunsTotal.WithLabelValues(status).Inc()
	m.ForgeRunDuration.Observe(duration.Seconds())
}
