package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusOnce     sync.Once
	prometheusInstance *PrometheusCollector
)

// PrometheusCollector provides Prometheus metrics for the reversi server.
type PrometheusCollector struct {
	// MCP tool metrics
	toolCallsTotal   *prometheus.CounterVec
	toolErrorsTotal  *prometheus.CounterVec
	toolDurationSecs *prometheus.HistogramVec

	// Rate limit metrics
	rateLimitHitsTotal   *prometheus.CounterVec
	rateLimitChecksTotal prometheus.Counter

	// Search metrics
	searchesTotal        *prometheus.CounterVec
	searchNodesTotal     prometheus.Counter
	searchNodes          prometheus.Histogram
	searchDuration       prometheus.Histogram
	invalidRequestsTotal *prometheus.CounterVec
	engineHealthChecks   *prometheus.CounterVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector (singleton).
func NewPrometheusCollector() *PrometheusCollector {
	prometheusOnce.Do(func() {
		prometheusInstance = &PrometheusCollector{
			toolCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reversi_mcp_tool_calls_total",
					Help: "Total number of MCP tool calls",
				},
				[]string{"tool", "status"},
			),
			toolErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reversi_mcp_tool_errors_total",
					Help: "Total number of MCP tool errors",
				},
				[]string{"tool", "error_type"},
			),
			toolDurationSecs: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "reversi_mcp_tool_duration_seconds",
					Help:    "Duration of MCP tool calls in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),

			rateLimitHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reversi_rate_limit_hits_total",
					Help: "Total number of rate limit hits",
				},
				[]string{"client", "operation"},
			),
			rateLimitChecksTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "reversi_rate_limit_checks_total",
					Help: "Total number of rate limit checks",
				},
			),

			searchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reversi_searches_total",
					Help: "Total number of move searches",
				},
				[]string{"outcome"},
			),
			searchNodesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "reversi_search_nodes_total",
					Help: "Total number of boards visited by the search",
				},
			),
			searchNodes: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "reversi_search_nodes",
					Help:    "Boards visited per search",
					Buckets: prometheus.ExponentialBuckets(1, 4, 10),
				},
			),
			searchDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "reversi_search_duration_seconds",
					Help:    "Duration of move searches in seconds",
					Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
				},
			),
			invalidRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reversi_invalid_requests_total",
					Help: "Total number of rejected move requests",
				},
				[]string{"reason"},
			),
			engineHealthChecks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reversi_engine_health_checks_total",
					Help: "Total number of engine self-checks",
				},
				[]string{"status"},
			),

			httpRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reversi_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			httpRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "reversi_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),
		}
	})
	return prometheusInstance
}

// RecordToolCall records a tool call metric.
func (p *PrometheusCollector) RecordToolCall(tool, status string, durationSecs float64) {
	p.toolCallsTotal.WithLabelValues(tool, status).Inc()
	p.toolDurationSecs.WithLabelValues(tool).Observe(durationSecs)

	if status == "error" {
		p.toolErrorsTotal.WithLabelValues(tool, "general").Inc()
	}
}

// RecordRateLimit records a rate limit check.
func (p *PrometheusCollector) RecordRateLimit(client, operation string, hit bool) {
	p.rateLimitChecksTotal.Inc()
	if hit {
		p.rateLimitHitsTotal.WithLabelValues(client, operation).Inc()
	}
}

// RecordSearch records one completed search.
func (p *PrometheusCollector) RecordSearch(found bool, nodes int, durationSecs float64) {
	outcome := "move"
	if !found {
		outcome = "no_move"
	}
	p.searchesTotal.WithLabelValues(outcome).Inc()
	p.searchNodesTotal.Add(float64(nodes))
	p.searchNodes.Observe(float64(nodes))
	p.searchDuration.Observe(durationSecs)
}

// RecordInvalidRequest records a request rejected before the search.
func (p *PrometheusCollector) RecordInvalidRequest(reason string) {
	p.invalidRequestsTotal.WithLabelValues(reason).Inc()
}

// RecordEngineHealthCheck records a health check result.
func (p *PrometheusCollector) RecordEngineHealthCheck(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	p.engineHealthChecks.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request.
func (p *PrometheusCollector) RecordHTTPRequest(method, path, status string, durationSecs float64) {
	p.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(durationSecs)
}
