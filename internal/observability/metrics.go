// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fallback metrics
	FallbackAttempts  *prometheus.CounterVec
	FallbackExhausted *prometheus.CounterVec

	// Upstream metrics
	ProviderConnects *prometheus.CounterVec
	RPCCallLatency   *prometheus.HistogramVec
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec

	// Research metrics
	ResearchRuns         *prometheus.CounterVec
	ResearchStepDuration *prometheus.HistogramVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_intel"
	}

	return &Metrics{
		FallbackAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fallback",
			Name:      "attempts_total",
			Help:      "Strategy invocations by plan, strategy and result",
		}, []string{"plan", "strategy", "result"}),
		FallbackExhausted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fallback",
			Name:      "exhausted_total",
			Help:      "Fallback plans that failed every strategy in every cycle",
		}, []string{"plan"}),

		ProviderConnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "connects_total",
			Help:      "RPC provider liveness probes by result",
		}, []string{"result"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Solana RPC call latency",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "REST upstream requests by service and status class",
		}, []string{"service", "status"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "REST upstream latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),

		ResearchRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "research",
			Name:      "runs_total",
			Help:      "Research workflow runs by finish reason",
		}, []string{"finish_reason"}),
		ResearchStepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "research",
			Name:      "step_duration_seconds",
			Help:      "Research step duration by step and final status",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"step", "status"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by keyspace and result",
		}, []string{"keyspace", "result"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFallbackAttempt records one strategy invocation.
func RecordFallbackAttempt(plan, strategy string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	DefaultMetrics.FallbackAttempts.WithLabelValues(plan, strategy, result).Inc()
}

// RecordFallbackExhausted records a plan that ran out of strategies and cycles.
func RecordFallbackExhausted(plan string) {
	DefaultMetrics.FallbackExhausted.WithLabelValues(plan).Inc()
}

// RecordProviderProbe records a provider liveness probe.
func RecordProviderProbe(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	DefaultMetrics.ProviderConnects.WithLabelValues(result).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordUpstream records a REST upstream call. status is the HTTP status code,
// or 0 when no response was received.
func RecordUpstream(service string, status int, seconds float64) {
	class := "error"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 200:
		class = "2xx"
	}
	DefaultMetrics.UpstreamRequests.WithLabelValues(service, class).Inc()
	DefaultMetrics.UpstreamLatency.WithLabelValues(service).Observe(seconds)
}

// RecordResearchRun records a finished research workflow.
func RecordResearchRun(finishReason string) {
	DefaultMetrics.ResearchRuns.WithLabelValues(finishReason).Inc()
}

// RecordResearchStep records the duration of one research step.
func RecordResearchStep(step, status string, seconds float64) {
	DefaultMetrics.ResearchStepDuration.WithLabelValues(step, status).Observe(seconds)
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(keyspace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(keyspace, result).Inc()
}
