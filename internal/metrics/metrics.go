package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/socialsync/socialsync/pkg/headers"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// RequestLatency tracks HTTP request latency by endpoint and method
	RequestLatency *prometheus.HistogramVec
	// HTTPRequestsTotal total HTTP requests
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestsInFlight current HTTP requests being processed
	HTTPRequestsInFlight prometheus.Gauge
	// ErrorCounter counts errors by type and endpoint
	ErrorCounter *prometheus.CounterVec
	// UpstreamRequests counts platform API calls by status code
	UpstreamRequests *prometheus.CounterVec
	// UpstreamLatency tracks platform API latency
	UpstreamLatency *prometheus.HistogramVec
	// UpstreamQuotaRemaining is the last reported share of each platform's rate limit window
	UpstreamQuotaRemaining *prometheus.GaugeVec
	// ConnectAttempts counts finished OAuth connect flows
	ConnectAttempts *prometheus.CounterVec
	// AnalyticsAggregations counts overview aggregations
	AnalyticsAggregations *prometheus.CounterVec
	// TokenRefreshes counts token refreshes before analytics calls
	TokenRefreshes *prometheus.CounterVec
	// AIRequests counts generative AI calls
	AIRequests *prometheus.CounterVec
	// ConnectedAccounts is the number of stored accounts, sampled by the server
	ConnectedAccounts prometheus.Gauge
	// registry is the custom registry for this metrics instance
	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		ErrorCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"type", "endpoint", "method"},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of platform API requests",
			},
			[]string{"platform", "operation", "status"},
		),
		UpstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Platform API request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"platform", "operation"},
		),
		UpstreamQuotaRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "upstream_quota_remaining_percent",
				Help:      "Remaining platform API rate limit as reported by response headers",
			},
			[]string{"platform"},
		),
		ConnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_attempts_total",
				Help:      "Total number of completed account connect flows",
			},
			[]string{"platform", "outcome"},
		),
		AnalyticsAggregations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_aggregations_total",
				Help:      "Total number of analytics overview aggregations",
			},
			[]string{"outcome"},
		),
		TokenRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refresh_total",
				Help:      "Total number of platform token refreshes",
			},
			[]string{"platform", "outcome"},
		),
		AIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_requests_total",
				Help:      "Total number of generative AI requests",
			},
			[]string{"operation", "outcome"},
		),
		ConnectedAccounts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connected_accounts",
				Help:      "Number of stored platform accounts",
			},
		),
	}

	// Register metrics with custom registry
	registry.MustRegister(
		m.RequestLatency,
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.ErrorCounter,
		m.UpstreamRequests,
		m.UpstreamLatency,
		m.UpstreamQuotaRemaining,
		m.ConnectAttempts,
		m.AnalyticsAggregations,
		m.TokenRefreshes,
		m.AIRequests,
		m.ConnectedAccounts,
	)

	return m
}

// Handler returns a Prometheus handler for these metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequestLatency records the latency of an HTTP request
func (m *Metrics) RecordRequestLatency(endpoint, method, status string, durationSeconds float64) {
	m.RequestLatency.WithLabelValues(endpoint, method, status).Observe(durationSeconds)
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, endpoint, method string) {
	m.ErrorCounter.WithLabelValues(errorType, endpoint, method).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint, method, status string) {
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// IncHTTPRequestsInFlight increments the in-flight requests counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight requests counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// ObserveUpstream matches platforms.Observer. A zero status means the
// request never got a response.
func (m *Metrics) ObserveUpstream(platform, operation string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequests.WithLabelValues(platform, operation, label).Inc()
	m.UpstreamLatency.WithLabelValues(platform, operation).Observe(elapsed.Seconds())
}

// ObserveQuota matches platforms.QuotaObserver.
func (m *Metrics) ObserveQuota(q headers.Quota) {
	m.UpstreamQuotaRemaining.WithLabelValues(string(q.Platform)).Set(q.RemainingPercent())
}

// RecordConnect records a finished connect flow
func (m *Metrics) RecordConnect(platform, outcome string) {
	m.ConnectAttempts.WithLabelValues(platform, outcome).Inc()
}

// RecordAggregation records an overview aggregation
func (m *Metrics) RecordAggregation(outcome string) {
	m.AnalyticsAggregations.WithLabelValues(outcome).Inc()
}

// RecordTokenRefresh records a token refresh attempt
func (m *Metrics) RecordTokenRefresh(platform, outcome string) {
	m.TokenRefreshes.WithLabelValues(platform, outcome).Inc()
}

// RecordAI records a generative AI call
func (m *Metrics) RecordAI(operation, outcome string) {
	m.AIRequests.WithLabelValues(operation, outcome).Inc()
}

// SetConnectedAccounts sets the stored account gauge
func (m *Metrics) SetConnectedAccounts(n int) {
	m.ConnectedAccounts.Set(float64(n))
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
