package observability

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the service on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsTotal         *prometheus.CounterVec
	adjustmentsTotal    *prometheus.CounterVec
	transitionsTotal    *prometheus.CounterVec
	bulkFailuresTotal   prometheus.Counter
	reconciledTotal     prometheus.Counter
}

// NewMetrics registers all collectors for serviceName.
func NewMetrics(serviceName string) *Metrics {
	prefix := strings.ReplaceAll(serviceName, "-", "_")
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})
	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prefix + "_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
	m.errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_errors_total",
		Help: "Errors returned to clients by code",
	}, []string{"method", "endpoint", "code"})
	m.adjustmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_credit_adjustments_total",
		Help: "Credit adjustments applied by direction",
	}, []string{"direction"})
	m.transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_status_transitions_total",
		Help: "Status transitions by source and target status",
	}, []string{"from", "to", "cause"})
	m.bulkFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_bulk_adjustment_failures_total",
		Help: "Per-user failures inside bulk adjustments",
	})
	m.reconciledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: prefix + "_reconciled_users_total",
		Help: "Users whose status was rewritten by the reconciliation pass",
	})

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.errorsTotal,
		m.adjustmentsTotal,
		m.transitionsTotal,
		m.bulkFailuresTotal,
		m.reconciledTotal,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest observes a finished HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(method, path, code).Inc()
}

// RecordAdjustment counts one applied credit delta.
func (m *Metrics) RecordAdjustment(amount int) {
	if m == nil {
		return
	}
	direction := "zero"
	switch {
	case amount > 0:
		direction = "credit"
	case amount < 0:
		direction = "debit"
	}
	m.adjustmentsTotal.WithLabelValues(direction).Inc()
}

// RecordTransition counts a status change.
func (m *Metrics) RecordTransition(from, to, cause string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to, cause).Inc()
}

// RecordBulkFailure counts a skipped user in a bulk adjustment.
func (m *Metrics) RecordBulkFailure() {
	if m == nil {
		return
	}
	m.bulkFailuresTotal.Inc()
}

// RecordReconciled counts users rewritten by a reconciliation pass.
func (m *Metrics) RecordReconciled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reconciledTotal.Add(float64(n))
}
