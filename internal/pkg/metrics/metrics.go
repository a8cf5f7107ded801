package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SubmissionsTotal       *prometheus.CounterVec
	SubmittedBytesTotal    prometheus.Counter
	StorageOperations      *prometheus.CounterVec
	OrphanedBlobsTotal     prometheus.Counter
	InboxOperationsTotal   *prometheus.CounterVec
	BillingEventsTotal     *prometheus.CounterVec
	CounterReconciliations *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedrop_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filedrop_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedrop_submissions_total",
				Help: "Files processed by the intake flow",
			},
			[]string{"result"},
		),
		SubmittedBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_submitted_bytes_total",
			Help: "Bytes accepted by the intake flow",
		}),
		StorageOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedrop_storage_operations_total",
				Help: "Object store operations",
			},
			[]string{"operation", "result"},
		),
		OrphanedBlobsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filedrop_orphaned_blobs_total",
			Help: "Blobs left behind because a cascade delete could not remove them",
		}),
		InboxOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedrop_inbox_operations_total",
				Help: "Inbox lifecycle operations",
			},
			[]string{"operation", "result"},
		),
		BillingEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedrop_billing_events_total",
				Help: "Payment processor webhook events",
			},
			[]string{"type", "result"},
		),
		CounterReconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filedrop_counter_reconciliations_total",
				Help: "Profile counter reconciliations",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SubmissionsTotal,
		m.SubmittedBytesTotal,
		m.StorageOperations,
		m.OrphanedBlobsTotal,
		m.InboxOperationsTotal,
		m.BillingEventsTotal,
		m.CounterReconciliations,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Submission(result string, bytes int64) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.SubmittedBytesTotal.Add(float64(bytes))
	}
}

func (m *Metrics) Storage(operation string, err error) {
	if m == nil {
		return
	}
	m.StorageOperations.WithLabelValues(operation, result(err)).Inc()
}

func (m *Metrics) OrphanedBlob() {
	if m == nil {
		return
	}
	m.OrphanedBlobsTotal.Inc()
}

func (m *Metrics) Inbox(operation string, err error) {
	if m == nil {
		return
	}
	m.InboxOperationsTotal.WithLabelValues(operation, result(err)).Inc()
}

func (m *Metrics) BillingEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.BillingEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) Reconciliation(err error) {
	if m == nil {
		return
	}
	m.CounterReconciliations.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
