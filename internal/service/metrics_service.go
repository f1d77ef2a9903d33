package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	submissions     prometheus.Counter
	payments        *prometheus.CounterVec
	paymentDuration prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	exportJobs      *prometheus.CounterVec
}

// NewMetricsService registers the portal's Prometheus collectors on a
// dedicated registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_applications_submitted_total",
		Help: "Total number of enrollment applications submitted",
	})

	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_payments_total",
		Help: "Total number of processed enrollment fee payments",
	}, []string{"method"})

	paymentDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "enrollment_payment_duration_seconds",
		Help:    "Duration of payment settlement in seconds",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_jobs_total",
		Help: "Total export jobs by outcome",
	}, []string{"format", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissions, payments, paymentDuration, cacheHits, cacheMisses, exportJobs, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		payments:        payments,
		paymentDuration: paymentDuration,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		exportJobs:      exportJobs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-route request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordApplicationSubmitted counts a completed enrollment submission.
func (m *MetricsService) RecordApplicationSubmitted() {
	if m == nil {
		return
	}
	m.submissions.Inc()
}

// RecordPayment counts a settled payment and its settlement time.
func (m *MetricsService) RecordPayment(method string, duration time.Duration) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method).Inc()
	m.paymentDuration.Observe(duration.Seconds())
}

// RecordCacheOperation counts summary cache hits and misses.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordExportJob counts an export job outcome ("completed" or "failed").
func (m *MetricsService) RecordExportJob(format, outcome string) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(format, outcome).Inc()
}
