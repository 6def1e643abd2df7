package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictTotal   prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	expandDuration  prometheus.Observer
}

// NewMetricsService registers core Prometheus collectors.
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

	conflictTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_conflicts_total",
		Help: "Total bookings rejected because the classroom was taken",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agenda_cache_hits_total",
		Help: "Total agenda cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agenda_cache_misses_total",
		Help: "Total agenda cache misses",
	})

	expandDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recurrence_expand_duration_seconds",
		Help:    "Duration of recurrence expansion during validation",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, conflictTotal, cacheHits, cacheMisses, expandDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictTotal:   conflictTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		expandDuration:  expandDuration,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordConflict counts a rejected booking.
func (m *MetricsService) RecordConflict() {
	if m == nil {
		return
	}
	m.conflictTotal.Inc()
}

// RecordCacheLookup counts an agenda cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveExpand records how long one conflict validation took.
func (m *MetricsService) ObserveExpand(duration time.Duration) {
	if m == nil || m.expandDuration == nil {
		return
	}
	m.expandDuration.Observe(duration.Seconds())
}
