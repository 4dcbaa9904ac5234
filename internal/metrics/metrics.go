package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the service. Each instance owns a
// registry so tests can build isolated copies.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	classifications      *prometheus.CounterVec
	classifyDuration     prometheus.Histogram
	classifyPayloadBytes prometheus.Histogram
}

// New registers the service collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "animal_classify",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "animal_classify",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "animal_classify",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "path"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "animal_classify",
			Subsystem: "upstream",
			Name:      "classifications_total",
			Help:      "Classification calls to the external service by outcome.",
		}, []string{"outcome"}),
		classifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "animal_classify",
			Subsystem: "upstream",
			Name:      "classification_duration_seconds",
			Help:      "Latency of classification calls to the external service.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		classifyPayloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "animal_classify",
			Subsystem: "upstream",
			Name:      "payload_bytes",
			Help:      "Decoded size of forwarded image payloads.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.classifications,
		m.classifyDuration,
		m.classifyPayloadBytes,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "/metrics" {
			c.Next()
			return
		}
		if path == "" {
			path = "unmatched"
		}

		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		c.Next()

		m.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordClassification records one upstream call. outcome is "success" or a
// failure kind.
func (m *Metrics) RecordClassification(outcome string, duration time.Duration, payloadBytes int) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.classifications.WithLabelValues(outcome).Inc()
	m.classifyDuration.Observe(duration.Seconds())
	if payloadBytes > 0 {
		m.classifyPayloadBytes.Observe(float64(payloadBytes))
	}
}
