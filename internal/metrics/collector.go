// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeSuccess labels generations that produced an image.
const OutcomeSuccess = "success"

// Collector owns a registry and the gateway's metrics.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	providerDuration *prometheus.HistogramVec

	extractionTotal         *prometheus.CounterVec
	extractionNearThreshold prometheus.Counter

	storedBytes prometheus.Counter
}

// NewCollector creates a collector on a fresh registry with Go and
// process collectors attached.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		generationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Generation requests by outcome (success or error kind)",
			},
			[]string{"outcome"},
		),
		generationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "End-to-end generation duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"outcome"},
		),

		providerDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Provider call duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"outcome"},
		),

		extractionTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_strategy_total",
				Help:      "Successful extractions by strategy",
			},
			[]string{"strategy"},
		),
		extractionNearThreshold: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_near_threshold_total",
				Help:      "Fallback extractions whose run was close to the minimum length",
			},
		),

		storedBytes: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stored_image_bytes_total",
				Help:      "Bytes of image data persisted",
			},
		),
	}
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeneration records one pipeline run.
func (c *Collector) RecordGeneration(outcome string, duration time.Duration) {
	c.generationsTotal.WithLabelValues(outcome).Inc()
	c.generationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordProviderCall records one provider call.
func (c *Collector) RecordProviderCall(outcome string, duration time.Duration) {
	c.providerDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordExtraction records a successful extraction.
func (c *Collector) RecordExtraction(strategy string, nearThreshold bool) {
	c.extractionTotal.WithLabelValues(strategy).Inc()
	if nearThreshold {
		c.extractionNearThreshold.Inc()
	}
}

// RecordStored records persisted image bytes.
func (c *Collector) RecordStored(bytes int) {
	c.storedBytes.Add(float64(bytes))
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
