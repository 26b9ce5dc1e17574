// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/retracehq/retrace/blob"
)

// Collector owns a private registry so tests and embedded uses never
// collide with the global default registry.
type Collector struct {
	registry *prometheus.Registry
	metrics  struct {
		httpRequests   *prometheus.CounterVec
		httpDuration   *prometheus.HistogramVec
		blobOps        *prometheus.CounterVec
		blobOpDuration *prometheus.HistogramVec
		ingestBytes    prometheus.Counter
	}
}

func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.metrics.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrace_http_requests_total",
			Help: "HTTP requests served, by route, method and status code",
		},
		[]string{"route", "method", "status"},
	)

	c.metrics.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrace_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	c.metrics.blobOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrace_blob_ops_total",
			Help: "Blob store operations, by operation, mode and outcome",
		},
		[]string{"op", "mode", "outcome"},
	)

	c.metrics.blobOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrace_blob_op_duration_seconds",
			Help:    "Blob store operation latency distribution",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"op", "mode"},
	)

	c.metrics.ingestBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retrace_ingest_bytes_total",
		Help: "Total recording payload bytes accepted for ingest",
	})

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.metrics.httpRequests,
		c.metrics.httpDuration,
		c.metrics.blobOps,
		c.metrics.blobOpDuration,
		c.metrics.ingestBytes,
	)

	return c
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	c.metrics.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.metrics.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveOp records one blob store operation. It satisfies the store's
// stats interface.
func (c *Collector) ObserveOp(op string, mode blob.Mode, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.blobOps.WithLabelValues(op, string(mode), outcome).Inc()
	c.metrics.blobOpDuration.WithLabelValues(op, string(mode)).Observe(elapsed.Seconds())
}

// AddIngestBytes accumulates the size of an accepted recording payload.
func (c *Collector) AddIngestBytes(n int64) {
	c.metrics.ingestBytes.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
