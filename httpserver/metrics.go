package httpserver

import (
	metricsPkg "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Replies written, labelled by status code
	RequestsServed metricsPkg.Counter

	// Requests rejected because the work queue was at depth
	RequestsDropped metricsPkg.Counter

	// Current depth of the work queue
	WorkQueueDepth metricsPkg.Gauge
}

var metrics = NopMetrics()

// UseMetrics installs the metrics sink. Call it once, before InitHTTPServer.
func UseMetrics(m *Metrics) {
	metrics = m
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// It registers against the default registry, so call it at most once per
// process.
func PrometheusMetrics() *Metrics {
	return &Metrics{
		RequestsServed: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Subsystem: "http",
			Name:      "requests_served",
			Help:      "Replies written, by status code",
		}, []string{"status"}),
		RequestsDropped: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Subsystem: "http",
			Name:      "requests_dropped",
			Help:      "Requests rejected because the work queue was full",
		}, []string{}),
		WorkQueueDepth: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Subsystem: "http",
			Name:      "work_queue_depth",
			Help:      "Queued requests waiting for a worker",
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		RequestsServed:  discard.NewCounter(),
		RequestsDropped: discard.NewCounter(),
		WorkQueueDepth:  discard.NewGauge(),
	}
}
