// Package metrics exposes Prometheus instrumentation for the aggregation,
// refresh and provider paths.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/wildfire-analysis/internal/climate"
)

// Metrics implements climate.Recorder, wildfire.Recorder and providers.Observer.
type Metrics struct {
	namespace string
	registry  *prometheus.Registry
	runtime   bool

	recordsAggregated *prometheus.CounterVec
	recordsSkipped    *prometheus.CounterVec
	refreshes         *prometheus.CounterVec
	providerRequests  *prometheus.CounterVec
	providerLatency   *prometheus.HistogramVec
	firesTotal        prometheus.Gauge
	firesKept         prometheus.Gauge
}

// Option applies a configuration option to Metrics.
type Option func(*Metrics)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Metrics) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(m *Metrics) {
		m.runtime = true
	}
}

// New creates Metrics on a private registry.
func New(opts ...Option) *Metrics {
	m := &Metrics{
		namespace: "wildfire_analysis",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.runtime {
		m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	f := promauto.With(m.registry)
	m.recordsAggregated = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "records_aggregated_total",
		Help:      "Records folded into an aggregation index.",
	}, []string{"dataset"})
	m.recordsSkipped = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "records_skipped_total",
		Help:      "Records excluded from aggregation, by reason.",
	}, []string{"dataset", "reason"})
	m.refreshes = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "refreshes_total",
		Help:      "Dataset refresh attempts, by result.",
	}, []string{"dataset", "result"})
	m.providerRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "provider_requests_total",
		Help:      "Outbound provider attempts, by outcome.",
	}, []string{"provider", "outcome"})
	m.providerLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Outbound provider attempt latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})
	m.firesTotal = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "wildfires_fetched",
		Help:      "Perimeters in the latest fetch.",
	})
	m.firesKept = f.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "wildfires_kept",
		Help:      "Perimeters in the latest snapshot after the year filter.",
	})
	return m
}

func (m *Metrics) ObserveAggregation(dataset string, stats climate.Stats) {
	m.recordsAggregated.WithLabelValues(dataset).Add(float64(stats.Aggregated))
	m.recordsSkipped.WithLabelValues(dataset, "date").Add(float64(stats.SkippedDate))
	m.recordsSkipped.WithLabelValues(dataset, "value").Add(float64(stats.SkippedValue))
}

func (m *Metrics) ObserveRefresh(dataset string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshes.WithLabelValues(dataset, result).Inc()
}

func (m *Metrics) ObserveFires(total, kept int) {
	m.firesTotal.Set(float64(total))
	m.firesKept.Set(float64(kept))
}

func (m *Metrics) ObserveRequest(provider, outcome string, elapsed time.Duration) {
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
