// Package metrics exposes prometheus collectors fed by activator events.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/mountgrid/internal/activator"
)

const namespace = "mountgrid"

// Metrics implements activator.Observer on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	failures      *prometheus.CounterVec
	mounted       *prometheus.GaugeVec
	batches       prometheus.Counter
	batchDuration prometheus.Histogram
}

// New creates the collectors, including the Go runtime and process ones.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Status transitions by application and target status.",
		}, []string{"application", "status"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "failures_total",
			Help:      "Applications marked BROKEN by failure kind.",
		}, []string{"application", "kind"}),
		mounted: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "mounted",
			Help:      "1 while the application is MOUNTED.",
		}, []string{"application"}),
		batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activator",
			Name:      "batches_total",
			Help:      "Processed location changes.",
		}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "activator",
			Name:      "batch_duration_seconds",
			Help:      "Time to settle every application of a location change.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
	}
}

// StatusChanged implements activator.Observer.
func (m *Metrics) StatusChanged(ev activator.StatusChange) {
	m.transitions.WithLabelValues(ev.Name, ev.To.String()).Inc()

	switch {
	case ev.To == activator.Mounted:
		m.mounted.WithLabelValues(ev.Name).Set(1)
	case ev.From == activator.Mounted:
		m.mounted.WithLabelValues(ev.Name).Set(0)
	}

	if ev.To == activator.Broken {
		m.failures.WithLabelValues(ev.Name, FailureKind(ev.Err)).Inc()
	}
}

// BatchCompleted implements activator.Observer.
func (m *Metrics) BatchCompleted(res activator.BatchResult) {
	m.batches.Inc()
	m.batchDuration.Observe(res.Duration.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// FailureKind classifies the error that broke an application.
func FailureKind(err error) string {
	var loadErr *activator.LoadError
	var lifecycleErr *activator.LifecycleError
	switch {
	case errors.As(err, &loadErr):
		return "load"
	case errors.As(err, &lifecycleErr):
		return lifecycleErr.Op
	default:
		return "unknown"
	}
}
