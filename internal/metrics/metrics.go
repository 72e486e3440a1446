// Package metrics exposes prometheus instruments for ingestion runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure reasons recorded per source.
const (
	ReasonConfig  = "config"
	ReasonFetch   = "fetch"
	ReasonPersist = "persist"
)

// Collector groups the run instruments. A nil *Collector discards everything.
type Collector struct {
	registry   *prometheus.Registry
	discovered *prometheus.CounterVec
	failures   *prometheus.CounterVec
	filtered   *prometheus.CounterVec
	duration   prometheus.Histogram
	lastNew    prometheus.Gauge
}

// New registers the instruments on a dedicated registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		discovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editais",
			Name:      "discovered_total",
			Help:      "Editais persisted for the first time, by source.",
		}, []string{"source"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editais",
			Name:      "source_failures_total",
			Help:      "Sources that failed during a run, by reason.",
		}, []string{"source", "reason"}),
		filtered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editais",
			Name:      "candidates_filtered_total",
			Help:      "Candidates dropped by the relevance filter, by source.",
		}, []string{"source"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "editais",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full ingestion run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		lastNew: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "editais",
			Name:      "last_run_new_items",
			Help:      "New editais persisted by the most recent run.",
		}),
	}
	c.registry.MustRegister(c.discovered, c.failures, c.filtered, c.duration, c.lastNew)
	return c
}

// Discovered adds n new editais for source.
func (c *Collector) Discovered(source string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.discovered.WithLabelValues(source).Add(float64(n))
}

// Failed counts one source failure.
func (c *Collector) Failed(source, reason string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(source, reason).Inc()
}

// Filtered adds n candidates rejected by the relevance filter.
func (c *Collector) Filtered(source string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.filtered.WithLabelValues(source).Add(float64(n))
}

// ObserveRun records the duration and yield of a finished run.
func (c *Collector) ObserveRun(d time.Duration, newItems int) {
	if c == nil {
		return
	}
	c.duration.Observe(d.Seconds())
	c.lastNew.Set(float64(newItems))
}

// Registry returns the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
