// Package metrics exposes Insight Lab's Prometheus metrics on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "insightlab"

// Collector owns every metric the service records.
type Collector struct {
	registry *prometheus.Registry

	simulations      prometheus.Counter
	completions      *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	sessions         prometheus.Gauge
}

// NewCollector creates a Collector. A nil registry gets a fresh one with
// the Go and process collectors attached.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		simulations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Deterministic token simulations served.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completions served, by probability source.",
		}, []string{"source"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_fallbacks_total",
			Help:      "Completions that fell back to the simulator, by reason.",
		}, []string{"reason"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "upstream_requests_total",
			Help:      "Upstream completion calls, by status class.",
		}, []string{"status"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "upstream_duration_seconds",
			Help:      "Upstream completion call latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method and status code.",
		}, []string{"method", "code"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "context_sessions",
			Help:      "Live context-window sessions.",
		}),
	}

	registry.MustRegister(
		c.simulations,
		c.completions,
		c.fallbacks,
		c.upstreamRequests,
		c.upstreamLatency,
		c.httpRequests,
		c.sessions,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) RecordSimulation() { c.simulations.Inc() }

func (c *Collector) RecordCompletion(source string) { c.completions.WithLabelValues(source).Inc() }

func (c *Collector) RecordFallback(reason string) { c.fallbacks.WithLabelValues(reason).Inc() }

// ObserveUpstream records one upstream call.
func (c *Collector) ObserveUpstream(status string, d time.Duration) {
	c.upstreamRequests.WithLabelValues(status).Inc()
	c.upstreamLatency.Observe(d.Seconds())
}

// RecordHTTP counts one served HTTP request.
func (c *Collector) RecordHTTP(method string, code int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// SetSessions reports the number of live context-window sessions.
func (c *Collector) SetSessions(n int) { c.sessions.Set(float64(n)) }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
