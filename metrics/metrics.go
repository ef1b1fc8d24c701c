// Package metrics exposes Prometheus instrumentation for a running harness
// process: how many requests were dispatched, filtered, dropped, timed out,
// or failed, and how many handlers are in flight right now. It is a
// supplemented feature outside the core concurrency substrate: the harness
// package reaches it only through the narrow harness.Metrics interface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles the metrics a single harness process registers and
// implements harness.Metrics, so it can be passed straight to
// ServerLoop.WithMetrics. Construct one with NewCollector.
type Collector struct {
	dispatched  *prometheus.CounterVec
	filtered    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	timedOut    prometheus.Counter
	failed      *prometheus.CounterVec
	activeCalls prometheus.Gauge
}

// NewCollector builds and registers a fresh Collector against reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the global default
// registry; passing prometheus.DefaultRegisterer matches the teacher's
// production wiring.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		dispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpcharness",
			Name:      "requests_dispatched_total",
			Help:      "Requests successfully dispatched to a service method.",
		}, []string{"method"}),
		filtered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpcharness",
			Name:      "requests_filtered_total",
			Help:      "Requests rejected because they matched an active method filter.",
		}, []string{"method"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpcharness",
			Name:      "requests_dropped_total",
			Help:      "Requests silently dropped while an actor was sleeping with drop=true.",
		}, []string{"method"}),
		timedOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rpcharness",
			Name:      "client_calls_timed_out_total",
			Help:      "Client calls that hit their deadline with no response.",
		}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpcharness",
			Name:      "requests_failed_total",
			Help:      "Requests whose handler returned an error.",
		}, []string{"method"}),
		activeCalls: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rpcharness",
			Name:      "handlers_in_flight",
			Help:      "Number of request handlers currently executing across all actors.",
		}),
	}
}

// The methods below satisfy harness.Metrics.

func (c *Collector) Dispatched(method string) { c.dispatched.WithLabelValues(method).Inc() }
func (c *Collector) Filtered(method string)   { c.filtered.WithLabelValues(method).Inc() }
func (c *Collector) Dropped(method string)    { c.dropped.WithLabelValues(method).Inc() }
func (c *Collector) Failed(method string)     { c.failed.WithLabelValues(method).Inc() }
func (c *Collector) ActiveCallsInc()          { c.activeCalls.Inc() }
func (c *Collector) ActiveCallsDec()          { c.activeCalls.Dec() }

// ClientTimedOut records a client call that hit ErrTimeout. ClientStub has
// no Metrics hook of its own (it is per-call and short-lived); callers that
// want this counted call it directly from their own retry/timeout handling.
func (c *Collector) ClientTimedOut() { c.timedOut.Inc() }
