// Package metrics exposes the Prometheus instrumentation the transaction
// driver reports against, following the registry-per-collector-set idiom
// of core/system_health_logging.go.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors bundles the gauges/counters/histograms a replay call updates.
// Construct one with New and thread it through runtimectx.RuntimeContext
// (or pass it explicitly) rather than reaching for a package global.
type Collectors struct {
	registry *prometheus.Registry

	phasesTotal    *prometheus.CounterVec
	phaseDuration  *prometheus.HistogramVec
	rejectedTotal  prometheus.Counter
	fatalTotal     *prometheus.CounterVec
}

// New builds a fresh registry and registers every collector.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{registry: reg}

	c.phasesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_phases_total",
		Help: "Number of phase executions, by phase and outcome.",
	}, []string{"phase", "outcome"})

	c.phaseDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tx_phase_duration_seconds",
		Help:    "Wall-clock duration of a single phase execution.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	c.rejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tx_external_rejected_total",
		Help: "Number of external-in messages rejected before a transaction was committed.",
	})

	c.fatalTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tx_fatal_total",
		Help: "Number of fatal replay failures, by class (config, invariant).",
	}, []string{"class"})

	reg.MustRegister(c.phasesTotal, c.phaseDuration, c.rejectedTotal, c.fatalTotal)
	return c
}

// ObservePhase records one phase execution's outcome and duration.
func (c *Collectors) ObservePhase(phase, outcome string, seconds float64) {
	if c == nil {
		return
	}
	c.phasesTotal.WithLabelValues(phase, outcome).Inc()
	c.phaseDuration.WithLabelValues(phase).Observe(seconds)
}

// ObserveRejected records a non-fatal external rejection.
func (c *Collectors) ObserveRejected() {
	if c == nil {
		return
	}
	c.rejectedTotal.Inc()
}

// ObserveFatal records a fatal failure of the given class ("config" or
// "invariant").
func (c *Collectors) ObserveFatal(class string) {
	if c == nil {
		return
	}
	c.fatalTotal.WithLabelValues(class).Inc()
}

// Handler exposes the registered collectors for an HTTP /metrics endpoint,
// mirroring core/system_health_logging.go's StartMetricsServer wiring.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer exposes /metrics on addr, the same shape as
// core/system_health_logging.go's StartMetricsServer: callers own the
// returned server's lifecycle and should Shutdown it when done.
func (c *Collectors) StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
