// Package metrics provides Prometheus metrics for the reconciliation service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	ComparisonsTotal    prometheus.Counter
	SyncsTotal          *prometheus.CounterVec
	IdentifierWrites    *prometheus.CounterVec
	DependantsCreated   prometheus.Counter
	DependantsResolved  *prometheus.CounterVec
	Registrations       prometheus.Counter
	RegistryLookups     *prometheus.CounterVec
	SyncDuration        prometheus.Histogram
	OutboxPending       prometheus.Gauge
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		ComparisonsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "record_comparisons_total",
			Help: "Total registry-to-local record comparisons served",
		}),
		SyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "record_syncs_total",
			Help: "Total selective sync attempts by outcome",
		}, []string{"outcome"}),
		IdentifierWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identifier_writes_total",
			Help: "Total identifier writes by outcome",
		}, []string{"outcome"}),
		DependantsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dependants_created_total",
			Help: "Total dependant persons created from registry records",
		}),
		DependantsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dependants_resolved_total",
			Help: "Total dependant resolutions by final state",
		}, []string{"state"}),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patients_registered_total",
			Help: "Total new patients registered from registry records",
		}),
		RegistryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_lookups_total",
			Help: "Total client registry lookups by outcome",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "record_sync_duration_seconds",
			Help:    "Selective sync duration including identifier fan-out",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
	}

	prometheus.MustRegister(
		m.ComparisonsTotal,
		m.SyncsTotal,
		m.IdentifierWrites,
		m.DependantsCreated,
		m.DependantsResolved,
		m.Registrations,
		m.RegistryLookups,
		m.SyncDuration,
		m.OutboxPending,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
