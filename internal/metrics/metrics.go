// Package metrics holds the Prometheus collectors for the ledger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

// Ledger groups every collector. A nil *Ledger is valid and records nothing.
type Ledger struct {
	registry *prometheus.Registry

	ExpensesAdded   prometheus.Counter
	ExpensesDeleted prometheus.Counter
	StorageErrors   *prometheus.CounterVec
	LoadFallbacks   *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	SecurityEvents  *prometheus.CounterVec
}

// New registers the ledger collectors on a fresh registry.
func New() *Ledger {
	reg := prometheus.NewRegistry()
	m := &Ledger{
		registry: reg,
		ExpensesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_added_total",
			Help:      "Expenses successfully added and persisted.",
		}),
		ExpensesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_deleted_total",
			Help:      "Expenses removed by delete operations.",
		}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Writes rejected by the storage backend.",
		}, []string{"op"}),
		LoadFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_fallbacks_total",
			Help:      "Loads that degraded to an empty ledger.",
		}, []string{"reason"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		SecurityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Rate-limited and suspicious HTTP requests.",
		}, []string{"event"}),
	}
	reg.MustRegister(m.ExpensesAdded, m.ExpensesDeleted, m.StorageErrors, m.LoadFallbacks, m.HTTPRequests, m.SecurityEvents)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Ledger) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Ledger) Added() {
	if m != nil {
		m.ExpensesAdded.Inc()
	}
}

func (m *Ledger) Deleted(n int) {
	if m != nil {
		m.ExpensesDeleted.Add(float64(n))
	}
}

func (m *Ledger) StorageError(op string) {
	if m != nil {
		m.StorageErrors.WithLabelValues(op).Inc()
	}
}

func (m *Ledger) LoadFallback(reason string) {
	if m != nil {
		m.LoadFallbacks.WithLabelValues(reason).Inc()
	}
}

func (m *Ledger) Request(route, code string) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(route, code).Inc()
	}
}

// RateLimited counts a request refused by the rate limiter.
func (m *Ledger) RateLimited() {
	if m != nil {
		m.SecurityEvents.WithLabelValues("rate_limited").Inc()
	}
}

// SuspiciousRequest counts a request flagged as a probe.
func (m *Ledger) SuspiciousRequest() {
	if m != nil {
		m.SecurityEvents.WithLabelValues("suspicious").Inc()
	}
}
