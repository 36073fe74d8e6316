package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics holds the process-wide Prometheus collectors. All methods are safe
// to call on a nil *Metrics so components can run without instrumentation.
type Metrics struct {
	RegistryOperations *prometheus.CounterVec
	LedgerTxDuration   prometheus.Histogram
	LedgerTxOutcomes   *prometheus.CounterVec
	AuditEntries       *prometheus.CounterVec
	AuditPublishFailed *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
}

// New creates and registers all collectors on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistryOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "didledger_registry_operations_total",
			Help: "Registry operations by component, operation and outcome code",
		}, []string{"component", "operation", "outcome"}),
		LedgerTxDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "didledger_ledger_tx_duration_seconds",
			Help:    "Duration of ledger transactions including lock wait",
			Buckets: latencyBuckets,
		}),
		LedgerTxOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "didledger_ledger_tx_total",
			Help: "Ledger transactions by outcome (committed, rolled_back)",
		}, []string{"outcome"}),
		AuditEntries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "didledger_audit_entries_total",
			Help: "Audit entries appended by event type",
		}, []string{"event_type"}),
		AuditPublishFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "didledger_audit_publish_failures_total",
			Help: "Audit entries a sink failed to deliver",
		}, []string{"sink"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "didledger_cache_lookups_total",
			Help: "Resolution cache lookups by kind and result (hit, miss, error)",
		}, []string{"kind", "result"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "didledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: latencyBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveRegistryOperation counts one registry operation outcome.
func (m *Metrics) ObserveRegistryOperation(component, operation, outcome string) {
	if m == nil {
		return
	}
	m.RegistryOperations.WithLabelValues(component, operation, outcome).Inc()
}

// ObserveLedgerTx records a finished ledger transaction.
func (m *Metrics) ObserveLedgerTx(start time.Time, committed bool) {
	if m == nil {
		return
	}
	m.LedgerTxDuration.Observe(time.Since(start).Seconds())
	outcome := "committed"
	if !committed {
		outcome = "rolled_back"
	}
	m.LedgerTxOutcomes.WithLabelValues(outcome).Inc()
}

// IncrementAuditEntries counts an appended audit entry.
func (m *Metrics) IncrementAuditEntries(eventType string) {
	if m == nil {
		return
	}
	m.AuditEntries.WithLabelValues(eventType).Inc()
}

// IncrementPublishFailure counts an entry a sink could not deliver.
func (m *Metrics) IncrementPublishFailure(sink string) {
	if m == nil {
		return
	}
	m.AuditPublishFailed.WithLabelValues(sink).Inc()
}

// ObserveCacheLookup counts a resolution cache lookup.
func (m *Metrics) ObserveCacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveHTTP records request latency for a route pattern.
func (m *Metrics) ObserveHTTP(route, method string, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
}
