package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks balance log writes and the state of supplier balances.
type LedgerMetrics struct {
	entries   *prometheus.CounterVec
	diamonds  *prometheus.CounterVec
	balance   *prometheus.GaugeVec
	health    *prometheus.GaugeVec
	drift     prometheus.Gauge
	sheetSync *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on reg. A nil reg yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_log_entries_total",
			Help:      "Balance log rows written, by kind.",
		}, []string{"kind"}),
		diamonds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_diamonds_total",
			Help:      "Diamonds moved through the ledger, by direction.",
		}, []string{"direction"}),
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "supplier_diamond_balance",
			Help:      "Cached diamond balance per supplier.",
		}, []string{"supplier_id"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "suppliers_by_balance_health",
			Help:      "Number of suppliers in each balance health state.",
		}, []string{"health"}),
		drift: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_drifted_suppliers",
			Help:      "Suppliers whose cached balance differs from the ledger sum.",
		}),
		sheetSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_sync_total",
			Help:      "Spreadsheet mirror calls, by operation and outcome.",
		}, []string{"op", "outcome"}),
	}
	reg.MustRegister(m.entries, m.diamonds, m.balance, m.health, m.drift, m.sheetSync)
	return m
}

// ObserveEntry records one balance log row of the given kind and signed amount.
func (m *LedgerMetrics) ObserveEntry(kind string, amount int64) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.WithLabelValues(normalizeLabel(kind)).Inc()
	switch {
	case amount < 0:
		m.diamonds.WithLabelValues("debit").Add(float64(-amount))
	case amount > 0:
		m.diamonds.WithLabelValues("credit").Add(float64(amount))
	}
}

func (m *LedgerMetrics) SetSupplierBalance(supplierID string, balance int64) {
	if m == nil || m.balance == nil {
		return
	}
	m.balance.WithLabelValues(supplierID).Set(float64(balance))
}

// SetHealthCounts replaces the per-state supplier counts.
func (m *LedgerMetrics) SetHealthCounts(counts map[string]int) {
	if m == nil || m.health == nil {
		return
	}
	m.health.Reset()
	for state, n := range counts {
		m.health.WithLabelValues(state).Set(float64(n))
	}
}

func (m *LedgerMetrics) SetDrift(n int) {
	if m == nil || m.drift == nil {
		return
	}
	m.drift.Set(float64(n))
}

func (m *LedgerMetrics) IncSheetSync(op, outcome string) {
	if m == nil || m.sheetSync == nil {
		return
	}
	m.sheetSync.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}
