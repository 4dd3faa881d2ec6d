package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "ready-for-gifting"
	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncFailure(job)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchValue(mfs, "giftledger_job_success_total", "job", job)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchValue(mfs, "giftledger_job_failure_total", "job", job)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchValue(mfs, "giftledger_job_duration_seconds", "job", job)
	require.NoError(t, err)
	assert.Greater(t, got, 0.0)
}

func TestLedgerMetricsSplitsDirections(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.ObserveEntry("deduct", -500)
	m.ObserveEntry("refund", 500)
	m.ObserveEntry("refund", 300)
	m.SetSupplierBalance("sup-1", 4500)
	m.SetHealthCounts(map[string]int{"healthy": 2, "low": 1})
	m.SetDrift(0)
	m.IncSheetSync("append", "ok")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchValue(mfs, "giftledger_balance_diamonds_total", "direction", "credit")
	require.NoError(t, err)
	assert.Equal(t, 800.0, got)

	got, err = fetchValue(mfs, "giftledger_balance_diamonds_total", "direction", "debit")
	require.NoError(t, err)
	assert.Equal(t, 500.0, got)

	got, err = fetchValue(mfs, "giftledger_balance_log_entries_total", "kind", "refund")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = fetchValue(mfs, "giftledger_supplier_diamond_balance", "supplier_id", "sup-1")
	require.NoError(t, err)
	assert.Equal(t, 4500.0, got)

	got, err = fetchValue(mfs, "giftledger_suppliers_by_balance_health", "health", "low")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestNilRecordersAreSafe(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("x")
	var ledger *LedgerMetrics
	ledger.ObserveEntry("deduct", -1)
	ledger.SetDrift(3)
	NewLedgerMetrics(nil).IncSheetSync("append", "error")
}

func fetchValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !matchesLabel(metric.GetLabel(), label, value) {
				continue
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue(), nil
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue(), nil
			case metric.GetHistogram() != nil:
				return metric.GetHistogram().GetSampleSum(), nil
			}
		}
		return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
