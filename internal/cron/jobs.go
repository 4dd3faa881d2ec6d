package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/giftledger-backend/internal/ledger"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/metrics"
)

const (
	ReadyForGiftingJobName = "ready-for-gifting"
	LedgerReconcileJobName = "ledger-reconcile"
)

type readinessSweeper interface {
	SweepReadyForGifting(ctx context.Context) (int64, error)
}

type readyForGiftingJob struct {
	orders readinessSweeper
	logg   *logger.Logger
}

// NewReadyForGiftingJob promotes FOLLOWED orders whose follow date passed the
// readiness window. Reads never mutate orders; this job is the only writer of
// the time-based flag.
func NewReadyForGiftingJob(orders readinessSweeper, logg *logger.Logger) (Job, error) {
	if orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &readyForGiftingJob{orders: orders, logg: logg}, nil
}

func (j *readyForGiftingJob) Name() string { return ReadyForGiftingJobName }

func (j *readyForGiftingJob) Run(ctx context.Context) error {
	promoted, err := j.orders.SweepReadyForGifting(ctx)
	if err != nil {
		return err
	}
	if promoted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "promoted", promoted), "orders marked ready for gifting")
	}
	return nil
}

type ledgerTotals interface {
	Totals(ctx context.Context) ([]ledger.SupplierTotal, error)
}

type ledgerReconcileJob struct {
	ledger  ledgerTotals
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewLedgerReconcileJob compares every cached balance with the sum of its log
// and publishes balance gauges. It reports drift; it never rewrites balances.
func NewLedgerReconcileJob(l ledgerTotals, logg *logger.Logger, m *metrics.LedgerMetrics) (Job, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ledgerReconcileJob{ledger: l, logg: logg, metrics: m}, nil
}

func (j *ledgerReconcileJob) Name() string { return LedgerReconcileJobName }

func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	totals, err := j.ledger.Totals(ctx)
	if err != nil {
		return err
	}

	health := map[string]int{
		string(enums.BalanceHealthy):  0,
		string(enums.BalanceLow):      0,
		string(enums.BalanceCritical): 0,
	}
	var drifted int
	var errs error
	for _, t := range totals {
		j.metrics.SetSupplierBalance(t.SupplierID.String(), t.DiamondBalance)
		health[string(enums.ClassifyBalance(t.DiamondBalance, t.LowBalanceThreshold))]++
		if !t.Drifted() {
			continue
		}
		drifted++
		driftErr := fmt.Errorf("supplier %s balance %d != ledger sum %d", t.SupplierID, t.DiamondBalance, t.LedgerSum)
		j.logg.Error(j.logg.WithFields(ctx, map[string]any{
			"supplier_id":   t.SupplierID.String(),
			"supplier_name": t.Name,
			"balance":       t.DiamondBalance,
			"ledger_sum":    t.LedgerSum,
		}), "ledger drift detected", driftErr)
		errs = multierr.Append(errs, driftErr)
	}
	j.metrics.SetHealthCounts(health)
	j.metrics.SetDrift(drifted)
	return errs
}
