package enums

// BalanceHealth classifies a supplier balance against its low-balance threshold.
type BalanceHealth string

const (
	BalanceHealthy  BalanceHealth = "healthy"
	BalanceLow      BalanceHealth = "low"
	BalanceCritical BalanceHealth = "critical"
)

// ClassifyBalance returns critical below half the threshold, low below the
// threshold, healthy otherwise. A non-positive threshold is always healthy.
func ClassifyBalance(balance, threshold int64) BalanceHealth {
	if threshold <= 0 {
		return BalanceHealthy
	}
	// balance < threshold*0.5 without floating point
	if balance*2 < threshold {
		return BalanceCritical
	}
	if balance < threshold {
		return BalanceLow
	}
	return BalanceHealthy
}
