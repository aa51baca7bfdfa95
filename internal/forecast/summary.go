package forecast

import (
	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/shopspring/decimal"
)

// Summarize computes the pending bills total over occurrences and the safe
// to spend figure. A negative safe-to-spend means the account is
// overcommitted and is returned as is.
func Summarize(totalBalance decimal.Decimal, occurrences []domain.Occurrence, bufferTarget decimal.Decimal) domain.Summary {
	pending := decimal.Zero
	for _, occ := range occurrences {
		pending = pending.Add(occ.Amount)
	}
	return domain.Summary{
		SafeToSpend:       totalBalance.Sub(pending).Sub(bufferTarget),
		PendingBillsTotal: pending,
	}
}
