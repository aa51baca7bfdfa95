package forecast

import (
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/shopspring/decimal"
)

// Project walks horizonDays+1 days starting at horizonStart and returns the
// end-of-day balance for each one. Every occurrence amount is subtracted on
// its due date; occurrences outside the horizon are ignored.
func Project(startingBalance decimal.Decimal, occurrences []domain.Occurrence, horizonStart time.Time, horizonDays int) []domain.BalancePoint {
	if horizonDays < 0 {
		return []domain.BalancePoint{}
	}
	horizonStart = Day(horizonStart)
	horizonEnd := AddDays(horizonStart, horizonDays)

	dueByDay := make(map[time.Time]decimal.Decimal)
	for _, occ := range occurrences {
		due := Day(occ.DueDate)
		if due.Before(horizonStart) || due.After(horizonEnd) {
			continue
		}
		dueByDay[due] = dueByDay[due].Add(occ.Amount)
	}

	points := make([]domain.BalancePoint, 0, horizonDays+1)
	balance := startingBalance
	for i := 0; i <= horizonDays; i++ {
		date := AddDays(horizonStart, i)
		if due, ok := dueByDay[date]; ok {
			balance = balance.Sub(due)
		}
		points = append(points, domain.BalancePoint{Date: date, Balance: balance})
	}
	return points
}
