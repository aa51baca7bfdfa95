// Package forecast is the projection engine: it expands recurring rules into
// dated occurrences and folds them against a starting balance over a finite
// horizon. Every function is pure and safe for concurrent use.
package forecast

import (
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
)

// Day normalizes t to a civil date at 00:00 UTC, keeping t's own
// year/month/day fields.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the civil date n days after d.
func AddDays(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day+n, 0, 0, 0, 0, time.UTC)
}

// Advance moves d forward by one step of f. The second result is false for
// an unsupported frequency.
//
// Monthly and yearly steps keep the day-of-month. When that day does not
// exist in the target month (Jan 31 -> Feb, Feb 29 -> non-leap Feb) the
// result is the 1st of the target month.
func Advance(d time.Time, f domain.Frequency) (time.Time, bool) {
	y, m, day := d.Date()
	switch f {
	case domain.FrequencyDaily:
		return AddDays(d, 1), true
	case domain.FrequencyWeekly:
		return AddDays(d, 7), true
	case domain.FrequencyMonthly:
		m++
		if m > time.December {
			m = time.January
			y++
		}
		return sameDayOrFirst(y, m, day), true
	case domain.FrequencyYearly:
		return sameDayOrFirst(y+1, m, day), true
	}
	return time.Time{}, false
}

func sameDayOrFirst(y int, m time.Month, day int) time.Time {
	if day > daysIn(y, m) {
		day = 1
	}
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
