package forecast

import (
	"slices"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
)

// Aggregate merges the occurrences of every rule inside the window into one
// list sorted by due date. Occurrences on the same day keep the order of
// their rules in the input.
func Aggregate(rules []domain.RecurringRule, windowStart, windowEnd time.Time) []domain.Occurrence {
	out := make([]domain.Occurrence, 0, len(rules))
	for _, rule := range rules {
		for occ := range Occurrences(rule, windowStart, windowEnd) {
			out = append(out, occ)
		}
	}

	slices.SortStableFunc(out, func(a, b domain.Occurrence) int {
		return a.DueDate.Compare(b.DueDate)
	})
	return out
}
