package forecast

import (
	"iter"
	"slices"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
)

// OccurrenceID is the stable identity of the occurrence of ruleID on due.
func OccurrenceID(ruleID string, due time.Time) string {
	return ruleID + "_" + due.Format(domain.DateLayout)
}

// Occurrences yields the occurrences of rule inside [windowStart, windowEnd]
// in date order. The sequence is computed from its inputs on every range, so
// it can be iterated any number of times.
//
// Inactive rules, rules with an unsupported frequency, rules starting after
// the window and rules whose end date precedes their start date yield
// nothing.
func Occurrences(rule domain.RecurringRule, windowStart, windowEnd time.Time) iter.Seq[domain.Occurrence] {
	return func(yield func(domain.Occurrence) bool) {
		start := Day(rule.StartDate)
		windowStart, windowEnd := Day(windowStart), Day(windowEnd)
		if !rule.IsActive || !rule.Frequency.Valid() || start.After(windowEnd) {
			return
		}

		var end time.Time
		bounded := rule.EndDate != nil
		if bounded {
			end = Day(*rule.EndDate)
			if end.Before(start) {
				return
			}
		}

		cursor := start
		if windowStart.After(cursor) {
			cursor = windowStart
		}

		for !cursor.After(windowEnd) && !(bounded && cursor.After(end)) {
			occ := domain.Occurrence{
				ID:      OccurrenceID(rule.ID, cursor),
				RuleID:  rule.ID,
				Name:    rule.Name,
				DueDate: cursor,
				Amount:  rule.Amount,
				Status:  domain.OccurrenceStatusPending,
			}
			if !yield(occ) {
				return
			}

			next, ok := Advance(cursor, rule.Frequency)
			if !ok {
				return
			}
			cursor = next
		}
	}
}

// Expand collects Occurrences into a slice.
func Expand(rule domain.RecurringRule, windowStart, windowEnd time.Time) []domain.Occurrence {
	return slices.Collect(Occurrences(rule, windowStart, windowEnd))
}
