package forecast_test

import (
	"testing"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/forecast"

	"github.com/shopspring/decimal"
)

func rule(id string, amount string, freq domain.Frequency, start time.Time, end *time.Time) domain.RecurringRule {
	return domain.RecurringRule{
		ID:        id,
		AccountID: "acct-1",
		Name:      "rule " + id,
		Amount:    decimal.RequireFromString(amount),
		Frequency: freq,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
	}
}

func dueDates(occs []domain.Occurrence) []string {
	out := make([]string, len(occs))
	for i, o := range occs {
		out[i] = o.DueDate.Format(domain.DateLayout)
	}
	return out
}

func assertDates(t *testing.T, got []domain.Occurrence, want ...string) {
	t.Helper()
	dates := dueDates(got)
	if len(dates) != len(want) {
		t.Fatalf("expected %d occurrences %v, got %d %v", len(want), want, len(dates), dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("occurrence %d: expected %s, got %s", i, want[i], dates[i])
		}
	}
}

func TestExpand_MonthlyFallbackChain(t *testing.T) {
	r := rule("r1", "50", domain.FrequencyMonthly, date(2024, 1, 31), nil)

	got := forecast.Expand(r, date(2024, 1, 1), date(2024, 3, 31))

	assertDates(t, got, "2024-01-31", "2024-02-01", "2024-03-01")
	for _, o := range got {
		if !o.Amount.Equal(decimal.NewFromInt(50)) {
			t.Errorf("expected amount 50, got %s", o.Amount)
		}
		if o.Status != domain.OccurrenceStatusPending {
			t.Errorf("expected status pending, got %s", o.Status)
		}
	}
}

func TestExpand_EndBeforeStartYieldsNothing(t *testing.T) {
	end := date(2024, 1, 1)
	r := rule("r1", "10", domain.FrequencyDaily, date(2024, 2, 1), &end)

	if got := forecast.Expand(r, date(2024, 1, 1), date(2024, 12, 31)); len(got) != 0 {
		t.Fatalf("expected no occurrences, got %v", dueDates(got))
	}
}

func TestExpand_InactiveRule(t *testing.T) {
	r := rule("r1", "10", domain.FrequencyDaily, date(2024, 1, 1), nil)
	r.IsActive = false

	if got := forecast.Expand(r, date(2024, 1, 1), date(2024, 1, 10)); len(got) != 0 {
		t.Fatalf("expected no occurrences, got %v", dueDates(got))
	}
}

func TestExpand_UnknownFrequencyYieldsNothing(t *testing.T) {
	r := rule("r1", "10", domain.Frequency("FORTNIGHTLY"), date(2024, 1, 1), nil)

	if got := forecast.Expand(r, date(2024, 1, 1), date(2024, 1, 31)); len(got) != 0 {
		t.Fatalf("expected no occurrences, got %v", dueDates(got))
	}
}

func TestExpand_StartsAfterWindow(t *testing.T) {
	r := rule("r1", "10", domain.FrequencyDaily, date(2024, 3, 1), nil)

	if got := forecast.Expand(r, date(2024, 1, 1), date(2024, 2, 29)); len(got) != 0 {
		t.Fatalf("expected no occurrences, got %v", dueDates(got))
	}
}

func TestExpand_CursorStartsAtWindowStart(t *testing.T) {
	r := rule("r1", "10", domain.FrequencyWeekly, date(2023, 6, 1), nil)

	got := forecast.Expand(r, date(2024, 1, 10), date(2024, 1, 24))

	assertDates(t, got, "2024-01-10", "2024-01-17", "2024-01-24")
}

func TestExpand_EndDateIsInclusive(t *testing.T) {
	end := date(2024, 1, 3)
	r := rule("r1", "10", domain.FrequencyDaily, date(2024, 1, 1), &end)

	got := forecast.Expand(r, date(2024, 1, 1), date(2024, 1, 31))

	assertDates(t, got, "2024-01-01", "2024-01-02", "2024-01-03")
}

func TestExpand_WindowEndIsInclusive(t *testing.T) {
	r := rule("r1", "10", domain.FrequencyYearly, date(2024, 1, 1), nil)

	got := forecast.Expand(r, date(2024, 1, 1), date(2026, 1, 1))

	assertDates(t, got, "2024-01-01", "2025-01-01", "2026-01-01")
}

func TestExpand_StableIDs(t *testing.T) {
	r := rule("rule-42", "10", domain.FrequencyDaily, date(2024, 1, 1), nil)

	got := forecast.Expand(r, date(2024, 1, 1), date(2024, 1, 2))
	if len(got) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(got))
	}
	if got[0].ID != "rule-42_2024-01-01" || got[1].ID != "rule-42_2024-01-02" {
		t.Errorf("unexpected ids: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestExpand_KeepsExactAmount(t *testing.T) {
	r := rule("r1", "19.99", domain.FrequencyDaily, date(2024, 1, 1), nil)

	for _, o := range forecast.Expand(r, date(2024, 1, 1), date(2024, 1, 5)) {
		if o.Amount.String() != "19.99" {
			t.Errorf("expected 19.99, got %s", o.Amount)
		}
	}
}

func TestOccurrences_Restartable(t *testing.T) {
	r := rule("r1", "10", domain.FrequencyWeekly, date(2024, 1, 1), nil)
	seq := forecast.Occurrences(r, date(2024, 1, 1), date(2024, 2, 1))

	var first, second []domain.Occurrence
	for o := range seq {
		first = append(first, o)
	}
	for o := range seq {
		second = append(second, o)
	}

	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("expected identical non-empty passes, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("pass mismatch at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestOccurrences_EarlyBreak(t *testing.T) {
	r := rule("r1", "10", domain.FrequencyDaily, date(2024, 1, 1), nil)

	n := 0
	for range forecast.Occurrences(r, date(2024, 1, 1), date(2030, 1, 1)) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("expected to stop after 3, got %d", n)
	}
}

func TestExpand_NeverOutsideRuleBounds(t *testing.T) {
	freqs := []domain.Frequency{
		domain.FrequencyDaily, domain.FrequencyWeekly,
		domain.FrequencyMonthly, domain.FrequencyYearly,
	}
	windowStart, windowEnd := date(2024, 1, 1), date(2027, 12, 31)

	for _, f := range freqs {
		for startDay := 1; startDay <= 31; startDay += 5 {
			start := date(2024, 1, startDay)
			end := date(2026, 2, 28)
			r := rule("r", "1", f, start, &end)

			for _, o := range forecast.Expand(r, windowStart, windowEnd) {
				if o.DueDate.Before(start) {
					t.Errorf("%s: occurrence %s before start %s", f, o.DueDate, start)
				}
				if o.DueDate.After(end) {
					t.Errorf("%s: occurrence %s after end %s", f, o.DueDate, end)
				}
				if o.DueDate.Before(windowStart) || o.DueDate.After(windowEnd) {
					t.Errorf("%s: occurrence %s outside window", f, o.DueDate)
				}
			}
		}
	}
}
