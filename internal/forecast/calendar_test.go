package forecast_test

import (
	"testing"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/forecast"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		freq domain.Frequency
		want time.Time
	}{
		{"daily", date(2024, 1, 31), domain.FrequencyDaily, date(2024, 2, 1)},
		{"daily leap day", date(2024, 2, 28), domain.FrequencyDaily, date(2024, 2, 29)},
		{"weekly across month", date(2024, 1, 29), domain.FrequencyWeekly, date(2024, 2, 5)},
		{"weekly across year", date(2024, 12, 30), domain.FrequencyWeekly, date(2025, 1, 6)},
		{"monthly same day", date(2024, 1, 15), domain.FrequencyMonthly, date(2024, 2, 15)},
		{"monthly jan 31 falls back", date(2024, 1, 31), domain.FrequencyMonthly, date(2024, 2, 1)},
		{"monthly mar 31 falls back", date(2024, 3, 31), domain.FrequencyMonthly, date(2024, 4, 1)},
		{"monthly jan 30 non-leap", date(2023, 1, 30), domain.FrequencyMonthly, date(2023, 2, 1)},
		{"monthly jan 29 leap", date(2024, 1, 29), domain.FrequencyMonthly, date(2024, 2, 29)},
		{"monthly december rolls year", date(2024, 12, 31), domain.FrequencyMonthly, date(2025, 1, 31)},
		{"yearly", date(2024, 6, 10), domain.FrequencyYearly, date(2025, 6, 10)},
		{"yearly leap day falls back", date(2024, 2, 29), domain.FrequencyYearly, date(2025, 2, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := forecast.Advance(tt.from, tt.freq)
			if !ok {
				t.Fatalf("expected ok for %s", tt.freq)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want.Format(domain.DateLayout), got.Format(domain.DateLayout))
			}
		})
	}
}

func TestAdvance_UnknownFrequency(t *testing.T) {
	if _, ok := forecast.Advance(date(2024, 1, 1), domain.Frequency("HOURLY")); ok {
		t.Fatal("expected unsupported frequency to report !ok")
	}
}

func TestDay_NormalizesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	in := time.Date(2024, 5, 10, 23, 30, 0, 0, loc)

	got := forecast.Day(in)
	if !got.Equal(date(2024, 5, 10)) {
		t.Errorf("expected 2024-05-10 UTC, got %s", got)
	}
}
