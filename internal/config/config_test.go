package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/config"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "BUFFER_TARGET", "BILL_WINDOW_DAYS", "BURNDOWN_DAYS", "TIMEZONE"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if !cfg.Forecast.BufferTarget.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected buffer 1000, got %s", cfg.Forecast.BufferTarget)
	}
	if cfg.Forecast.BillWindowDays != 30 || cfg.Forecast.BurnDownDays != 60 {
		t.Errorf("unexpected windows: %d/%d", cfg.Forecast.BillWindowDays, cfg.Forecast.BurnDownDays)
	}
	if cfg.Forecast.Location != time.UTC {
		t.Errorf("expected UTC, got %s", cfg.Forecast.Location)
	}
}

func TestLoad_ForecastOverrides(t *testing.T) {
	t.Setenv("BUFFER_TARGET", "250.50")
	t.Setenv("BILL_WINDOW_DAYS", "14")
	t.Setenv("BURNDOWN_DAYS", "90")
	t.Setenv("TIMEZONE", "America/Sao_Paulo")
	t.Setenv("DEFAULT_ACCOUNT_ID", "acct-main")

	cfg := config.Load()

	if !cfg.Forecast.BufferTarget.Equal(decimal.RequireFromString("250.50")) {
		t.Errorf("expected buffer 250.50, got %s", cfg.Forecast.BufferTarget)
	}
	if cfg.Forecast.BillWindowDays != 14 {
		t.Errorf("expected 14, got %d", cfg.Forecast.BillWindowDays)
	}
	if cfg.Forecast.BurnDownDays != 90 {
		t.Errorf("expected 90, got %d", cfg.Forecast.BurnDownDays)
	}
	if cfg.Forecast.Location.String() != "America/Sao_Paulo" {
		t.Errorf("expected America/Sao_Paulo, got %s", cfg.Forecast.Location)
	}
	if cfg.DefaultAccountID != "acct-main" {
		t.Errorf("expected acct-main, got %s", cfg.DefaultAccountID)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BUFFER_TARGET", "lots")
	t.Setenv("BILL_WINDOW_DAYS", "thirty")
	t.Setenv("TIMEZONE", "Mars/Olympus")

	cfg := config.Load()

	if !cfg.Forecast.BufferTarget.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected default buffer, got %s", cfg.Forecast.BufferTarget)
	}
	if cfg.Forecast.BillWindowDays != 30 {
		t.Errorf("expected default window, got %d", cfg.Forecast.BillWindowDays)
	}
	if cfg.Forecast.Location != time.UTC {
		t.Errorf("expected UTC fallback, got %s", cfg.Forecast.Location)
	}
}

func TestLoad_HorizonWindowsBounded(t *testing.T) {
	tests := []struct {
		name                string
		bills, burn, max    string
		wantBills, wantBurn int
		wantMax             int
	}{
		{"negative windows", "-1", "-5", "", 30, 60, 3660},
		{"windows over cap", "4000", "9999", "", 30, 60, 3660},
		{"zero allowed", "0", "0", "", 0, 0, 3660},
		{"small cap clamps defaults", "", "", "45", 30, 45, 45},
		{"at cap", "45", "45", "45", 45, 45, 45},
		{"negative cap ignored", "", "", "-1", 30, 60, 3660},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BILL_WINDOW_DAYS", tt.bills)
			t.Setenv("BURNDOWN_DAYS", tt.burn)
			t.Setenv("MAX_HORIZON_DAYS", tt.max)

			f := config.Load().Forecast

			if f.BillWindowDays != tt.wantBills {
				t.Errorf("bill window: expected %d, got %d", tt.wantBills, f.BillWindowDays)
			}
			if f.BurnDownDays != tt.wantBurn {
				t.Errorf("burn-down: expected %d, got %d", tt.wantBurn, f.BurnDownDays)
			}
			if f.MaxHorizonDays != tt.wantMax {
				t.Errorf("max horizon: expected %d, got %d", tt.wantMax, f.MaxHorizonDays)
			}
		})
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nexport FINANCEOS_TEST_A=\"from-file\"\nFINANCEOS_TEST_B=file\nnot-a-pair\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINANCEOS_TEST_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("FINANCEOS_TEST_A") })

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := os.Getenv("FINANCEOS_TEST_A"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
	if got := os.Getenv("FINANCEOS_TEST_B"); got != "from-env" {
		t.Errorf("expected env to win, got %q", got)
	}
}
