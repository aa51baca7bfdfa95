package main

import (
	"fmt"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/config"
	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/cache"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/financeos-bfa-go/internal/service"

	"github.com/spf13/cobra"
)

var (
	flagDB       string
	flagAccount  string
	flagToday    string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:          "financeos",
	Short:        "Cash-flow forecasts from recurring rules",
	Long:         "Project upcoming bills, the balance burn-down and safe-to-spend from recurring rules and the ledger.",
	SilenceUsage: true,
}

func init() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	rootCmd.PersistentFlags().StringVar(&flagDB, "db", cfg.SQLitePath, "SQLite database path")
	rootCmd.PersistentFlags().StringVarP(&flagAccount, "account", "a", cfg.DefaultAccountID, "Account ID")
	rootCmd.PersistentFlags().StringVar(&flagToday, "today", "", "Override today's date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level")
}

// session is an opened store plus the service built on it.
type session struct {
	store *sqlite.Store
	svc   *service.ForecastService
	rules *cache.InMemory[[]domain.RecurringRule]
}

func (s *session) Close() {
	s.rules.Close()
	_ = s.store.Close()
}

// openSession wires the forecast service over the local store. The rule
// cache is disabled; every command reads fresh rules.
func openSession() (*session, error) {
	cfg := config.Load()

	logger := observability.NewLogger(flagLogLevel)
	store, err := sqlite.Open(flagDB, logger)
	if err != nil {
		return nil, err
	}

	rules := cache.New[[]domain.RecurringRule](0)
	svc := service.NewForecastService(
		store,
		rules,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg.Forecast,
		observability.NewMetrics(),
		logger,
	)

	if flagToday != "" {
		today, err := domain.ParseDate("today", flagToday)
		if err != nil {
			_ = store.Close()
			rules.Close()
			return nil, err
		}
		loc := svc.Settings().Location
		fixed := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, loc)
		svc.WithClock(func() time.Time { return fixed })
	}

	return &session{store: store, svc: svc, rules: rules}, nil
}

func requireAccount() error {
	if flagAccount == "" {
		return fmt.Errorf("--account is required")
	}
	return nil
}
