package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/config"
	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/forecast"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/financeos-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/forecast")

// storeService is the service label used for data-access failures.
const storeService = "forecast-store"

// ForecastService feeds stored rules and balances through the projection
// engine. It holds no per-account state besides the rule cache, so one
// instance serves concurrent requests for any number of accounts.
type ForecastService struct {
	store    port.ForecastStore
	rules    port.RuleCache
	bulkhead *resilience.Bulkhead
	cfg      config.Forecast
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewForecastService creates the forecast service with all dependencies injected.
func NewForecastService(
	store port.ForecastStore,
	rules port.RuleCache,
	bulkhead *resilience.Bulkhead,
	cfg config.Forecast,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ForecastService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ForecastService{
		store:    store,
		rules:    rules,
		bulkhead: bulkhead,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock. Used by tests and the CLI --today flag.
func (s *ForecastService) WithClock(now func() time.Time) *ForecastService {
	s.now = now
	return s
}

// Settings returns the projection settings in use.
func (s *ForecastService) Settings() config.Forecast {
	return s.cfg
}

// Today is the first day of every horizon, evaluated in the configured time zone.
func (s *ForecastService) Today() time.Time {
	return forecast.Day(s.now().In(s.cfg.Location))
}

// ComputeDashboard builds the full forecast for one account: real balance,
// upcoming bills over the bill window, the burn-down chart over the
// burn-down horizon and the safe-to-spend figure.
//
// Any data-access failure aborts the computation; no partial dashboard is
// ever returned.
func (s *ForecastService) ComputeDashboard(ctx context.Context, accountID string) (*domain.Dashboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ForecastService.ComputeDashboard")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	today := s.Today()
	billEnd := forecast.AddDays(today, s.cfg.BillWindowDays)
	burnEnd := forecast.AddDays(today, s.cfg.BurnDownDays)
	asOf := billEnd
	if burnEnd.After(asOf) {
		asOf = burnEnd
	}

	// --- Fetch rules + balance concurrently ---
	var (
		rules   []domain.RecurringRule
		balance decimal.Decimal
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := s.activeRules(gCtx, accountID, asOf)
		if err != nil {
			return fmt.Errorf("rules fetch: %w", err)
		}
		rules = r
		return nil
	})

	g.Go(func() error {
		b, err := s.realBalance(gCtx, accountID)
		if err != nil {
			return fmt.Errorf("balance fetch: %w", err)
		}
		balance = b
		return nil
	})

	if err := g.Wait(); err != nil {
		s.metrics.IncrDashboard("error")
		s.logger.Error("dashboard aborted",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
		return nil, upstream(err)
	}

	// --- Project ---
	bills := forecast.Aggregate(rules, today, billEnd)
	burnOccurrences := forecast.Aggregate(rules, today, burnEnd)
	chart := forecast.Project(balance, burnOccurrences, today, s.cfg.BurnDownDays)
	summary := forecast.Summarize(balance, bills, s.cfg.BufferTarget)

	s.metrics.AddOccurrences("bills", len(bills))
	s.metrics.AddOccurrences("burndown", len(burnOccurrences))
	s.metrics.IncrDashboard("success")
	if summary.SafeToSpend.IsNegative() {
		s.metrics.IncrOvercommitted()
		s.logger.Info("account overcommitted",
			zap.String("account_id", accountID),
			zap.String("safe_to_spend", summary.SafeToSpend.String()),
		)
	}

	s.logger.Debug("dashboard computed",
		zap.String("account_id", accountID),
		zap.Int("rules", len(rules)),
		zap.Int("upcoming_bills", len(bills)),
		zap.Int("chart_points", len(chart)),
	)

	return &domain.Dashboard{
		AccountID:         accountID,
		AsOf:              today,
		SafeToSpend:       summary.SafeToSpend,
		TotalBalance:      balance,
		PendingBillsTotal: summary.PendingBillsTotal,
		BufferTarget:      s.cfg.BufferTarget,
		UpcomingBills:     bills,
		BurnDownChart:     chart,
	}, nil
}

// UpcomingBills lists the occurrences due in [today, today+days].
func (s *ForecastService) UpcomingBills(ctx context.Context, accountID string, days int) ([]domain.Occurrence, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	if err := s.checkHorizon(days); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ForecastService.UpcomingBills")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID), attribute.Int("days", days))

	today := s.Today()
	end := forecast.AddDays(today, days)

	rules, err := s.activeRules(ctx, accountID, end)
	if err != nil {
		return nil, upstream(fmt.Errorf("rules fetch: %w", err))
	}

	bills := forecast.Aggregate(rules, today, end)
	s.metrics.AddOccurrences("bills", len(bills))
	return bills, nil
}

// BurnDown projects the real balance over [today, today+days].
func (s *ForecastService) BurnDown(ctx context.Context, accountID string, days int) ([]domain.BalancePoint, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	if err := s.checkHorizon(days); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ForecastService.BurnDown")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID), attribute.Int("days", days))

	today := s.Today()
	end := forecast.AddDays(today, days)

	var (
		rules   []domain.RecurringRule
		balance decimal.Decimal
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rules, err = s.activeRules(gCtx, accountID, end)
		return err
	})
	g.Go(func() (err error) {
		balance, err = s.realBalance(gCtx, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, upstream(err)
	}

	occurrences := forecast.Aggregate(rules, today, end)
	s.metrics.AddOccurrences("burndown", len(occurrences))
	return forecast.Project(balance, occurrences, today, days), nil
}

// Ping checks the data-access layer.
func (s *ForecastService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// --- data access helpers ---

func (s *ForecastService) activeRules(ctx context.Context, accountID string, asOf time.Time) ([]domain.RecurringRule, error) {
	cacheKey := rulesCacheKey(accountID, asOf)
	if cached, ok := s.rules.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("rules")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("rules")

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	rules, err := s.store.ListActiveRules(ctx, accountID, asOf)
	if err != nil {
		s.metrics.IncrExternalError("rules")
		return nil, err
	}
	s.rules.Set(cacheKey, rules)
	return rules, nil
}

func (s *ForecastService) realBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return decimal.Zero, err
	}
	defer s.bulkhead.Release()

	balance, err := s.store.GetRealBalance(ctx, accountID)
	if err != nil {
		s.metrics.IncrExternalError("balance")
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *ForecastService) invalidateRules(accountID string) {
	s.rules.DeletePrefix(rulesCachePrefix(accountID))
}

func (s *ForecastService) checkHorizon(days int) error {
	if days < 0 || days > s.cfg.MaxHorizonDays {
		return &domain.ErrValidation{
			Field:   "days",
			Message: fmt.Sprintf("must be between 0 and %d", s.cfg.MaxHorizonDays),
		}
	}
	return nil
}

func rulesCachePrefix(accountID string) string {
	return "rules:" + accountID + ":"
}

func rulesCacheKey(accountID string, asOf time.Time) string {
	return rulesCachePrefix(accountID) + asOf.Format(domain.DateLayout)
}

func requireAccount(accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return &domain.ErrValidation{Field: "account_id", Message: "required"}
	}
	return nil
}

// upstream folds a collaborator failure into one ErrExternalService.
// A missed deadline is ErrTimeout; cancellation passes through untouched.
func upstream(err error) error {
	var timeout *domain.ErrTimeout
	if errors.As(err, &timeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: storeService}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.ErrExternalService{Service: storeService, Err: err}
}
