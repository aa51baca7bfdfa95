package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/config"
	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/handler"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/cache"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/financeos-bfa-go/internal/port"
	"github.com/boddenberg/financeos-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("buffer_target", cfg.Forecast.BufferTarget.String()),
		zap.Int("bill_window_days", cfg.Forecast.BillWindowDays),
		zap.Int("burndown_days", cfg.Forecast.BurnDownDays),
		zap.String("timezone", cfg.Forecast.Location.String()),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "financeos-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	ruleCache := cache.New[[]domain.RecurringRule](cfg.CacheTTL)
	defer ruleCache.Close()

	// --- Store ---
	store, closer, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closer.Close()

	// --- Services ---
	forecastSvc := service.NewForecastService(
		store,
		ruleCache,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg.Forecast,
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(forecastSvc, metrics, cfg.DefaultAccountID, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore picks Supabase when configured and the local SQLite file otherwise.
func openStore(cfg *config.Config, logger *zap.Logger) (port.ForecastStore, io.Closer, error) {
	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase", supabase.IsBreakerFailure),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			logger,
		)
		return client, closerFunc(func() error { return nil }), nil
	}

	logger.Info("using SQLite as data backend", zap.String("path", cfg.SQLitePath))
	store, err := sqlite.Open(cfg.SQLitePath, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
