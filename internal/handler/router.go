package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financeos-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// defaultAccountID serves the legacy dashboard route when the caller does
// not name an account.
func NewRouter(svc *service.ForecastService, metrics *observability.Metrics, defaultAccountID string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Legacy frontend contract ---
	r.Get("/api/dashboard/", legacyDashboardHandler(svc, defaultAccountID, logger))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/forecast", forecastMetricsHandler(metrics))

		r.Route("/accounts/{accountId}", func(r chi.Router) {
			r.Use(AccountContext(logger))

			r.Get("/dashboard", dashboardHandler(svc, logger))
			r.Get("/bills", billsHandler(svc, logger))
			r.Get("/burn-down", burnDownHandler(svc, logger))

			r.Get("/rules", listRulesHandler(svc, logger))
			r.Post("/rules", createRuleHandler(svc, logger))
			r.Get("/rules/{ruleId}", getRuleHandler(svc, logger))
			r.Delete("/rules/{ruleId}", deactivateRuleHandler(svc, logger))

			r.Get("/transactions", listTransactionsHandler(svc, logger))
			r.Post("/transactions", recordTransactionHandler(svc, logger))
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func healthzHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "forecast-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if svc != nil {
			start := time.Now()
			err := svc.Ping(r.Context())
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("healthz: store ping failed", zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func forecastMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetForecastSnapshot())
	}
}
