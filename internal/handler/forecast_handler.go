package handler

import (
	"net/http"
	"strings"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Forecast Handlers
// ============================================================

func dashboardHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/dashboard")
		defer span.End()

		dashboard, err := svc.ComputeDashboard(ctx, AccountIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toDashboardResponse(dashboard))
	}
}

func billsHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/bills")
		defer span.End()

		days, err := parseDays(r, svc.Settings().BillWindowDays)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		bills, err := svc.UpcomingBills(ctx, AccountIDFromContext(ctx), days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		out := toBillResponses(bills)
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.BillResponse]{Data: out, Total: len(out)})
	}
}

func burnDownHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/burn-down")
		defer span.End()

		days, err := parseDays(r, svc.Settings().BurnDownDays)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		points, err := svc.BurnDown(ctx, AccountIDFromContext(ctx), days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		out := toChart(points)
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.BalancePointJSON]{Data: out, Total: len(out)})
	}
}

// legacyDashboardHandler serves GET /api/dashboard/ for the original
// frontend. Any failure is reported as 500 with {error, message}.
func legacyDashboardHandler(svc *service.ForecastService, defaultAccountID string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/dashboard/")
		defer span.End()

		accountID := strings.TrimSpace(r.URL.Query().Get("account_id"))
		if accountID == "" {
			accountID = defaultAccountID
		}

		dashboard, err := svc.ComputeDashboard(ctx, accountID)
		if err != nil {
			logger.Error("legacy dashboard failed",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   err.Error(),
				Message: "Failed to retrieve dashboard metrics",
			})
			return
		}
		writeJSON(w, http.StatusOK, toDashboardResponse(dashboard))
	}
}
