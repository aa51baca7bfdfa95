package handler

import (
	"net/http"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Recurring Rules Handlers
// ============================================================

func listRulesHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/rules")
		defer span.End()

		rules, err := svc.ListRules(ctx, AccountIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		out := make([]domain.RuleResponse, 0, len(rules))
		for i := range rules {
			out = append(out, toRuleResponse(&rules[i]))
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.RuleResponse]{Data: out, Total: len(out)})
	}
}

func getRuleHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/rules/{ruleId}")
		defer span.End()

		rule, err := svc.GetRule(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "ruleId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, toRuleResponse(rule))
	}
}

func createRuleHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountId}/rules")
		defer span.End()

		var req domain.RecurringRuleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rule, err := svc.CreateRule(ctx, AccountIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, toRuleResponse(rule))
	}
}

func deactivateRuleHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/accounts/{accountId}/rules/{ruleId}")
		defer span.End()

		ruleID := chi.URLParam(r, "ruleId")
		if err := svc.DeactivateRule(ctx, AccountIDFromContext(ctx), ruleID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "rule deactivated", ID: ruleID})
	}
}
