package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// maxBodyBytes caps request bodies for rule and transaction writes.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &domain.ErrValidation{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// parseDays reads the "days" query parameter, falling back to def.
// Range checks are left to the service.
func parseDays(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return def, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil {
		return 0, &domain.ErrValidation{Field: "days", Message: "must be an integer"}
	}
	return days, nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var precision *domain.ErrPrecision
	var duplicate *domain.ErrDuplicate
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &precision):
		logger.Debug("precision error", zap.String("error", err.Error()))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &duplicate):
		logger.Debug("duplicate resource", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	// Checked before ErrExternalService, which usually wraps it.
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &external):
		logger.Error("upstream failure", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream service failure")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ============================================================
// Response mapping
// ============================================================

func toDashboardResponse(d *domain.Dashboard) domain.DashboardResponse {
	return domain.DashboardResponse{
		AccountID:         d.AccountID,
		AsOf:              d.AsOf.Format(domain.DateLayout),
		SafeToSpend:       d.SafeToSpend,
		TotalBalance:      d.TotalBalance,
		PendingBillsTotal: d.PendingBillsTotal,
		BufferTarget:      d.BufferTarget,
		UpcomingBills:     toBillResponses(d.UpcomingBills),
		BurnDownChart:     toChart(d.BurnDownChart),
	}
}

func toBillResponses(occs []domain.Occurrence) []domain.BillResponse {
	out := make([]domain.BillResponse, 0, len(occs))
	for _, o := range occs {
		out = append(out, domain.BillResponse{
			ID:      o.ID,
			Name:    o.Name,
			DueDate: o.DueDate.Format(domain.DateLayout),
			Amount:  o.Amount,
			Status:  o.Status,
		})
	}
	return out
}

func toChart(points []domain.BalancePoint) []domain.BalancePointJSON {
	out := make([]domain.BalancePointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, domain.BalancePointJSON{
			Date:    p.Date.Format(domain.DateLayout),
			Balance: p.Balance,
		})
	}
	return out
}

func toRuleResponse(r *domain.RecurringRule) domain.RuleResponse {
	resp := domain.RuleResponse{
		ID:        r.ID,
		Name:      r.Name,
		Amount:    r.Amount,
		Frequency: r.Frequency,
		StartDate: r.StartDate.Format(domain.DateLayout),
		IsActive:  r.IsActive,
	}
	if r.EndDate != nil {
		resp.EndDate = r.EndDate.Format(domain.DateLayout)
	}
	return resp
}

func toTransactionResponse(t *domain.Transaction) domain.TransactionResponse {
	return domain.TransactionResponse{
		ID:          t.ID,
		Date:        t.Date.Format(domain.DateLayout),
		Amount:      t.Amount,
		Description: t.Description,
		Merchant:    t.Merchant,
		HashID:      t.HashID,
		Status:      t.Status,
	}
}
