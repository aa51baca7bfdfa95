package handler

import (
	"net/http"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Ledger Handlers
// ============================================================

func listTransactionsHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/transactions")
		defer span.End()

		q := r.URL.Query()
		txs, err := svc.ListTransactions(ctx, AccountIDFromContext(ctx), q.Get("from"), q.Get("to"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		out := make([]domain.TransactionResponse, 0, len(txs))
		for i := range txs {
			out = append(out, toTransactionResponse(&txs[i]))
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.TransactionResponse]{Data: out, Total: len(out)})
	}
}

func recordTransactionHandler(svc *service.ForecastService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountId}/transactions")
		defer span.End()

		var req domain.TransactionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tx, err := svc.RecordTransaction(ctx, AccountIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
	}
}
