package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const accountIDKey contextKey = "accountID"

// AccountContext reads {accountId} from the route, rejects blank values and
// injects the trimmed account ID into the request context.
func AccountContext(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := strings.TrimSpace(chi.URLParam(r, "accountId"))
			if accountID == "" {
				logger.Warn("request without account id",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusBadRequest, "account id is required")
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("account.id", accountID))

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountIDFromContext extracts the account ID set by AccountContext.
func AccountIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(accountIDKey).(string)
	return v
}
