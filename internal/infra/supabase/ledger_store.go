package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/resilience"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Ledger transactions via PostgREST
// ============================================================

// GetRealBalance sums the amounts of REAL transactions. Amounts are added
// in decimal, page by page, so the total is exact and never truncated by
// the server's row cap.
func (c *Client) GetRealBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRealBalance")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	path := fmt.Sprintf("transactions?%s&%s&select=amount&order=id.asc",
		eq("account_id", accountID), eq("status", domain.TransactionStatusReal))

	total := decimal.Zero
	err := c.getAll(ctx, "balance", path, func(body []byte) (int, error) {
		var rows []struct {
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return 0, fmt.Errorf("decode balance rows: %w", err)
		}
		for _, row := range rows {
			total = total.Add(row.Amount)
		}
		return len(rows), nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (c *Client) ListTransactions(ctx context.Context, accountID string, from, to time.Time) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	path := fmt.Sprintf("transactions?%s&date=gte.%s&date=lte.%s&order=date.asc,created_at.asc,id.asc",
		eq("account_id", accountID), from.Format(domain.DateLayout), to.Format(domain.DateLayout))

	txs := []domain.Transaction{}
	err := c.getAll(ctx, "transactions", path, func(body []byte) (int, error) {
		var rows []transactionRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return 0, fmt.Errorf("decode transactions: %w", err)
		}
		for _, row := range rows {
			tx, err := row.toDomain()
			if err != nil {
				c.logger.Warn("supabase: skipping malformed transaction",
					zap.String("transaction_id", row.ID),
					zap.Error(err),
				)
				continue
			}
			txs = append(txs, tx)
		}
		return len(rows), nil
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", tx.AccountID))

	var created *domain.Transaction
	err := c.execute(ctx, "transactions", func() error {
		body, err := c.doRequest(ctx, http.MethodPost, "transactions", transactionToRow(tx), "return=representation")
		if err != nil {
			if isConflict(err) {
				return resilience.Permanent(&domain.ErrDuplicate{Key: tx.HashID})
			}
			return err
		}

		var rows []transactionRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return resilience.Permanent(fmt.Errorf("decode created transaction: %w", err))
		}
		if len(rows) == 0 {
			return resilience.Permanent(fmt.Errorf("insert returned no rows"))
		}
		t, err := rows[0].toDomain()
		if err != nil {
			return resilience.Permanent(err)
		}
		created = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
