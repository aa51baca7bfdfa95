package supabase

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// PostgREST row mapping
// ============================================================

// eq builds a PostgREST equality filter with the value escaped.
func eq(column, value string) string {
	return column + "=eq." + url.QueryEscape(value)
}

type ruleRow struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency string          `json:"frequency"`
	StartDate string          `json:"start_date"`
	EndDate   *string         `json:"end_date"`
	IsActive  bool            `json:"is_active"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

func ruleToRow(r *domain.RecurringRule) ruleRow {
	row := ruleRow{
		ID:        r.ID,
		AccountID: r.AccountID,
		Name:      r.Name,
		Amount:    r.Amount,
		Frequency: string(r.Frequency),
		StartDate: r.StartDate.Format(domain.DateLayout),
		IsActive:  r.IsActive,
	}
	if r.EndDate != nil {
		end := r.EndDate.Format(domain.DateLayout)
		row.EndDate = &end
	}
	if !r.CreatedAt.IsZero() {
		created := r.CreatedAt
		row.CreatedAt = &created
	}
	return row
}

func (row ruleRow) toDomain() (domain.RecurringRule, error) {
	start, err := domain.ParseDate("start_date", row.StartDate)
	if err != nil {
		return domain.RecurringRule{}, err
	}
	r := domain.RecurringRule{
		ID:        row.ID,
		AccountID: row.AccountID,
		Name:      row.Name,
		Amount:    row.Amount,
		Frequency: domain.Frequency(row.Frequency),
		StartDate: start,
		IsActive:  row.IsActive,
	}
	if row.EndDate != nil && *row.EndDate != "" {
		end, err := domain.ParseDate("end_date", *row.EndDate)
		if err != nil {
			return domain.RecurringRule{}, err
		}
		r.EndDate = &end
	}
	if row.CreatedAt != nil {
		r.CreatedAt = row.CreatedAt.UTC()
	}
	return r, nil
}

type transactionRow struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	HashID      string          `json:"hash_id"`
	Status      string          `json:"status"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
}

func transactionToRow(tx *domain.Transaction) transactionRow {
	row := transactionRow{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Date:        tx.Date.Format(domain.DateLayout),
		Amount:      tx.Amount,
		Description: tx.Description,
		Merchant:    tx.Merchant,
		HashID:      tx.HashID,
		Status:      tx.Status,
	}
	if !tx.CreatedAt.IsZero() {
		created := tx.CreatedAt
		row.CreatedAt = &created
	}
	return row
}

func (row transactionRow) toDomain() (domain.Transaction, error) {
	date, err := domain.ParseDate("date", row.Date)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx := domain.Transaction{
		ID:          row.ID,
		AccountID:   row.AccountID,
		Date:        date,
		Amount:      row.Amount,
		Description: row.Description,
		Merchant:    row.Merchant,
		HashID:      row.HashID,
		Status:      row.Status,
	}
	if row.CreatedAt != nil {
		tx.CreatedAt = row.CreatedAt.UTC()
	}
	return tx, nil
}

// isConflict reports a unique-constraint violation (HTTP 409 from PostgREST).
func isConflict(err error) bool {
	var serr *statusError
	return errors.As(err, &serr) && serr.Status == http.StatusConflict
}
