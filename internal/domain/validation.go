package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger amounts are stored as NUMERIC(AmountPrecision, AmountScale).
const (
	AmountPrecision = 12
	AmountScale     = 2
)

var maxAmount = decimal.New(1, AmountPrecision-AmountScale)

// CheckAmount fails when d has more fractional digits than AmountScale or
// more integer digits than the column allows.
func CheckAmount(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(AmountScale)) || d.Abs().GreaterThanOrEqual(maxAmount) {
		return &ErrPrecision{Field: field, Value: d.String()}
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD string into a UTC civil date.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &ErrValidation{Field: field, Message: "invalid format, use YYYY-MM-DD"}
	}
	return t, nil
}

// ValidateRule checks a rule before it is persisted. The projection engine
// itself never rejects rules; it skips the ones it cannot expand.
func ValidateRule(r *RecurringRule) error {
	if strings.TrimSpace(r.AccountID) == "" {
		return &ErrValidation{Field: "account_id", Message: "required"}
	}
	if strings.TrimSpace(r.Name) == "" {
		return &ErrValidation{Field: "name", Message: "required"}
	}
	if !r.Frequency.Valid() {
		return &ErrValidation{Field: "frequency", Message: "must be one of DAILY, WEEKLY, MONTHLY, YEARLY"}
	}
	if r.StartDate.IsZero() {
		return &ErrValidation{Field: "start_date", Message: "required"}
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return &ErrValidation{Field: "end_date", Message: "must not precede start_date"}
	}
	return CheckAmount("amount", r.Amount)
}

// TransactionHash is the dedup key for a ledger line. Two imports of the
// same statement line always hash to the same value.
func TransactionHash(accountID string, date time.Time, amount decimal.Decimal, description, merchant string) string {
	parts := []string{
		accountID,
		date.Format(DateLayout),
		amount.StringFixed(AmountScale),
		strings.TrimSpace(description),
		strings.TrimSpace(merchant),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
