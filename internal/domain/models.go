// Package domain defines the core entities of the FinanceOS forecast BFA.
// These models are independent of storage and transport and represent the
// canonical data structures used by the projection engine and its callers.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the civil-date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// ============================================================
// Recurring Rules
// ============================================================

// Frequency is how often a recurring rule fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringRule describes a cash event that repeats on a calendar schedule.
//
// Amount follows the obligation convention: a positive amount leaves the
// account (a bill) and is subtracted from the projected balance, a negative
// amount is an inflow (income) and raises it.
//
// EndDate is an inclusive bound; nil means the rule never ends. A rule whose
// EndDate precedes StartDate produces no occurrences.
type RecurringRule struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency Frequency       `json:"frequency"`
	StartDate time.Time       `json:"start_date"`
	EndDate   *time.Time      `json:"end_date,omitempty"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// RecurringRuleRequest is the payload to create a rule.
type RecurringRuleRequest struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency Frequency       `json:"frequency"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date,omitempty"`
}

// ============================================================
// Projection values
// ============================================================

// OccurrenceStatusPending is the only status the engine emits.
const OccurrenceStatusPending = "pending"

// Occurrence is one dated instance of a recurring rule.
// ID is derived from (RuleID, DueDate) and is stable across calls.
type Occurrence struct {
	ID      string
	RuleID  string
	Name    string
	DueDate time.Time
	Amount  decimal.Decimal
	Status  string
}

// BalancePoint is the projected balance at the end of Date.
type BalancePoint struct {
	Date    time.Time
	Balance decimal.Decimal
}

// Summary holds the scalar outputs of the metrics summarizer.
type Summary struct {
	SafeToSpend       decimal.Decimal
	PendingBillsTotal decimal.Decimal
}

// Dashboard is the full forecast for one account as of one day.
type Dashboard struct {
	AccountID         string
	AsOf              time.Time
	SafeToSpend       decimal.Decimal
	TotalBalance      decimal.Decimal
	PendingBillsTotal decimal.Decimal
	BufferTarget      decimal.Decimal
	UpcomingBills     []Occurrence
	BurnDownChart     []BalancePoint
}

// ============================================================
// Ledger
// ============================================================

// Transaction statuses. REAL lines make up the balance; GHOST lines are
// materialized projections and never count towards it.
const (
	TransactionStatusReal  = "REAL"
	TransactionStatusGhost = "GHOST"
)

// Transaction is one ledger line. Positive amounts are credits.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	HashID      string          `json:"hash_id"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionRequest is the payload to record a ledger line.
type TransactionRequest struct {
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	Status      string          `json:"status,omitempty"`
}
