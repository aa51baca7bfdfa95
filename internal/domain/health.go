package domain

import "github.com/shopspring/decimal"

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual service.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// ForecastMetrics is returned by GET /v1/metrics/forecast.
type ForecastMetrics struct {
	DashboardsComputed   int64   `json:"dashboardsComputed"`
	DashboardErrors      int64   `json:"dashboardErrors"`
	ErrorRate            float64 `json:"errorRate"`
	OccurrencesProjected int64   `json:"occurrencesProjected"`
	OvercommittedCount   int64   `json:"overcommittedCount"`
	RuleCacheHitRate     float64 `json:"ruleCacheHitRate"`
	Period               string  `json:"period"`
}

// ============================================================
// Forecast API Responses
// ============================================================

// DashboardResponse is the dashboard contract consumed by the frontend.
// Amounts are encoded as decimal strings so no digits are lost.
type DashboardResponse struct {
	AccountID         string             `json:"account_id"`
	AsOf              string             `json:"as_of"`
	SafeToSpend       decimal.Decimal    `json:"safe_to_spend"`
	TotalBalance      decimal.Decimal    `json:"total_balance"`
	PendingBillsTotal decimal.Decimal    `json:"pending_bills_total"`
	BufferTarget      decimal.Decimal    `json:"buffer_target"`
	UpcomingBills     []BillResponse     `json:"upcoming_bills"`
	BurnDownChart     []BalancePointJSON `json:"burn_down_chart"`
}

// BillResponse is one upcoming bill.
type BillResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	DueDate string          `json:"dueDate"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
}

// BalancePointJSON is one burn-down chart point.
type BalancePointJSON struct {
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// RuleResponse is a recurring rule with civil dates.
type RuleResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency Frequency       `json:"frequency"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date,omitempty"`
	IsActive  bool            `json:"is_active"`
}

// TransactionResponse is a ledger line with a civil date.
type TransactionResponse struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
	HashID      string          `json:"hash_id"`
	Status      string          `json:"status"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
