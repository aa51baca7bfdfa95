// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the forecast
// service from concrete storage implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// RuleStore reads and writes recurring rules.
type RuleStore interface {
	// ListActiveRules returns the active rules of the account whose start
	// date is on or before asOf, in insertion order.
	ListActiveRules(ctx context.Context, accountID string, asOf time.Time) ([]domain.RecurringRule, error)
	ListRules(ctx context.Context, accountID string) ([]domain.RecurringRule, error)
	GetRule(ctx context.Context, accountID, ruleID string) (*domain.RecurringRule, error)
	CreateRule(ctx context.Context, rule *domain.RecurringRule) (*domain.RecurringRule, error)
	DeactivateRule(ctx context.Context, accountID, ruleID string) error
}

// LedgerStore reads and writes ledger transactions.
type LedgerStore interface {
	// GetRealBalance sums every REAL transaction amount of the account.
	GetRealBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, accountID string, from, to time.Time) ([]domain.Transaction, error)
	// InsertTransaction fails with *domain.ErrDuplicate when the hash
	// already exists.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
}

// ForecastStore is everything the forecast service needs from storage.
// Implemented by the Supabase and SQLite adapters.
type ForecastStore interface {
	RuleStore
	LedgerStore
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// RuleCache caches per-account rule sets and can drop every entry of an
// account at once.
type RuleCache interface {
	Cache[[]domain.RecurringRule]
	DeletePrefix(prefix string)
}
