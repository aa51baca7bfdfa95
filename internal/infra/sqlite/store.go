// Package sqlite provides a local SQLite-backed store for recurring rules
// and ledger transactions. Used by the CLI and by the server when Supabase
// is not configured.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register sqlite driver
)

// Store implements port.ForecastStore on a SQLite database file.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the database at the given path.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ============================================================
// Recurring rules
// ============================================================

const ruleColumns = `id, account_id, name, amount, frequency, start_date, end_date, is_active, created_at`

// ListActiveRules returns active rules starting on or before asOf, oldest first.
func (s *Store) ListActiveRules(ctx context.Context, accountID string, asOf time.Time) ([]domain.RecurringRule, error) {
	return s.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules
		 WHERE account_id = ? AND is_active = 1 AND start_date <= ?
		 ORDER BY rowid`,
		accountID, asOf.Format(domain.DateLayout))
}

func (s *Store) ListRules(ctx context.Context, accountID string) ([]domain.RecurringRule, error) {
	return s.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE account_id = ? ORDER BY rowid`,
		accountID)
}

func (s *Store) GetRule(ctx context.Context, accountID, ruleID string) (*domain.RecurringRule, error) {
	rules, err := s.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM recurring_rules WHERE account_id = ? AND id = ?`,
		accountID, ruleID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, &domain.ErrNotFound{Resource: "rule", ID: ruleID}
	}
	return &rules[0], nil
}

func (s *Store) CreateRule(ctx context.Context, rule *domain.RecurringRule) (*domain.RecurringRule, error) {
	created := rule.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	var endDate any
	if rule.EndDate != nil {
		endDate = rule.EndDate.Format(domain.DateLayout)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recurring_rules (`+ruleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		rule.ID, rule.AccountID, rule.Name, rule.Amount.StringFixed(domain.AmountScale), string(rule.Frequency),
		rule.StartDate.Format(domain.DateLayout), endDate, boolToInt(rule.IsActive),
		created.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &domain.ErrDuplicate{Key: rule.ID}
	}

	out := *rule
	out.CreatedAt = created.UTC().Truncate(time.Second)
	return &out, nil
}

func (s *Store) DeactivateRule(ctx context.Context, accountID, ruleID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_rules SET is_active = 0 WHERE account_id = ? AND id = ?`,
		accountID, ruleID)
	if err != nil {
		return fmt.Errorf("deactivating rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "rule", ID: ruleID}
	}
	return nil
}

// queryRules skips rows that cannot be decoded into a rule, so one bad row
// does not take the whole projection down.
func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]domain.RecurringRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rules := []domain.RecurringRule{}
	for rows.Next() {
		var row ruleRow
		if err := rows.Scan(&row.id, &row.accountID, &row.name, &row.amount, &row.frequency,
			&row.startDate, &row.endDate, &row.active, &row.createdAt); err != nil {
			return nil, err
		}
		r, err := row.toDomain()
		if err != nil {
			s.logger.Warn("sqlite: skipping malformed rule",
				zap.String("rule_id", row.id),
				zap.Error(err),
			)
			continue
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ruleRow is a recurring_rules row as stored.
type ruleRow struct {
	id, accountID, name, amount, frequency, startDate, createdAt string
	endDate                                                      sql.NullString
	active                                                       int
}

func (row ruleRow) toDomain() (domain.RecurringRule, error) {
	r := domain.RecurringRule{
		ID:        row.id,
		AccountID: row.accountID,
		Name:      row.name,
		Frequency: domain.Frequency(row.frequency),
		IsActive:  row.active != 0,
	}
	var err error
	if r.Amount, err = decimal.NewFromString(row.amount); err != nil {
		return r, fmt.Errorf("bad amount %q: %w", row.amount, err)
	}
	if r.StartDate, err = time.Parse(domain.DateLayout, row.startDate); err != nil {
		return r, fmt.Errorf("bad start_date: %w", err)
	}
	if row.endDate.Valid && row.endDate.String != "" {
		e, err := time.Parse(domain.DateLayout, row.endDate.String)
		if err != nil {
			return r, fmt.Errorf("bad end_date: %w", err)
		}
		r.EndDate = &e
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, row.createdAt)
	return r, nil
}

// ============================================================
// Ledger
// ============================================================

// GetRealBalance sums REAL transaction amounts exactly.
func (s *Store) GetRealBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT amount FROM transactions WHERE account_id = ? AND status = ?`,
		accountID, domain.TransactionStatusReal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("querying balance: %w", err)
	}
	defer func() { _ = rows.Close() }()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

func (s *Store) ListTransactions(ctx context.Context, accountID string, from, to time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, date, amount, description, merchant, hash_id, status, created_at
		 FROM transactions
		 WHERE account_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, rowid`,
		accountID, from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	txs := []domain.Transaction{}
	for rows.Next() {
		var (
			t                     domain.Transaction
			date, amount, created string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &date, &amount, &t.Description, &t.Merchant, &t.HashID, &t.Status, &created); err != nil {
			return nil, err
		}
		if t.Date, err = time.Parse(domain.DateLayout, date); err != nil {
			return nil, fmt.Errorf("transaction %s: bad date: %w", t.ID, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s: bad amount: %w", t.ID, err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339, created)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// InsertTransaction stores tx unless a line with the same hash exists.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if tx.HashID == "" {
		return nil, errors.New("transaction hash is required")
	}
	created := tx.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, date, amount, description, merchant, hash_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(hash_id) DO NOTHING`,
		tx.ID, tx.AccountID, tx.Date.Format(domain.DateLayout), tx.Amount.StringFixed(domain.AmountScale),
		tx.Description, tx.Merchant, tx.HashID, tx.Status, created.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &domain.ErrDuplicate{Key: tx.HashID}
	}

	out := *tx
	out.CreatedAt = created.UTC().Truncate(time.Second)
	return &out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
