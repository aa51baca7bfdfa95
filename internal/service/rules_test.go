package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

func TestCreateRule_Success(t *testing.T) {
	store := &mockStore{}
	svc := newService(t, store, day(2024, 1, 1))

	rule, err := svc.CreateRule(context.Background(), "acct-1", &domain.RecurringRuleRequest{
		Name:      "  Rent ",
		Amount:    decimal.RequireFromString("1200.00"),
		Frequency: "monthly",
		StartDate: "2024-01-05",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rule.ID == "" {
		t.Error("expected generated ID")
	}
	if rule.Name != "Rent" {
		t.Errorf("expected trimmed name, got %q", rule.Name)
	}
	if rule.Frequency != domain.FrequencyMonthly {
		t.Errorf("expected MONTHLY, got %s", rule.Frequency)
	}
	if !rule.IsActive {
		t.Error("expected new rule to be active")
	}
	if len(store.rules) != 1 {
		t.Fatalf("expected 1 stored rule, got %d", len(store.rules))
	}
}

func TestCreateRule_Validation(t *testing.T) {
	svc := newService(t, &mockStore{}, day(2024, 1, 1))

	tests := []struct {
		name  string
		req   *domain.RecurringRuleRequest
		field string
	}{
		{"nil body", nil, "body"},
		{"bad start", &domain.RecurringRuleRequest{Name: "x", Amount: decimal.NewFromInt(1), Frequency: "DAILY", StartDate: "01/05/2024"}, "start_date"},
		{"bad frequency", &domain.RecurringRuleRequest{Name: "x", Amount: decimal.NewFromInt(1), Frequency: "HOURLY", StartDate: "2024-01-05"}, "frequency"},
		{"missing name", &domain.RecurringRuleRequest{Amount: decimal.NewFromInt(1), Frequency: "DAILY", StartDate: "2024-01-05"}, "name"},
		{"end before start", &domain.RecurringRuleRequest{Name: "x", Amount: decimal.NewFromInt(1), Frequency: "DAILY", StartDate: "2024-01-05", EndDate: "2024-01-01"}, "end_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRule(context.Background(), "acct-1", tt.req)
			var v *domain.ErrValidation
			if !errors.As(err, &v) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if v.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, v.Field)
			}
		})
	}
}

func TestCreateRule_Precision(t *testing.T) {
	svc := newService(t, &mockStore{}, day(2024, 1, 1))

	_, err := svc.CreateRule(context.Background(), "acct-1", &domain.RecurringRuleRequest{
		Name:      "Odd",
		Amount:    decimal.RequireFromString("10.005"),
		Frequency: "DAILY",
		StartDate: "2024-01-01",
	})
	var p *domain.ErrPrecision
	if !errors.As(err, &p) {
		t.Fatalf("expected ErrPrecision, got %v", err)
	}
}

func TestCreateRule_InvalidatesCache(t *testing.T) {
	store := &mockStore{}
	svc := newService(t, store, day(2024, 1, 1))
	ctx := context.Background()

	before, err := svc.UpcomingBills(ctx, "acct-1", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 0 {
		t.Fatalf("expected no bills, got %d", len(before))
	}

	if _, err := svc.CreateRule(ctx, "acct-1", &domain.RecurringRuleRequest{
		Name: "Rent", Amount: decimal.NewFromInt(900), Frequency: "MONTHLY", StartDate: "2024-01-10",
	}); err != nil {
		t.Fatal(err)
	}

	after, err := svc.UpcomingBills(ctx, "acct-1", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 1 {
		t.Fatalf("expected new rule to be visible, got %d bills", len(after))
	}
}

func TestImportRules_AllOrNothing(t *testing.T) {
	store := &mockStore{}
	svc := newService(t, store, day(2024, 1, 1))

	reqs := []domain.RecurringRuleRequest{
		{Name: "Rent", Amount: decimal.NewFromInt(1200), Frequency: "MONTHLY", StartDate: "2024-01-05"},
		{Name: "Gym", Amount: decimal.NewFromInt(30), Frequency: "FORTNIGHTLY", StartDate: "2024-01-03"},
		{Name: "Phone", Amount: decimal.NewFromInt(50), Frequency: "MONTHLY", StartDate: "2024-01-20"},
	}

	created, err := svc.ImportRules(context.Background(), "acct-1", reqs)
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "rule 2") {
		t.Errorf("expected the failing entry to be named, got %q", err)
	}
	if len(created) != 0 {
		t.Errorf("expected nothing created, got %d", len(created))
	}
	if len(store.rules) != 0 {
		t.Fatalf("expected no stored rules, got %d", len(store.rules))
	}
}

func TestImportRules_Success(t *testing.T) {
	store := &mockStore{}
	svc := newService(t, store, day(2024, 1, 1))

	created, err := svc.ImportRules(context.Background(), "acct-1", []domain.RecurringRuleRequest{
		{Name: "Rent", Amount: decimal.NewFromInt(1200), Frequency: "MONTHLY", StartDate: "2024-01-05"},
		{Name: "Gym", Amount: decimal.NewFromInt(30), Frequency: "weekly", StartDate: "2024-01-03"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(created) != 2 || len(store.rules) != 2 {
		t.Fatalf("expected 2 created and stored, got %d/%d", len(created), len(store.rules))
	}
	if created[0].ID == created[1].ID {
		t.Error("expected distinct IDs")
	}
}

func TestImportRules_PrecisionNamesEntry(t *testing.T) {
	store := &mockStore{}
	svc := newService(t, store, day(2024, 1, 1))

	_, err := svc.ImportRules(context.Background(), "acct-1", []domain.RecurringRuleRequest{
		{Name: "Rent", Amount: decimal.RequireFromString("10.005"), Frequency: "MONTHLY", StartDate: "2024-01-05"},
	})
	var p *domain.ErrPrecision
	if !errors.As(err, &p) {
		t.Fatalf("expected ErrPrecision, got %v", err)
	}
	if len(store.rules) != 0 {
		t.Errorf("expected no stored rules, got %d", len(store.rules))
	}
}

func TestDeactivateRule(t *testing.T) {
	store := &mockStore{rules: []domain.RecurringRule{monthlyRule("rent", "1200", day(2024, 1, 5))}}
	svc := newService(t, store, day(2024, 1, 1))
	ctx := context.Background()

	if bills, _ := svc.UpcomingBills(ctx, "acct-1", 30); len(bills) != 1 {
		t.Fatalf("expected 1 bill before deactivation, got %d", len(bills))
	}
	if err := svc.DeactivateRule(ctx, "acct-1", "rent"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	bills, err := svc.UpcomingBills(ctx, "acct-1", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 0 {
		t.Errorf("expected no bills after deactivation, got %d", len(bills))
	}
}

func TestDeactivateRule_NotFound(t *testing.T) {
	svc := newService(t, &mockStore{}, day(2024, 1, 1))

	err := svc.DeactivateRule(context.Background(), "acct-1", "missing")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordTransaction(t *testing.T) {
	store := &mockStore{}
	svc := newService(t, store, day(2024, 1, 1))
	ctx := context.Background()

	req := &domain.TransactionRequest{
		Date:        "2024-01-02",
		Amount:      decimal.RequireFromString("-42.10"),
		Description: "Coffee",
		Merchant:    "Cafe",
	}

	tx, err := svc.RecordTransaction(ctx, "acct-1", req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tx.Status != domain.TransactionStatusReal {
		t.Errorf("expected default status REAL, got %s", tx.Status)
	}
	if tx.HashID == "" {
		t.Error("expected hash to be set")
	}

	_, err = svc.RecordTransaction(ctx, "acct-1", req)
	var dup *domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicate on second insert, got %v", err)
	}
}

func TestRecordTransaction_Validation(t *testing.T) {
	svc := newService(t, &mockStore{}, day(2024, 1, 1))
	ctx := context.Background()

	_, err := svc.RecordTransaction(ctx, "acct-1", &domain.TransactionRequest{
		Date: "2024-01-02", Amount: decimal.NewFromInt(1), Status: "PENDING",
	})
	var v *domain.ErrValidation
	if !errors.As(err, &v) || v.Field != "status" {
		t.Errorf("expected status validation error, got %v", err)
	}

	_, err = svc.RecordTransaction(ctx, "acct-1", &domain.TransactionRequest{
		Date: "tomorrow", Amount: decimal.NewFromInt(1),
	})
	if !errors.As(err, &v) || v.Field != "date" {
		t.Errorf("expected date validation error, got %v", err)
	}
}

func TestListTransactions_RangeValidation(t *testing.T) {
	svc := newService(t, &mockStore{}, day(2024, 1, 1))

	_, err := svc.ListTransactions(context.Background(), "acct-1", "2024-02-01", "2024-01-01")
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
