package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/forecast"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Recurring Rules
// ============================================================

func (s *ForecastService) ListRules(ctx context.Context, accountID string) ([]domain.RecurringRule, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "ForecastService.ListRules")
	defer span.End()

	return s.store.ListRules(ctx, accountID)
}

func (s *ForecastService) GetRule(ctx context.Context, accountID, ruleID string) (*domain.RecurringRule, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "ForecastService.GetRule")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", ruleID))

	return s.store.GetRule(ctx, accountID, ruleID)
}

// CreateRule validates and stores a new active rule. Rules the engine could
// not expand (unknown frequency, end before start) are rejected here.
func (s *ForecastService) CreateRule(ctx context.Context, accountID string, req *domain.RecurringRuleRequest) (*domain.RecurringRule, error) {
	ctx, span := tracer.Start(ctx, "ForecastService.CreateRule")
	defer span.End()

	rule, err := s.ruleFromRequest(accountID, req)
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateRule(ctx, rule)
	if err != nil {
		s.logger.Error("failed to create rule", zap.String("account_id", accountID), zap.Error(err))
		return nil, err
	}
	s.invalidateRules(accountID)

	s.logger.Info("recurring rule created",
		zap.String("account_id", accountID),
		zap.String("rule_id", created.ID),
		zap.String("frequency", string(created.Frequency)),
		zap.String("amount", created.Amount.String()),
	)
	return created, nil
}

// ImportRules creates a batch of rules. Every request is validated before
// any is stored, so a bad entry leaves the account untouched. Validation
// errors name the 1-based entry that failed.
func (s *ForecastService) ImportRules(ctx context.Context, accountID string, reqs []domain.RecurringRuleRequest) ([]domain.RecurringRule, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "ForecastService.ImportRules")
	defer span.End()
	span.SetAttributes(attribute.Int("rules.count", len(reqs)))

	rules := make([]*domain.RecurringRule, 0, len(reqs))
	for i := range reqs {
		rule, err := s.ruleFromRequest(accountID, &reqs[i])
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i+1, reqs[i].Name, err)
		}
		rules = append(rules, rule)
	}

	created := make([]domain.RecurringRule, 0, len(rules))
	defer func() {
		if len(created) > 0 {
			s.invalidateRules(accountID)
		}
	}()
	for _, rule := range rules {
		c, err := s.store.CreateRule(ctx, rule)
		if err != nil {
			s.logger.Error("rule import stopped",
				zap.String("account_id", accountID),
				zap.Int("created", len(created)),
				zap.Int("total", len(rules)),
				zap.Error(err),
			)
			return created, err
		}
		created = append(created, *c)
	}

	s.logger.Info("recurring rules imported",
		zap.String("account_id", accountID),
		zap.Int("count", len(created)),
	)
	return created, nil
}

// DeactivateRule stops a rule from producing occurrences. The rule itself
// is kept for history.
func (s *ForecastService) DeactivateRule(ctx context.Context, accountID, ruleID string) error {
	if err := requireAccount(accountID); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "ForecastService.DeactivateRule")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", ruleID))

	if _, err := s.store.GetRule(ctx, accountID, ruleID); err != nil {
		return err
	}
	if err := s.store.DeactivateRule(ctx, accountID, ruleID); err != nil {
		s.logger.Error("failed to deactivate rule", zap.String("rule_id", ruleID), zap.Error(err))
		return err
	}
	s.invalidateRules(accountID)

	s.logger.Info("recurring rule deactivated",
		zap.String("account_id", accountID),
		zap.String("rule_id", ruleID),
	)
	return nil
}

func (s *ForecastService) ruleFromRequest(accountID string, req *domain.RecurringRuleRequest) (*domain.RecurringRule, error) {
	if req == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "required"}
	}
	start, err := domain.ParseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}

	rule := &domain.RecurringRule{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Name:      strings.TrimSpace(req.Name),
		Amount:    req.Amount,
		Frequency: domain.Frequency(strings.ToUpper(strings.TrimSpace(string(req.Frequency)))),
		StartDate: start,
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}
	if req.EndDate != "" {
		end, err := domain.ParseDate("end_date", req.EndDate)
		if err != nil {
			return nil, err
		}
		rule.EndDate = &end
	}

	if err := domain.ValidateRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// ============================================================
// Ledger
// ============================================================

// ListTransactions returns ledger lines dated in [from, to]. Empty bounds
// default to the last 30 days up to today.
func (s *ForecastService) ListTransactions(ctx context.Context, accountID, from, to string) ([]domain.Transaction, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "ForecastService.ListTransactions")
	defer span.End()

	today := s.Today()
	toDate, fromDate := today, forecast.AddDays(today, -30)
	var err error
	if to != "" {
		if toDate, err = domain.ParseDate("to", to); err != nil {
			return nil, err
		}
	}
	if from != "" {
		if fromDate, err = domain.ParseDate("from", from); err != nil {
			return nil, err
		}
	}
	if fromDate.After(toDate) {
		return nil, &domain.ErrValidation{Field: "from", Message: "must not be after 'to'"}
	}

	return s.store.ListTransactions(ctx, accountID, fromDate, toDate)
}

// RecordTransaction appends a ledger line. Re-recording the same line
// (same date, amount, description and merchant) fails with ErrDuplicate.
func (s *ForecastService) RecordTransaction(ctx context.Context, accountID string, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if err := requireAccount(accountID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "required"}
	}
	ctx, span := tracer.Start(ctx, "ForecastService.RecordTransaction")
	defer span.End()

	date, err := domain.ParseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckAmount("amount", req.Amount); err != nil {
		return nil, err
	}

	status := strings.ToUpper(strings.TrimSpace(req.Status))
	switch status {
	case "":
		status = domain.TransactionStatusReal
	case domain.TransactionStatusReal, domain.TransactionStatusGhost:
	default:
		return nil, &domain.ErrValidation{Field: "status", Message: "must be REAL or GHOST"}
	}

	tx := &domain.Transaction{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Date:        date,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Merchant:    strings.TrimSpace(req.Merchant),
		HashID:      domain.TransactionHash(accountID, date, req.Amount, req.Description, req.Merchant),
		Status:      status,
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	}

	created, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction recorded",
		zap.String("account_id", accountID),
		zap.String("transaction_id", created.ID),
		zap.String("status", created.Status),
		zap.String("amount", created.Amount.String()),
	)
	return created, nil
}
