package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"
	"github.com/boddenberg/financeos-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Recurring rules via PostgREST
// ============================================================

func (c *Client) ListActiveRules(ctx context.Context, accountID string, asOf time.Time) ([]domain.RecurringRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListActiveRules")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	path := fmt.Sprintf("recurring_rules?%s&is_active=eq.true&start_date=lte.%s&order=created_at.asc,id.asc",
		eq("account_id", accountID), asOf.Format(domain.DateLayout))
	return c.queryRules(ctx, "rules", path)
}

func (c *Client) ListRules(ctx context.Context, accountID string) ([]domain.RecurringRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRules")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	path := fmt.Sprintf("recurring_rules?%s&order=created_at.asc,id.asc", eq("account_id", accountID))
	return c.queryRules(ctx, "rules", path)
}

func (c *Client) GetRule(ctx context.Context, accountID, ruleID string) (*domain.RecurringRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRule")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", ruleID))

	path := fmt.Sprintf("recurring_rules?%s&%s&limit=1", eq("account_id", accountID), eq("id", ruleID))
	rules, err := c.queryRules(ctx, "rule", path)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, &domain.ErrNotFound{Resource: "rule", ID: ruleID}
	}
	return &rules[0], nil
}

func (c *Client) CreateRule(ctx context.Context, rule *domain.RecurringRule) (*domain.RecurringRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateRule")
	defer span.End()

	var created *domain.RecurringRule
	err := c.execute(ctx, "rules", func() error {
		body, err := c.doRequest(ctx, http.MethodPost, "recurring_rules", ruleToRow(rule), "return=representation")
		if err != nil {
			if isConflict(err) {
				return resilience.Permanent(&domain.ErrDuplicate{Key: rule.ID})
			}
			return err
		}

		var rows []ruleRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return resilience.Permanent(fmt.Errorf("decode created rule: %w", err))
		}
		if len(rows) == 0 {
			return resilience.Permanent(fmt.Errorf("insert returned no rows"))
		}
		r, err := rows[0].toDomain()
		if err != nil {
			return resilience.Permanent(err)
		}
		created = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("supabase: rule created",
		zap.String("rule_id", created.ID),
		zap.String("account_id", created.AccountID),
	)
	return created, nil
}

func (c *Client) DeactivateRule(ctx context.Context, accountID, ruleID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeactivateRule")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", ruleID))

	path := fmt.Sprintf("recurring_rules?%s&%s", eq("account_id", accountID), eq("id", ruleID))
	return c.execute(ctx, "rules", func() error {
		_, err := c.doRequest(ctx, http.MethodPatch, path, map[string]any{"is_active": false}, "return=minimal")
		return err
	})
}

func (c *Client) queryRules(ctx context.Context, op, path string) ([]domain.RecurringRule, error) {
	rules := []domain.RecurringRule{}
	err := c.getAll(ctx, op, path, func(body []byte) (int, error) {
		var rows []ruleRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return 0, fmt.Errorf("decode rules: %w", err)
		}
		for _, row := range rows {
			r, err := row.toDomain()
			if err != nil {
				c.logger.Warn("supabase: skipping malformed rule",
					zap.String("rule_id", row.ID),
					zap.Error(err),
				)
				continue
			}
			rules = append(rules, r)
		}
		return len(rows), nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}
