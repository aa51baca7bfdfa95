package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/boddenberg/financeos-bfa-go/internal/domain"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// RuleFile is a TOML seed file of recurring rules:
//
//	[[rule]]
//	name       = "Rent"
//	amount     = "1200.00"
//	frequency  = "MONTHLY"
//	start_date = 2024-01-05
//	end_date   = 2024-12-05   # optional
type RuleFile struct {
	Rules []RuleEntry `toml:"rule"`
}

// RuleEntry is one [[rule]] table. Dates are TOML local dates.
type RuleEntry struct {
	Name      string          `toml:"name"`
	Amount    decimal.Decimal `toml:"amount"`
	Frequency string          `toml:"frequency"`
	StartDate time.Time       `toml:"start_date"`
	EndDate   *time.Time      `toml:"end_date,omitempty"`
}

// LoadRuleFile reads and parses the seed file at path.
func LoadRuleFile(path string) ([]domain.RecurringRuleRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rule file: %w", err)
	}
	defer f.Close()
	return ParseRuleFile(f)
}

// ParseRuleFile decodes a seed file into create requests. Unknown keys are
// rejected so typos do not silently drop fields.
func ParseRuleFile(r io.Reader) ([]domain.RecurringRuleRequest, error) {
	var file RuleFile
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing rule file: unknown key %q", undecoded[0].String())
	}

	reqs := make([]domain.RecurringRuleRequest, 0, len(file.Rules))
	for i, e := range file.Rules {
		if e.StartDate.IsZero() {
			return nil, fmt.Errorf("rule %d (%q): start_date is required", i+1, e.Name)
		}
		req := domain.RecurringRuleRequest{
			Name:      e.Name,
			Amount:    e.Amount,
			Frequency: domain.Frequency(e.Frequency),
			StartDate: e.StartDate.Format(domain.DateLayout),
		}
		if e.EndDate != nil {
			req.EndDate = e.EndDate.Format(domain.DateLayout)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
