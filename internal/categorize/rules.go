package categorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/finance-health/internal/domain"
	yaml "gopkg.in/yaml.v2"
)

// Rule assigns Category to descriptions containing any of Keywords.
type Rule struct {
	Category domain.Category `yaml:"category"`
	Keywords []string        `yaml:"keywords"`
}

// DefaultRules are the built-in keyword rules, checked in order after the
// income rule.
var DefaultRules = []Rule{
	{domain.CategoryRentMortgage, []string{"rent", "mortgage"}},
	{domain.CategoryUtilities, []string{"electric", "water", "gas bill", "internet", "utility", "utilities"}},
	{domain.CategoryGroceries, []string{"grocery", "grocer", "whole foods", "trader joe", "supermarket"}},
	{domain.CategoryDining, []string{"restaurant", "dinner", "lunch", "cafe", "coffee"}},
	{domain.CategoryTransport, []string{"uber", "lyft", "transport", "gas station", "fuel", "metro", "bus"}},
	{domain.CategorySubscriptions, []string{"subscription", "netflix", "spotify", "hulu", "apple music", "prime", "youtube"}},
	{domain.CategoryFees, []string{"fee", "charge", "atm fee", "maintenance fee"}},
}

// RuleSet matches transactions against keyword rules.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet lower-cases keywords and drops empty ones.
func NewRuleSet(rules []Rule) *RuleSet {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		if len(kws) > 0 {
			out = append(out, Rule{Category: r.Category, Keywords: kws})
		}
	}
	return &RuleSet{rules: out}
}

// LoadRules reads a YAML list of {category, keywords}. Unknown categories are
// rejected.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadRules: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("LoadRules: parse %s: %w", path, err)
	}
	for i, r := range rules {
		c, ok := domain.ParseCategory(string(r.Category))
		if !ok {
			return nil, fmt.Errorf("LoadRules: rule %d has unknown category %q", i, r.Category)
		}
		rules[i].Category = c
	}
	return rules, nil
}

// Match returns the category of the first rule that fits tx. Positive
// amounts are always income.
func (rs *RuleSet) Match(tx domain.Transaction) (domain.Category, bool) {
	if tx.Amount.IsPositive() {
		return domain.CategoryIncome, true
	}
	return rs.MatchDescription(tx.Description)
}

// MatchDescription applies only the keyword rules.
func (rs *RuleSet) MatchDescription(description string) (domain.Category, bool) {
	d := strings.ToLower(description)
	for _, r := range rs.rules {
		for _, k := range r.Keywords {
			if strings.Contains(d, k) {
				return r.Category, true
			}
		}
	}
	return "", false
}
