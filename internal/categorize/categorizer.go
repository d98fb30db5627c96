// Package categorize assigns spend categories to canonical transactions
// using cached merchant decisions, keyword rules and optional suggesters.
package categorize

import (
	"context"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/logger"
)

// Suggester proposes merchant to category mappings for a table.
type Suggester interface {
	Suggest(ctx context.Context, txs []domain.Transaction) (map[string]domain.Category, error)
}

// SuggesterFunc adapts a function to Suggester.
type SuggesterFunc func(ctx context.Context, txs []domain.Transaction) (map[string]domain.Category, error)

func (f SuggesterFunc) Suggest(ctx context.Context, txs []domain.Transaction) (map[string]domain.Category, error) {
	return f(ctx, txs)
}

// Categorizer assigns categories with the precedence
// explicit > cached map > keyword rule > other.
type Categorizer struct {
	rules     *RuleSet
	suggester Suggester
}

// NewCategorizer creates a Categorizer. A nil rules set uses DefaultRules;
// suggester may be nil.
func NewCategorizer(rules *RuleSet, suggester Suggester) *Categorizer {
	if rules == nil {
		rules = NewRuleSet(DefaultRules)
	}
	return &Categorizer{rules: rules, suggester: suggester}
}

// Categorize fills Category on every row of txs in place. Suggester and map
// save failures are logged and do not stop assignment.
func (c *Categorizer) Categorize(ctx context.Context, txs []domain.Transaction, cm *CategoryMap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	if cm == nil {
		cm = NewCategoryMap(nil, nil)
	}

	if c.suggester != nil && cm.Len() < distinctMerchants(txs) {
		suggested, err := c.suggester.Suggest(ctx, txs)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("category suggester failed")
		case len(suggested) > 0:
			cm.Merge(suggested)
			if err := cm.Save(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to save category map")
			}
			log.Info().Int("suggested", len(suggested)).Int("map_size", cm.Len()).Msg("category map updated")
		}
	}

	counts := map[domain.CategorySource]int{}
	for i := range txs {
		tx := &txs[i]
		switch {
		case tx.Category.Valid():
			if tx.CategorySource == "" {
				tx.CategorySource = domain.CategorySourceInput
			}
		case lookup(cm, tx.Merchant, &tx.Category):
			tx.CategorySource = domain.CategorySourceMap
		default:
			if cat, ok := c.rules.Match(*tx); ok {
				tx.Category = cat
				tx.CategorySource = domain.CategorySourceRule
			} else {
				tx.Category = domain.CategoryOther
				tx.CategorySource = domain.CategorySourceDefault
			}
		}
		counts[tx.CategorySource]++
	}

	log.Debug().
		Int("input", counts[domain.CategorySourceInput]).
		Int("map", counts[domain.CategorySourceMap]).
		Int("rule", counts[domain.CategorySourceRule]).
		Int("default", counts[domain.CategorySourceDefault]).
		Msg("categorized transactions")
	return nil
}

func lookup(cm *CategoryMap, merchant string, dst *domain.Category) bool {
	if merchant == "" {
		return false
	}
	cat, ok := cm.Get(merchant)
	if ok {
		*dst = cat
	}
	return ok
}

func distinctMerchants(txs []domain.Transaction) int {
	seen := map[string]struct{}{}
	for _, tx := range txs {
		if tx.Merchant != "" {
			seen[tx.Merchant] = struct{}{}
		}
	}
	return len(seen)
}
