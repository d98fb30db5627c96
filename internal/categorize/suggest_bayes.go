package categorize

import (
	"context"
	"sort"
	"strings"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/jbrukh/bayesian"
)

// BayesSuggester learns from merchants the keyword rules already recognize
// and proposes categories for the merchants they miss.
type BayesSuggester struct {
	rules *RuleSet
}

// NewBayesSuggester creates a BayesSuggester. A nil rules set uses
// DefaultRules.
func NewBayesSuggester(rules *RuleSet) *BayesSuggester {
	if rules == nil {
		rules = NewRuleSet(DefaultRules)
	}
	return &BayesSuggester{rules: rules}
}

func (s *BayesSuggester) Suggest(ctx context.Context, txs []domain.Transaction) (map[string]domain.Category, error) {
	training := map[domain.Category][][]string{}
	unknown := map[string][]string{}

	for _, tx := range txs {
		if tx.Merchant == "" || tx.Amount.IsPositive() {
			continue
		}
		terms := classificationTerms(tx)
		if cat, ok := s.rules.MatchDescription(tx.Description); ok {
			training[cat] = append(training[cat], terms)
			continue
		}
		if _, seen := unknown[tx.Merchant]; !seen {
			unknown[tx.Merchant] = terms
		}
	}
	if len(training) < 2 || len(unknown) == 0 {
		return nil, nil
	}

	classes := make([]bayesian.Class, 0, len(training))
	for cat := range training {
		classes = append(classes, bayesian.Class(cat))
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, class := range classes {
		for _, doc := range training[domain.Category(class)] {
			cl.Learn(doc, class)
		}
	}
	cl.ConvertTermsFreqToTfIdf()

	out := map[string]domain.Category{}
	for merchant, terms := range unknown {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, inx, strict := cl.LogScores(terms)
		if !strict {
			continue
		}
		out[merchant] = domain.Category(classes[inx])
	}
	return out, nil
}

// classificationTerms splits the merchant key and drops digit-only tokens
// such as store numbers.
func classificationTerms(tx domain.Transaction) []string {
	fields := strings.Fields(tx.Merchant)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.Trim(f, "0123456789") == "" {
			continue
		}
		terms = append(terms, f)
	}
	if len(terms) == 0 {
		return fields
	}
	return terms
}
