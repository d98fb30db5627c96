package metrics

import (
	"sort"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/shopspring/decimal"
)

// Uncategorized labels rows without a category when others have one.
const Uncategorized = "uncategorized"

// CategorySpend is the outflow of one category.
type CategorySpend struct {
	Category string
	Spend    decimal.Decimal
}

// CategoryBreakdown sums outflows per category, or per merchant when no row
// carries a category. Sorted by spend descending, then name ascending.
func CategoryBreakdown(txs []domain.Transaction) []CategorySpend {
	byMerchant := true
	for _, tx := range txs {
		if tx.Category != "" {
			byMerchant = false
			break
		}
	}

	spend := map[string]decimal.Decimal{}
	for _, tx := range txs {
		key := string(tx.Category)
		if byMerchant {
			key = tx.Merchant
		} else if key == "" {
			key = Uncategorized
		}
		s, ok := spend[key]
		if !ok {
			s = decimal.Zero
		}
		if tx.Amount.IsNegative() {
			s = s.Add(tx.Amount.Neg())
		}
		spend[key] = s
	}

	out := make([]CategorySpend, 0, len(spend))
	for k, s := range spend {
		out = append(out, CategorySpend{Category: k, Spend: s})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Spend.Cmp(out[j].Spend); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MerchantSpend is the outflow and row count of one merchant.
type MerchantSpend struct {
	Merchant string
	Spend    decimal.Decimal
	TxCount  int
}

// TopMerchants ranks merchants by spend, then count, then name, and keeps
// the first limit. limit <= 0 keeps all.
func TopMerchants(txs []domain.Transaction, limit int) []MerchantSpend {
	return rankMerchants(txs, func(domain.Transaction) bool { return true }, limit)
}

func rankMerchants(txs []domain.Transaction, keep func(domain.Transaction) bool, limit int) []MerchantSpend {
	groups := map[string]*MerchantSpend{}
	for _, tx := range txs {
		if !keep(tx) {
			continue
		}
		g, ok := groups[tx.Merchant]
		if !ok {
			g = &MerchantSpend{Merchant: tx.Merchant, Spend: decimal.Zero}
			groups[tx.Merchant] = g
		}
		g.TxCount++
		if tx.Amount.IsNegative() {
			g.Spend = g.Spend.Add(tx.Amount.Neg())
		}
	}

	out := make([]MerchantSpend, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Spend.Cmp(out[j].Spend); c != 0 {
			return c > 0
		}
		if out[i].TxCount != out[j].TxCount {
			return out[i].TxCount > out[j].TxCount
		}
		return out[i].Merchant < out[j].Merchant
	})
	return truncate(out, limit)
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
