package metrics

import (
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/shopspring/decimal"
)

// Recurring detection defaults.
const (
	DefaultRecurringMinCount = 3
	DefaultRecurringLimit    = 15
)

// SubscriptionKeywords mark descriptions of subscription charges.
var SubscriptionKeywords = []string{
	"subscription", "netflix", "spotify", "hulu", "apple music", "prime", "youtube",
	"membership", "audible", "xbox", "playstation", "icloud", "dropbox", "patreon",
}

// TopExpenseTransactions returns the largest outflows, most negative first.
// Equal amounts keep input order.
func TopExpenseTransactions(txs []domain.Transaction, limit int) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Amount.IsNegative() {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount.LessThan(out[j].Amount) })
	return truncate(out, limit)
}

// RecurringCandidate is a repeated outflow of the same size at one merchant.
type RecurringCandidate struct {
	Merchant  string
	AbsAmount decimal.Decimal
	Count     int
	FirstDate civil.Date
	LastDate  civil.Date
}

// RecurringCandidates groups outflows by merchant and absolute amount rounded
// to cents, keeps groups seen at least minCount times and ranks them by count
// then amount, both descending.
func RecurringCandidates(txs []domain.Transaction, minCount, limit int) []RecurringCandidate {
	type key struct {
		merchant string
		amount   string
	}
	groups := map[key]*RecurringCandidate{}
	for _, tx := range txs {
		if !tx.Amount.IsNegative() {
			continue
		}
		abs := tx.Amount.Abs().Round(2)
		k := key{tx.Merchant, abs.StringFixed(2)}
		g, ok := groups[k]
		if !ok {
			g = &RecurringCandidate{Merchant: tx.Merchant, AbsAmount: abs, FirstDate: tx.Date, LastDate: tx.Date}
			groups[k] = g
		}
		g.Count++
		if tx.Date.Before(g.FirstDate) {
			g.FirstDate = tx.Date
		}
		if tx.Date.After(g.LastDate) {
			g.LastDate = tx.Date
		}
	}

	out := make([]RecurringCandidate, 0, len(groups))
	for _, g := range groups {
		if g.Count >= minCount {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if c := out[i].AbsAmount.Cmp(out[j].AbsAmount); c != 0 {
			return c > 0
		}
		return out[i].Merchant < out[j].Merchant
	})
	return truncate(out, limit)
}

// SubscriptionMerchants ranks merchants of outflows whose description names
// a subscription service.
func SubscriptionMerchants(txs []domain.Transaction, limit int) []MerchantSpend {
	return rankMerchants(txs, func(tx domain.Transaction) bool {
		if !tx.Amount.IsNegative() {
			return false
		}
		d := strings.ToLower(tx.Description)
		for _, k := range SubscriptionKeywords {
			if strings.Contains(d, k) {
				return true
			}
		}
		return false
	}, limit)
}
