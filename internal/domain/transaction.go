package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one canonical row of a session's table. Negative amounts
// are outflows and positive amounts are inflows.
type Transaction struct {
	TransactionID  string
	Date           civil.Date
	Amount         decimal.Decimal
	Currency       string
	Description    string // whitespace-normalized
	Merchant       string // lowercase alphanumeric key derived from Description
	Category       Category
	CategorySource CategorySource
	Type           string // source hint such as "debit" or "credit"
	AccountName    string // empty means unknown
	BalanceAfter   decimal.NullDecimal
	SourceFile     string
	SessionID      string
}

// IsExpense reports whether the transaction moves money out.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// IsIncome reports whether the transaction moves money in.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// Dedupe drops rows whose TransactionID was already seen, keeping the first
// occurrence and the input order.
func Dedupe(txs []Transaction) []Transaction {
	if len(txs) == 0 {
		return txs
	}
	seen := make(map[string]struct{}, len(txs))
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if _, ok := seen[tx.TransactionID]; ok {
			continue
		}
		seen[tx.TransactionID] = struct{}{}
		out = append(out, tx)
	}
	return out
}

// ResetDerivedCategory clears a category that was not supplied by the input
// file, so the current map and rules decide it again.
func (t *Transaction) ResetDerivedCategory() {
	if t.CategorySource == CategorySourceInput {
		return
	}
	t.Category = ""
	t.CategorySource = ""
}

// Money converts a decimal to float64 for presentation.
func Money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
