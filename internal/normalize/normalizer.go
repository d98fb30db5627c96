// Package normalize turns raw tables from heterogeneous bank exports into
// canonical transactions.
package normalize

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/dvloznov/finance-health/internal/reader"
	"github.com/dvloznov/finance-health/internal/textnorm"
	"github.com/shopspring/decimal"
)

// Options configure normalization.
type Options struct {
	DateOrder                   DateOrder
	DefaultCurrency             string
	IdentityIncludesDescription bool
}

// DefaultOptions returns month-first dates, USD and the four-part identity.
func DefaultOptions() Options {
	return Options{DateOrder: MDY, DefaultCurrency: "USD"}
}

// Normalizer maps raw tables to canonical transactions without any model call.
type Normalizer struct {
	opts Options
}

// NewNormalizer creates a Normalizer. Empty option fields take defaults.
func NewNormalizer(opts Options) *Normalizer {
	if opts.DateOrder == "" {
		opts.DateOrder = MDY
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}
	return &Normalizer{opts: opts}
}

// Options returns the effective options.
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize converts table into canonical rows. Rows without a parseable date
// or amount are dropped; the result is deduplicated by transaction id.
func (n *Normalizer) Normalize(ctx context.Context, table *reader.Table, sourceFile, sessionID string) []domain.Transaction {
	log := logger.FromContext(ctx)
	if table == nil || len(table.Rows) == 0 {
		return []domain.Transaction{}
	}

	m := Map(table.Headers)
	amountOf := ParseAmount
	if table.DecimalComma {
		amountOf = ParseAmountDecimalComma
	}
	splitColumns := !m.Has(FieldAmount) && (m.Has(FieldOutflow) || m.Has(FieldInflow))

	txs := make([]domain.Transaction, 0, len(table.Rows))
	dropped := 0
	for _, row := range table.Rows {
		cell := func(f Field) string {
			i := m.Index(f)
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		date, ok := ParseDate(cell(FieldDate), n.opts.DateOrder)
		if !ok {
			dropped++
			continue
		}

		var amount decimal.Decimal
		if splitColumns {
			amount, ok = splitAmount(amountOf, cell(FieldOutflow), cell(FieldInflow))
		} else {
			amount, ok = amountOf(cell(FieldAmount))
		}
		if !ok {
			dropped++
			continue
		}

		typ := strings.ToLower(cell(FieldType))
		if typ == "" {
			typ = TypeFromSign(amount)
		} else {
			amount = ApplyClass(amount, ClassifyType(typ))
		}

		currency := strings.ToUpper(cell(FieldCurrency))
		if currency == "" {
			currency = n.opts.DefaultCurrency
		}

		txs = append(txs, domain.Transaction{
			Date:         date,
			Amount:       amount,
			Currency:     currency,
			Description:  cell(FieldDescription),
			Type:         typ,
			AccountName:  cell(FieldAccount),
			BalanceAfter: optionalAmount(amountOf, cell(FieldBalance)),
		})
	}

	out := Finish(txs, sourceFile, sessionID, n.opts.IdentityIncludesDescription)
	log.Debug().
		Str("file", filepath.Base(sourceFile)).
		Int("rows", len(table.Rows)).
		Int("dropped", dropped).
		Int("kept", len(out)).
		Msg("normalized table")
	return out
}

// splitAmount reads separate outflow and inflow cells as inflow - outflow.
// Empty cells count as zero; both empty is not a transaction.
func splitAmount(parse func(string) (decimal.Decimal, bool), out, in string) (decimal.Decimal, bool) {
	if out == "" && in == "" {
		return decimal.Decimal{}, false
	}
	total := decimal.Zero
	if out != "" {
		d, ok := parse(out)
		if !ok {
			return decimal.Decimal{}, false
		}
		total = total.Sub(d.Abs())
	}
	if in != "" {
		d, ok := parse(in)
		if !ok {
			return decimal.Decimal{}, false
		}
		total = total.Add(d.Abs())
	}
	return total, true
}

// Finish cleans descriptions, derives merchant keys and ids, stamps the
// source file base name and session, and dedupes. Input order is kept.
func Finish(txs []domain.Transaction, sourceFile, sessionID string, withDescription bool) []domain.Transaction {
	base := filepath.Base(sourceFile)
	for i := range txs {
		tx := &txs[i]
		tx.Description = textnorm.CleanDescription(tx.Description)
		tx.Merchant = textnorm.MerchantKey(tx.Description)
		tx.SourceFile = base
		tx.SessionID = sessionID
		tx.TransactionID = TransactionID(*tx, withDescription)
	}
	return domain.Dedupe(txs)
}
