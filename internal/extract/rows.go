package extract

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/normalize"
	"github.com/shopspring/decimal"
)

// toTransaction coerces one model object. ok is false when the row has no
// usable date or amount.
func toTransaction(obj map[string]any, opts normalize.Options) (domain.Transaction, bool) {
	date, ok := normalize.ParseDate(stringField(obj, "date"), opts.DateOrder)
	if !ok {
		return domain.Transaction{}, false
	}
	amount, ok := amountField(obj, "amount")
	if !ok {
		return domain.Transaction{}, false
	}

	description := stringField(obj, "description")
	if strings.TrimSpace(description) == "" {
		description = stringField(obj, "merchant")
	}

	typ := strings.ToLower(stringField(obj, "type"))
	if class := normalize.ClassifyType(typ); class != normalize.TypeUnknown {
		amount = normalize.ApplyClass(amount, class)
	} else {
		amount = normalize.ApplyKeywordSign(amount, description)
	}
	if typ == "" {
		typ = normalize.TypeFromSign(amount)
	}

	currency := strings.ToUpper(stringField(obj, "currency"))
	if currency == "" {
		currency = opts.DefaultCurrency
	}

	category, _ := domain.ParseCategory(stringField(obj, "category"))

	var balance decimal.NullDecimal
	if b, ok := amountField(obj, "balance_after"); ok {
		balance = decimal.NewNullDecimal(b)
	}

	return domain.Transaction{
		Date:         date,
		Amount:       amount,
		Currency:     currency,
		Description:  description,
		Category:     category,
		Type:         typ,
		AccountName:  strings.TrimSpace(stringField(obj, "account_name")),
		BalanceAfter: balance,
	}, true
}

// stringField returns m[key] as a trimmed string. Numbers are formatted;
// null, missing and other types give "".
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return decimal.NewFromFloat(v).String()
	case bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// amountField accepts a JSON number or a money string.
func amountField(m map[string]any, key string) (decimal.Decimal, bool) {
	switch v := m[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		return normalize.ParseAmount(v)
	default:
		return decimal.Decimal{}, false
	}
}
