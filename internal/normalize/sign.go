package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TypeClass groups source type hints by the direction they imply.
type TypeClass int

const (
	TypeUnknown TypeClass = iota
	TypeDebit
	TypeCredit
)

var debitTypes = map[string]struct{}{
	"debit": {}, "dr": {}, "withdrawal": {}, "payment": {}, "charge": {},
}

var creditTypes = map[string]struct{}{
	"credit": {}, "cr": {}, "deposit": {}, "salary": {}, "refund": {},
}

// ClassifyType maps a raw type hint to its class.
func ClassifyType(hint string) TypeClass {
	h := strings.ToLower(strings.TrimSpace(hint))
	if _, ok := debitTypes[h]; ok {
		return TypeDebit
	}
	if _, ok := creditTypes[h]; ok {
		return TypeCredit
	}
	return TypeUnknown
}

// ApplyClass forces the sign of amount for a known class and returns it
// unchanged otherwise.
func ApplyClass(amount decimal.Decimal, class TypeClass) decimal.Decimal {
	switch class {
	case TypeDebit:
		return amount.Abs().Neg()
	case TypeCredit:
		return amount.Abs()
	}
	return amount
}

// TypeFromSign is the hint recorded when the source carried none.
func TypeFromSign(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "debit"
	}
	return "credit"
}

// IncomeKeywords and ExpenseKeywords drive KeywordSign. Income is checked first.
var (
	IncomeKeywords = []string{
		"salary", "payroll", "deposit", "refund", "rebate",
		"payment received", "payout", "income", "transfer in",
	}
	ExpenseKeywords = []string{
		"rent", "bill", "utility", "electric", "internet", "grocer", "market",
		"subscription", "spotify", "fee", "gas", "transport", "fuel",
		"restaurant", "dining", "coffee", "charge",
	}
)

// KeywordSign scans description for direction keywords: +1 for income,
// -1 for expense and 0 when nothing matches.
func KeywordSign(description string) int {
	d := strings.ToLower(description)
	if containsAny(d, IncomeKeywords) {
		return 1
	}
	if containsAny(d, ExpenseKeywords) {
		return -1
	}
	return 0
}

// ApplyKeywordSign sets the sign of amount from KeywordSign, keeping it when
// no keyword matches.
func ApplyKeywordSign(amount decimal.Decimal, description string) decimal.Decimal {
	switch KeywordSign(description) {
	case 1:
		return amount.Abs()
	case -1:
		return amount.Abs().Neg()
	}
	return amount
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
