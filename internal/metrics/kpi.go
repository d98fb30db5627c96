// Package metrics derives cashflow and spending aggregates from canonical
// transactions. All functions are pure and keep a deterministic order.
package metrics

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/shopspring/decimal"
)

// KPIs are the headline totals of a table.
type KPIs struct {
	TotalIncome  decimal.Decimal // sum of positive amounts
	TotalExpense decimal.Decimal // absolute sum of negative amounts
	NetCashflow  decimal.Decimal
	SavingsRate  float64 // NetCashflow / TotalIncome, 0 without income
}

// ComputeKPIs sums txs. An empty table gives all zeros.
func ComputeKPIs(txs []domain.Transaction) KPIs {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch {
		case tx.Amount.IsPositive():
			income = income.Add(tx.Amount)
		case tx.Amount.IsNegative():
			expense = expense.Add(tx.Amount.Neg())
		}
	}
	net := income.Sub(expense)

	rate := 0.0
	if income.IsPositive() {
		rate = net.InexactFloat64() / income.InexactFloat64()
	}
	return KPIs{
		TotalIncome:  income,
		TotalExpense: expense,
		NetCashflow:  net,
		SavingsRate:  rate,
	}
}

// MonthFlow is the cashflow of one calendar month.
type MonthFlow struct {
	Month   civil.Date // first day of the month
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// MonthlyCashflow groups txs by month, ascending.
func MonthlyCashflow(txs []domain.Transaction) []MonthFlow {
	byMonth := map[civil.Date]*MonthFlow{}
	for _, tx := range txs {
		m := civil.Date{Year: tx.Date.Year, Month: tx.Date.Month, Day: 1}
		f, ok := byMonth[m]
		if !ok {
			f = &MonthFlow{Month: m, Income: decimal.Zero, Expense: decimal.Zero}
			byMonth[m] = f
		}
		switch {
		case tx.Amount.IsPositive():
			f.Income = f.Income.Add(tx.Amount)
		case tx.Amount.IsNegative():
			f.Expense = f.Expense.Add(tx.Amount.Neg())
		}
	}

	out := make([]MonthFlow, 0, len(byMonth))
	for _, f := range byMonth {
		f.Net = f.Income.Sub(f.Expense)
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}
