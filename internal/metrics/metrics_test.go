package metrics

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/textnorm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func row(date string, amount, desc string, cat domain.Category) domain.Transaction {
	dt, err := civil.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return domain.Transaction{
		Date:        dt,
		Amount:      d(amount),
		Description: desc,
		Merchant:    textnorm.MerchantKey(desc),
		Category:    cat,
	}
}

func scenario() []domain.Transaction {
	return []domain.Transaction{
		row("2025-01-03", "-2200", "Rent - January", domain.CategoryRentMortgage),
		row("2025-01-07", "-9.99", "Spotify Subscription", domain.CategorySubscriptions),
		row("2025-01-10", "6200", "Payroll Deposit", domain.CategoryIncome),
	}
}

func TestComputeKPIsScenario(t *testing.T) {
	k := ComputeKPIs(scenario())

	assert.True(t, k.TotalIncome.Equal(d("6200")))
	assert.True(t, k.TotalExpense.Equal(d("2209.99")))
	assert.True(t, k.NetCashflow.Equal(d("3990.01")))
	assert.InDelta(t, 0.6435, k.SavingsRate, 0.0001)
}

func TestComputeKPIsEdges(t *testing.T) {
	empty := ComputeKPIs(nil)
	assert.True(t, empty.TotalIncome.IsZero())
	assert.True(t, empty.TotalExpense.IsZero())
	assert.True(t, empty.NetCashflow.IsZero())
	assert.Zero(t, empty.SavingsRate)

	onlyExpense := ComputeKPIs([]domain.Transaction{row("2025-01-01", "-10", "x", "")})
	assert.Zero(t, onlyExpense.SavingsRate)
	assert.True(t, onlyExpense.NetCashflow.Equal(d("-10")))
	assert.False(t, onlyExpense.TotalExpense.IsNegative())
}

func TestMonthlyCashflowMatchesKPIs(t *testing.T) {
	txs := append(scenario(),
		row("2025-02-01", "-100", "Groceries", domain.CategoryGroceries),
		row("2024-12-31", "50", "Refund", domain.CategoryIncome),
		row("2025-02-15", "0", "Zero", domain.CategoryOther),
	)

	months := MonthlyCashflow(txs)
	require.Len(t, months, 3)
	assert.Equal(t, civil.Date{Year: 2024, Month: 12, Day: 1}, months[0].Month)
	assert.Equal(t, civil.Date{Year: 2025, Month: 1, Day: 1}, months[1].Month)
	assert.Equal(t, civil.Date{Year: 2025, Month: 2, Day: 1}, months[2].Month)
	assert.True(t, months[1].Net.Equal(d("3990.01")))

	k := ComputeKPIs(txs)
	income, expense, net := decimal.Zero, decimal.Zero, decimal.Zero
	for _, m := range months {
		income = income.Add(m.Income)
		expense = expense.Add(m.Expense)
		net = net.Add(m.Net)
	}
	assert.True(t, income.Equal(k.TotalIncome))
	assert.True(t, expense.Equal(k.TotalExpense))
	assert.True(t, net.Equal(k.NetCashflow))
}

func TestCategoryBreakdown(t *testing.T) {
	got := CategoryBreakdown(scenario())
	require.Len(t, got, 3)
	assert.Equal(t, "rent_mortgage", got[0].Category)
	assert.True(t, got[0].Spend.Equal(d("2200")))
	assert.Equal(t, "subscriptions", got[1].Category)
	assert.True(t, got[1].Spend.Equal(d("9.99")))
	assert.Equal(t, "income", got[2].Category)
	assert.True(t, got[2].Spend.IsZero())
}

func TestCategoryBreakdownFallsBackToMerchant(t *testing.T) {
	txs := []domain.Transaction{
		row("2025-01-01", "-5", "Cafe B", ""),
		row("2025-01-02", "-5", "Cafe A", ""),
		row("2025-01-03", "-7", "Cafe B", ""),
	}
	got := CategoryBreakdown(txs)
	require.Len(t, got, 2)
	assert.Equal(t, "cafe b", got[0].Category)
	assert.True(t, got[0].Spend.Equal(d("12")))
	assert.Equal(t, "cafe a", got[1].Category)
}

func TestTopMerchants(t *testing.T) {
	txs := []domain.Transaction{
		row("2025-01-01", "-10", "B Shop", ""),
		row("2025-01-02", "-10", "A Shop", ""),
		row("2025-01-03", "-5", "C Shop", ""),
		row("2025-01-04", "-5", "C Shop", ""),
		row("2025-01-05", "100", "Salary", ""),
	}
	got := TopMerchants(txs, 3)
	require.Len(t, got, 3)
	// c shop ties on spend and wins on count; a before b by name
	assert.Equal(t, []string{"c shop", "a shop", "b shop"}, []string{got[0].Merchant, got[1].Merchant, got[2].Merchant})
	assert.Equal(t, 2, got[0].TxCount)

	all := TopMerchants(txs, 0)
	assert.Len(t, all, 4)
	assert.Equal(t, "salary", all[3].Merchant)
}

func TestTopExpenseTransactions(t *testing.T) {
	txs := []domain.Transaction{
		row("2025-01-01", "-10", "first ten", ""),
		row("2025-01-02", "-50", "fifty", ""),
		row("2025-01-03", "20", "income", ""),
		row("2025-01-04", "-10", "second ten", ""),
	}
	got := TopExpenseTransactions(txs, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "fifty", got[0].Description)
	assert.Equal(t, "first ten", got[1].Description, "stable for equal amounts")
}

func TestRecurringCandidates(t *testing.T) {
	txs := []domain.Transaction{
		row("2025-01-05", "-9.99", "Spotify", ""),
		row("2025-02-05", "-9.99", "Spotify", ""),
		row("2025-03-05", "-9.991", "Spotify", ""),
		row("2025-01-01", "-1200", "Rent", ""),
		row("2025-02-01", "-1200", "Rent", ""),
		row("2025-03-01", "-1200", "Rent", ""),
		row("2025-01-10", "-3", "Coffee", ""),
		row("2025-01-11", "-3", "Coffee", ""),
		row("2025-01-12", "3", "Coffee", ""),
	}

	got := RecurringCandidates(txs, DefaultRecurringMinCount, DefaultRecurringLimit)
	require.Len(t, got, 2)
	assert.Equal(t, "rent", got[0].Merchant, "same count, larger amount first")
	assert.Equal(t, "spotify", got[1].Merchant)
	assert.Equal(t, 3, got[1].Count)
	assert.True(t, got[1].AbsAmount.Equal(d("9.99")))
	assert.Equal(t, civil.Date{Year: 2025, Month: 1, Day: 5}, got[1].FirstDate)
	assert.Equal(t, civil.Date{Year: 2025, Month: 3, Day: 5}, got[1].LastDate)

	for _, c := range RecurringCandidates(txs, 2, 0) {
		assert.GreaterOrEqual(t, c.Count, 2)
	}
	assert.Len(t, RecurringCandidates(txs, 2, 0), 3)
	assert.Len(t, RecurringCandidates(txs, 3, 1), 1)
}

func TestSubscriptionMerchants(t *testing.T) {
	txs := []domain.Transaction{
		row("2025-01-05", "-15.49", "NETFLIX.COM", ""),
		row("2025-02-05", "-15.49", "NETFLIX.COM", ""),
		row("2025-01-06", "-2.99", "Apple iCloud storage", ""),
		row("2025-01-07", "-60", "Gym membership", ""),
		row("2025-01-08", "-40", "Groceries", ""),
		row("2025-01-09", "5", "Spotify refund", ""),
	}
	got := SubscriptionMerchants(txs, 10)
	require.Len(t, got, 3)
	assert.Equal(t, "gym membership", got[0].Merchant)
	assert.Equal(t, "netflix com", got[1].Merchant)
	assert.True(t, got[1].Spend.Equal(d("30.98")))
	assert.Equal(t, 2, got[1].TxCount)
	assert.Equal(t, "apple icloud storage", got[2].Merchant)
}
