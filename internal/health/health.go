// Package health condenses KPIs into a composite 0-100 financial health score.
package health

import (
	"math"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/metrics"
)

// Component keys of Score.Components.
const (
	SavingsRatePct     = "savings_rate_pct"
	ExpenseToIncomePct = "expense_to_income_pct"
	NetPositivePct     = "net_positive_pct"
)

// Weights balance the score components. They need not sum to 1.
type Weights struct {
	SavingsRate     float64 `yaml:"savings_rate" json:"savings_rate"`
	ExpenseToIncome float64 `yaml:"expense_to_income" json:"expense_to_income"`
	NetPositive     float64 `yaml:"net_positive" json:"net_positive"`
}

// DefaultWeights favour the savings rate.
var DefaultWeights = Weights{SavingsRate: 0.6, ExpenseToIncome: 0.25, NetPositive: 0.15}

// Score is the composite score, rounded to 1dp, and its components rounded
// to 2dp.
type Score struct {
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
}

// Compute scores k.
func Compute(k metrics.KPIs, w Weights) Score {
	savingsPct := clamp(k.SavingsRate * 100)

	ratio := 1.0
	if k.TotalIncome.IsPositive() {
		ratio = k.TotalExpense.InexactFloat64() / k.TotalIncome.InexactFloat64()
	}
	expensePct := clamp((1 - ratio) * 100)

	netPct := 0.0
	if !k.NetCashflow.IsNegative() {
		netPct = 100
	}

	total := w.SavingsRate + w.ExpenseToIncome + w.NetPositive
	if total == 0 {
		total = 1
	}
	score := (w.SavingsRate*savingsPct + w.ExpenseToIncome*expensePct + w.NetPositive*netPct) / total

	return Score{
		Score: round(clamp(score), 1),
		Components: map[string]float64{
			SavingsRatePct:     round(savingsPct, 2),
			ExpenseToIncomePct: round(expensePct, 2),
			NetPositivePct:     round(netPct, 2),
		},
	}
}

// ComputeFor scores a transaction table.
func ComputeFor(txs []domain.Transaction, w Weights) Score {
	return Compute(metrics.ComputeKPIs(txs), w)
}

func clamp(x float64) float64 {
	return math.Max(0, math.Min(100, x))
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
