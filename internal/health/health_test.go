package health

import (
	"testing"

	"github.com/dvloznov/finance-health/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func kpis(income, expense string) metrics.KPIs {
	in := decimal.RequireFromString(income)
	out := decimal.RequireFromString(expense)
	net := in.Sub(out)
	rate := 0.0
	if in.IsPositive() {
		rate = net.InexactFloat64() / in.InexactFloat64()
	}
	return metrics.KPIs{TotalIncome: in, TotalExpense: out, NetCashflow: net, SavingsRate: rate}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		k          metrics.KPIs
		w          Weights
		wantScore  float64
		wantSaving float64
		wantExpIn  float64
		wantNet    float64
	}{
		{"scenario", kpis("6200", "2209.99"), DefaultWeights, 69.7, 64.36, 64.36, 100},
		{"all income", kpis("1000", "0"), DefaultWeights, 100, 100, 100, 100},
		{"no income", kpis("0", "500"), DefaultWeights, 0, 0, 0, 0},
		{"empty", kpis("0", "0"), DefaultWeights, 15, 0, 0, 100},
		{"overspent", kpis("1000", "1500"), DefaultWeights, 0, 0, 0, 0},
		{"zero weights", kpis("1000", "0"), Weights{}, 0, 100, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.k, tt.w)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.InDelta(t, tt.wantSaving, got.Components[SavingsRatePct], 0.006)
			assert.InDelta(t, tt.wantExpIn, got.Components[ExpenseToIncomePct], 0.006)
			assert.InDelta(t, tt.wantNet, got.Components[NetPositivePct], 1e-9)
			assert.GreaterOrEqual(t, got.Score, 0.0)
			assert.LessOrEqual(t, got.Score, 100.0)
		})
	}
}

func TestComputeFor(t *testing.T) {
	assert.Equal(t, Compute(metrics.ComputeKPIs(nil), DefaultWeights), ComputeFor(nil, DefaultWeights))
}
