package report

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenario() []domain.Transaction {
	mk := func(day int, amount, merchant string, cat domain.Category) domain.Transaction {
		return domain.Transaction{
			Date:     civil.Date{Year: 2025, Month: 1, Day: day},
			Amount:   decimal.RequireFromString(amount),
			Merchant: merchant,
			Category: cat,
		}
	}
	return []domain.Transaction{
		mk(3, "-2200", "rent january", domain.CategoryRentMortgage),
		mk(7, "-9.99", "spotify subscription", domain.CategorySubscriptions),
		mk(10, "6200", "payroll deposit", domain.CategoryIncome),
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	r := Build("s1", scenario(), now)

	assert.Equal(t, 1, r.Version)
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, "2025-02-01T11:00:00Z", r.CreatedAt)
	assert.InDelta(t, 6200, r.KPIs.TotalIncome, 1e-9)
	assert.InDelta(t, 2209.99, r.KPIs.TotalExpense, 1e-9)
	assert.InDelta(t, 3990.01, r.KPIs.NetCashflow, 1e-9)
	require.Len(t, r.MonthlyCashflow, 1)
	assert.Equal(t, "2025-01-01", r.MonthlyCashflow[0].Month)
	require.Len(t, r.Categories, 3)
	assert.Equal(t, "rent_mortgage", r.Categories[0].Category)
	assert.Len(t, r.TopMerchants, 3)
	assert.InDelta(t, 69.7, r.HealthScore.Score, 1e-9)
	assert.Nil(t, r.Advice)
}

func TestMarshalShape(t *testing.T) {
	r := Build("s1", scenario(), time.Now())
	data, err := r.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, k := range []string{"version", "session_id", "created_at", "kpis", "monthly_cashflow", "categories", "top_merchants", "health_score", "advice"} {
		assert.Contains(t, raw, k)
	}
	assert.Nil(t, raw["advice"])
	kpis := raw["kpis"].(map[string]any)
	assert.InDelta(t, 2209.99, kpis["total_expense"].(float64), 1e-9)

	r.SetAdvice("## Tips")
	data, err = r.Marshal()
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)
	require.NotNil(t, back.Advice)
	assert.Equal(t, "## Tips", *back.Advice)
}

func TestBuildEmpty(t *testing.T) {
	r := Build("s1", nil, time.Now())
	data, err := r.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"monthly_cashflow": []`)
	assert.Zero(t, r.KPIs.SavingsRate)
}
