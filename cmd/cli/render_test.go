package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/health"
	"github.com/dvloznov/finance-health/internal/report"
	"github.com/dvloznov/finance-health/internal/session"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestRenderReport(t *testing.T) {
	r := &report.Report{
		CreatedAt:       "2025-03-01T00:00:00Z",
		KPIs:            report.KPIs{TotalIncome: 5000, TotalExpense: 3000, NetCashflow: 2000, SavingsRate: 0.4},
		MonthlyCashflow: []report.Month{{Month: "2025-01", Income: 5000, Expense: 3000, Net: 2000}},
		Categories:      []report.Category{{Category: "rent_mortgage", Spend: 2000}},
		TopMerchants:    []report.Merchant{{Merchant: "landlord", Spend: 2000, TxCount: 1}},
		HealthScore:     health.Score{Score: 72.5},
	}
	s := session.Session{ID: "abc", Title: "Q1"}

	var buf bytes.Buffer
	renderReport(&buf, s, r)
	out := buf.String()

	assert.Contains(t, out, "Financial health: Q1")
	assert.Contains(t, out, "Health score: 72.5")
	assert.Contains(t, out, "savings rate 40.0%")
	assert.Contains(t, out, "2025-01")
	assert.Contains(t, out, "rent_mortgage")
	assert.Contains(t, out, "none yet")

	r.SetAdvice("## At a glance\n- fine")
	buf.Reset()
	renderReport(&buf, s, r)
	assert.Contains(t, buf.String(), "## At a glance")
}

func TestRenderSessions(t *testing.T) {
	var buf bytes.Buffer
	renderSessions(&buf, nil)
	assert.Equal(t, "No sessions.\n", buf.String())

	buf.Reset()
	renderSessions(&buf, []session.Session{{ID: "s1", CreatedAt: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)}})
	assert.Equal(t, "s1  2025-01-02 03:04  (untitled)\n", buf.String())
}

func TestRenderCategoriesSorted(t *testing.T) {
	var buf bytes.Buffer
	renderCategories(&buf, map[string]domain.Category{"zeta": domain.CategoryOther, "alpha": domain.CategoryDining})
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.True(t, bytes.HasPrefix(lines[0], []byte("alpha")))
}
