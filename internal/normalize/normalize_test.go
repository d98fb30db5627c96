package normalize

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/reader"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMap(t *testing.T) {
	m := Map([]string{" Posted Date ", "Narrative", "AMT", "Transaction Date", "CCY", "Balance"})

	assert.Equal(t, 3, m.Index(FieldDate), "transaction date outranks posted date")
	assert.Equal(t, 1, m.Index(FieldDescription))
	assert.Equal(t, 2, m.Index(FieldAmount))
	assert.Equal(t, 4, m.Index(FieldCurrency))
	assert.Equal(t, 5, m.Index(FieldBalance))
	assert.Equal(t, -1, m.Index(FieldType))
	assert.False(t, m.Has(FieldAccount))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in    string
		order DateOrder
		want  civil.Date
		ok    bool
	}{
		{"2025-01-03", MDY, civil.Date{Year: 2025, Month: 1, Day: 3}, true},
		{"03/04/2025", MDY, civil.Date{Year: 2025, Month: 3, Day: 4}, true},
		{"03/04/2025", DMY, civil.Date{Year: 2025, Month: 4, Day: 3}, true},
		{"03.04.2025", DMY, civil.Date{Year: 2025, Month: 4, Day: 3}, true},
		{"3/4/25", MDY, civil.Date{Year: 2025, Month: 3, Day: 4}, true},
		{"2025/1/9", MDY, civil.Date{Year: 2025, Month: 1, Day: 9}, true},
		{"05-Feb-2025", MDY, civil.Date{Year: 2025, Month: 2, Day: 5}, true},
		{"Feb 5, 2025", MDY, civil.Date{Year: 2025, Month: 2, Day: 5}, true},
		{"2025-02-05T10:30:00Z", MDY, civil.Date{Year: 2025, Month: 2, Day: 5}, true},
		{"2025-02-05 10:30:00", MDY, civil.Date{Year: 2025, Month: 2, Day: 5}, true},
		{"13/45/2025", MDY, civil.Date{}, false},
		{"yesterday", MDY, civil.Date{}, false},
		{"", MDY, civil.Date{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in+"/"+string(tt.order), func(t *testing.T) {
			got, ok := ParseDate(tt.in, tt.order)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$1,234.56", "1234.56", true},
		{"-9.99", "-9.99", true},
		{"+12", "12", true},
		{"(12.34)", "-12.34", true},
		{"€ 1 000.50", "1000.50", true},
		{"£5", "5", true},
		{"abc", "", false},
		{"", "", false},
		{"()", "", false},
		{"-3,75", "-3.75", true},
		{"-1200,50", "-1200.50", true},
		{"1.234,56", "1234.56", true},
		{"1,234", "1234", true},
		{"1,234,567", "1234567", true},
		{"12,5", "12.5", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
			}
		})
	}
}

func TestParseAmountDecimalComma(t *testing.T) {
	for in, want := range map[string]string{
		"1.200":     "1200",
		"1.200,50":  "1200.50",
		"-3,75":     "-3.75",
		"(1.000,1)": "-1000.1",
		"42":        "42",
	} {
		got, ok := ParseAmountDecimalComma(in)
		require.True(t, ok, in)
		assert.True(t, got.Equal(dec(want)), "%s: got %s want %s", in, got, want)
	}
}

func TestNormalizeSemicolonExport(t *testing.T) {
	ctx := context.Background()
	data := "date;description;amount;balance\n" +
		"2025-01-03;Rent;-1200,50;1.000,25\n" +
		"2025-01-04;Coffee;-3,75;996,50\n"
	table, err := reader.ParseCSV(ctx, []byte(data))
	require.NoError(t, err)
	require.True(t, table.DecimalComma)

	txs := NewNormalizer(DefaultOptions()).Normalize(ctx, table, "eu.csv", "s1")
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Equal(dec("-1200.50")), "got %s", txs[0].Amount)
	assert.True(t, txs[0].BalanceAfter.Decimal.Equal(dec("1000.25")))
	assert.True(t, txs[1].Amount.Equal(dec("-3.75")), "got %s", txs[1].Amount)
	assert.True(t, txs[1].BalanceAfter.Decimal.Equal(dec("996.50")))
}

func TestClassifyType(t *testing.T) {
	assert.Equal(t, TypeDebit, ClassifyType(" DEBIT "))
	assert.Equal(t, TypeDebit, ClassifyType("dr"))
	assert.Equal(t, TypeCredit, ClassifyType("Salary"))
	assert.Equal(t, TypeUnknown, ClassifyType("pos"))
}

func TestKeywordSign(t *testing.T) {
	tests := []struct {
		desc string
		want int
	}{
		{"Payroll Deposit", 1},
		{"Refund from shop", 1},
		{"Rent - January", -1},
		{"Electric bill", -1},
		{"Deposit fee", 1},
		{"Amazon", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KeywordSign(tt.desc), tt.desc)
	}
}

func TestTransactionIDStable(t *testing.T) {
	tx := domain.Transaction{
		Date:        civil.Date{Year: 2025, Month: 1, Day: 3},
		Amount:      dec("-2200"),
		Merchant:    "rent january",
		Description: "Rent - January",
		Currency:    "USD",
	}
	same := tx
	same.Amount = dec("-2200.00")
	assert.Equal(t, TransactionID(tx, false), TransactionID(same, false))
	assert.Len(t, TransactionID(tx, false), 64)

	other := tx
	other.Description = "Rent - January (2)"
	assert.Equal(t, TransactionID(tx, false), TransactionID(other, false))
	assert.NotEqual(t, TransactionID(tx, true), TransactionID(other, true))
}

func TestNormalize(t *testing.T) {
	table := &reader.Table{
		Headers: []string{"Date", "Description", "Amount", "Type"},
		Rows: [][]string{
			{"2025-01-03", "Rent - January", "-2200", ""},
			{"03/04/2025", "  STARBUCKS   #123 ", "$1,234.56", "debit"},
			{"not a date", "junk", "1", ""},
			{"2025-01-10", "Payroll Deposit", "oops", ""},
			{"2025-01-10", "Payroll Deposit", "6200", "CREDIT"},
			{"2025-01-03", "Rent - January", "-2200.00", ""},
			{"2025-01-11", "", "-5", ""},
		},
	}

	n := NewNormalizer(DefaultOptions())
	got := n.Normalize(context.Background(), table, "/tmp/uploads/jan.csv", "sess-1")

	require.Len(t, got, 4)

	assert.Equal(t, civil.Date{Year: 2025, Month: 1, Day: 3}, got[0].Date)
	assert.True(t, got[0].Amount.Equal(dec("-2200")))
	assert.Equal(t, "debit", got[0].Type)
	assert.Equal(t, "USD", got[0].Currency)
	assert.Equal(t, "rent january", got[0].Merchant)
	assert.Equal(t, "jan.csv", got[0].SourceFile)
	assert.Equal(t, "sess-1", got[0].SessionID)
	assert.Equal(t, domain.Category(""), got[0].Category)

	// debit type forces the sign even though the raw amount is positive
	assert.True(t, got[1].Amount.Equal(dec("-1234.56")))
	assert.Equal(t, "STARBUCKS #123", got[1].Description)
	assert.Equal(t, "starbucks 123", got[1].Merchant)
	assert.Equal(t, civil.Date{Year: 2025, Month: 3, Day: 4}, got[1].Date)

	assert.True(t, got[2].Amount.Equal(dec("6200")))
	assert.Equal(t, "credit", got[2].Type)

	assert.Equal(t, "", got[3].Description)
	assert.Equal(t, "", got[3].Merchant)

	ids := map[string]bool{}
	for _, tx := range got {
		assert.False(t, ids[tx.TransactionID], "duplicate id")
		ids[tx.TransactionID] = true
		assert.False(t, tx.BalanceAfter.Valid)
	}
}

func TestNormalizeSplitColumns(t *testing.T) {
	table := &reader.Table{
		Headers: []string{"Booking Date", "Payee", "Money Out", "Money In", "Currency", "Account", "Running Balance"},
		Rows: [][]string{
			{"2025-02-01", "Tesco", "23.10", "", "gbp", "Current", "976.90"},
			{"2025-02-02", "Salary", "", "3,100.00", "", "Current", "4076.90"},
			{"2025-02-03", "Nothing", "", "", "", "Current", ""},
		},
	}

	got := NewNormalizer(Options{DefaultCurrency: "EUR"}).Normalize(context.Background(), table, "feb.xlsx", "s")

	require.Len(t, got, 2)
	assert.True(t, got[0].Amount.Equal(dec("-23.10")))
	assert.Equal(t, "GBP", got[0].Currency)
	assert.Equal(t, "Current", got[0].AccountName)
	require.True(t, got[0].BalanceAfter.Valid)
	assert.True(t, got[0].BalanceAfter.Decimal.Equal(dec("976.90")))
	assert.True(t, got[1].Amount.Equal(dec("3100")))
	assert.Equal(t, "EUR", got[1].Currency)
}

func TestNormalizeEmpty(t *testing.T) {
	n := NewNormalizer(DefaultOptions())
	assert.Empty(t, n.Normalize(context.Background(), &reader.Table{Headers: []string{"date"}}, "x.csv", "s"))
	assert.Empty(t, n.Normalize(context.Background(), nil, "x.csv", "s"))
}
