package normalize

import "strings"

// Field names a canonical column that may be found in a raw table.
type Field string

const (
	FieldDate        Field = "date"
	FieldAmount      Field = "amount"
	FieldDescription Field = "description"
	FieldCurrency    Field = "currency"
	FieldAccount     Field = "account"
	FieldBalance     Field = "balance"
	FieldType        Field = "type"
	FieldOutflow     Field = "outflow"
	FieldInflow      Field = "inflow"
)

// Aliases lists header names per field in priority order.
var Aliases = map[Field][]string{
	FieldDate:        {"date", "transaction date", "posted date", "posting date", "booking date", "value date"},
	FieldAmount:      {"amount", "amt", "value", "transaction amount"},
	FieldDescription: {"description", "desc", "narrative", "details", "memo", "payee"},
	FieldCurrency:    {"currency", "curr", "ccy"},
	FieldAccount:     {"account", "account name", "account number"},
	FieldBalance:     {"balance", "running balance", "balance after"},
	FieldType:        {"type", "debit/credit", "dr/cr"},
	FieldOutflow:     {"debit", "debit amount", "withdrawal", "withdrawals", "paid out", "money out"},
	FieldInflow:      {"credit", "credit amount", "deposit", "deposits", "paid in", "money in"},
}

// Mapping holds the column index of each resolved field.
type Mapping map[Field]int

// Index returns the column for f, or -1 when the table has none.
func (m Mapping) Index(f Field) int {
	if i, ok := m[f]; ok {
		return i
	}
	return -1
}

// Has reports whether f was resolved.
func (m Mapping) Has(f Field) bool {
	return m.Index(f) >= 0
}

// Map resolves every known field against headers. Headers are compared
// trimmed and lower-cased; the first alias present wins.
func Map(headers []string) Mapping {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}

	m := Mapping{}
	for field, aliases := range Aliases {
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				m[field] = i
				break
			}
		}
	}
	return m
}
