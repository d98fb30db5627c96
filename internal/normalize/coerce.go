package normalize

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DateOrder picks how ambiguous numeric dates such as 03-04-2024 are read.
type DateOrder string

const (
	MDY DateOrder = "mdy"
	DMY DateOrder = "dmy"
)

// Layouts with a time component, tried before separators are rewritten.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

var isoLayouts = []string{"2006-01-02", "2006-1-2"}

var mdyLayouts = []string{"01-02-2006", "1-2-2006", "01-02-06", "1-2-06"}

var dmyLayouts = []string{"02-01-2006", "2-1-2006", "02-01-06", "2-1-06"}

var namedMonthLayouts = []string{
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// ParseDate coerces a raw cell to a calendar date. ok is false when no
// layout matches.
func ParseDate(raw string, order DateOrder) (civil.Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return civil.Date{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}

	s = strings.NewReplacer(".", "-", "/", "-").Replace(s)

	numeric := mdyLayouts
	if order == DMY {
		numeric = dmyLayouts
	}
	for _, group := range [][]string{isoLayouts, numeric, namedMonthLayouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return civil.DateOf(t), true
			}
		}
	}
	return civil.Date{}, false
}

var amountStripper = strings.NewReplacer(
	" ", "", "\t", "", "\u00a0", "", "'", "",
	"$", "", "€", "", "£", "", "¥", "",
)

// ParseAmount coerces a raw money cell. Whitespace and currency symbols are
// dropped; "(12.34)" reads as -12.34. When both ',' and '.' appear the later
// one is the decimal mark. A single ',' followed by one or two digits is a
// decimal comma ("-3,75"); any other ',' groups thousands.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	return parseAmount(raw, false)
}

// ParseAmountDecimalComma reads cells of exports that always use ',' as the
// decimal mark and '.' to group thousands.
func ParseAmountDecimalComma(raw string) (decimal.Decimal, bool) {
	return parseAmount(raw, true)
}

func parseAmount(raw string, decimalComma bool) (decimal.Decimal, bool) {
	s := amountStripper.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(separators(s, decimalComma))
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Abs().Neg()
	}
	return d, true
}

// separators rewrites s so that '.' is the only decimal mark and no
// grouping characters remain.
func separators(s string, decimalComma bool) string {
	if decimalComma {
		return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	}
	lastComma := strings.LastIndex(s, ",")
	if lastComma < 0 {
		return s
	}
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastDot > lastComma:
		return strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	case strings.Count(s, ",") == 1 && fractionDigits(s[lastComma+1:]):
		return strings.Replace(s, ",", ".", 1)
	default:
		return strings.ReplaceAll(s, ",", "")
	}
}

func fractionDigits(s string) bool {
	if len(s) == 0 || len(s) > 2 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// optionalAmount applies parse to a nullable column.
func optionalAmount(parse func(string) (decimal.Decimal, bool), raw string) decimal.NullDecimal {
	d, ok := parse(raw)
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}
