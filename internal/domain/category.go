package domain

import "strings"

// Category is a spend category. The zero value means unset.
type Category string

const (
	CategoryIncome        Category = "income"
	CategoryRentMortgage  Category = "rent_mortgage"
	CategoryUtilities     Category = "utilities"
	CategoryGroceries     Category = "groceries"
	CategoryDining        Category = "dining"
	CategoryTransport     Category = "transport"
	CategorySubscriptions Category = "subscriptions"
	CategoryShopping      Category = "shopping"
	CategoryHealthcare    Category = "healthcare"
	CategoryFees          Category = "fees"
	CategoryTransfer      Category = "transfer"
	CategoryOther         Category = "other"
)

// CategorySource records how a row got its category. Only input categories
// are kept when a session is re-categorized.
type CategorySource string

const (
	CategorySourceInput   CategorySource = "input"
	CategorySourceMap     CategorySource = "map"
	CategorySourceRule    CategorySource = "rule"
	CategorySourceDefault CategorySource = "default"
)

// Categories lists every valid category in canonical order.
var Categories = []Category{
	CategoryIncome,
	CategoryRentMortgage,
	CategoryUtilities,
	CategoryGroceries,
	CategoryDining,
	CategoryTransport,
	CategorySubscriptions,
	CategoryShopping,
	CategoryHealthcare,
	CategoryFees,
	CategoryTransfer,
	CategoryOther,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCategory lower-cases and trims s. ok is false when the result is not a
// known category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", false
	}
	return c, true
}

// CategoryNames returns the category values as plain strings, for prompts.
func CategoryNames() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = string(c)
	}
	return out
}
