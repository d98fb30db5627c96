package notionsync

import (
	"time"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropSessionID     = "Session ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropCurrency      = "Currency"
	PropCategory      = "Category"
	PropMerchant      = "Merchant"
	PropAccount       = "Account"
	PropBalanceAfter  = "Balance After"
	PropSourceFile    = "Source File"
	PropDirection     = "Direction"
)

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: s},
			},
		},
	}
}

// TransactionToNotionProperties converts a canonical row to page properties.
// Empty optional fields are left out.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	date := notionapi.Date(time.Date(tx.Date.Year, tx.Date.Month, tx.Date.Day, 0, 0, 0, 0, time.UTC))

	direction := "Expense"
	if tx.IsIncome() {
		direction = "Income"
	}

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: tx.Description},
				},
			},
		},
		PropTransactionID: richText(tx.TransactionID),
		PropSessionID:     richText(tx.SessionID),
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		PropAmount: notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		PropDirection: notionapi.SelectProperty{
			Select: notionapi.Option{Name: direction},
		},
	}

	if tx.Currency != "" {
		props[PropCurrency] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Currency}}
	}
	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Category)}}
	}
	if tx.Merchant != "" {
		props[PropMerchant] = richText(tx.Merchant)
	}
	if tx.AccountName != "" {
		props[PropAccount] = richText(tx.AccountName)
	}
	if tx.BalanceAfter.Valid {
		props[PropBalanceAfter] = notionapi.NumberProperty{Number: tx.BalanceAfter.Decimal.InexactFloat64()}
	}
	if tx.SourceFile != "" {
		props[PropSourceFile] = richText(tx.SourceFile)
	}
	return props
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties[PropTransactionID]
	if !ok {
		return ""
	}
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		if len(p.RichText) > 0 {
			return p.RichText[0].PlainText
		}
	case notionapi.RichTextProperty:
		if len(p.RichText) > 0 {
			return p.RichText[0].PlainText
		}
	}
	return ""
}
