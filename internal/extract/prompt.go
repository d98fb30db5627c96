package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-health/internal/domain"
)

// outputKeys are the object keys the model is asked to return.
var outputKeys = []string{
	"date", "description", "amount", "currency", "type",
	"account_name", "balance_after", "merchant", "category",
}

// tableText renders headers and rows as CSV.
func tableText(headers []string, rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func systemPrompt() string {
	return "You are a financial statement extractor. Extract every transaction from the table text you are given.\n\n" +
		"Rules:\n" +
		"- Identify the columns yourself: date, description, amount, currency, type, account_name, balance_after, merchant, category.\n" +
		"- Dates must be ISO format \"YYYY-MM-DD\".\n" +
		"- Amounts must be numbers: negative for money OUT (debits), positive for money IN (credits).\n" +
		"- If the table has separate paid out / paid in columns, convert them to a single signed amount.\n" +
		"- Currency defaults to USD when unknown.\n" +
		"- Infer merchant from the description when possible.\n" +
		"- category must be one of: " + strings.Join(domain.CategoryNames(), ", ") + ". Use null if unsure.\n\n" +
		"Return ONLY strictly minified raw JSON: an array of objects.\n" +
		"Do NOT wrap the response in code fences or Markdown.\n" +
		"Output must begin with \"[\" and end with \"]\".\n"
}

func userPrompt(filename, csvText string) string {
	return fmt.Sprintf(
		"File: %s\nTable CSV:\n%s\n\nOutput a JSON array of objects using keys: %s.",
		filename, csvText, strings.Join(outputKeys, ", "),
	)
}
