// Package reader loads raw, untyped tables from transaction export files.
package reader

import (
	"context"
	"strings"
)

// Table is a raw table: a header row plus data rows of cell strings.
// Every row has exactly len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string

	// DecimalComma marks exports that write amounts as 1.234,56.
	DecimalComma bool
}

// Reader parses the raw bytes of one file format into a Table.
type Reader interface {
	Parse(ctx context.Context, data []byte) (*Table, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, data []byte) (*Table, error)

func (f ReaderFunc) Parse(ctx context.Context, data []byte) (*Table, error) {
	return f(ctx, data)
}

// newTable builds a Table from records whose first non-empty row is the header.
func newTable(records [][]string) *Table {
	start := -1
	for i, rec := range records {
		if !blankRow(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return &Table{}
	}

	headers := make([]string, len(records[start]))
	for i, h := range records[start] {
		headers[i] = strings.TrimSpace(h)
	}
	headers[0] = strings.TrimPrefix(headers[0], "\ufeff")

	t := &Table{Headers: headers, Rows: make([][]string, 0, len(records)-start-1)}
	for _, rec := range records[start+1:] {
		if blankRow(rec) {
			continue
		}
		t.Rows = append(t.Rows, fitRow(rec, len(headers)))
	}
	return t
}

func fitRow(rec []string, width int) []string {
	row := make([]string, width)
	copy(row, rec)
	return row
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
