package reader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-health/internal/logger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader reads comma separated files, retrying with ';' for European
// exports. Tables read with ';' are marked DecimalComma.
type CSVReader struct{}

func (CSVReader) Parse(ctx context.Context, data []byte) (*Table, error) {
	return ParseCSV(ctx, data)
}

// ParseCSV parses raw CSV bytes into a Table.
func ParseCSV(ctx context.Context, data []byte) (*Table, error) {
	log := logger.FromContext(ctx)
	data = bytes.TrimPrefix(data, utf8BOM)

	records, err := parseDelimited(data, ',')
	if err == nil && !needsSemicolon(records) {
		return newTable(records), nil
	}

	log.Debug().Err(err).Msg("comma parse unusable, retrying with semicolon")
	semi, semiErr := parseDelimited(data, ';')
	if semiErr != nil {
		if err != nil {
			return nil, fmt.Errorf("ParseCSV: %w", err)
		}
		return nil, fmt.Errorf("ParseCSV: %w", semiErr)
	}
	t := newTable(semi)
	t.DecimalComma = true
	return t, nil
}

func parseDelimited(data []byte, sep rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

// needsSemicolon is true when a comma parse produced a single column whose
// header still contains a semicolon.
func needsSemicolon(records [][]string) bool {
	for _, rec := range records {
		if blankRow(rec) {
			continue
		}
		return len(rec) == 1 && strings.Contains(rec[0], ";")
	}
	return false
}
