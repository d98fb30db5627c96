package reader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads the first sheet of a spreadsheet workbook.
type XLSXReader struct{}

func (XLSXReader) Parse(ctx context.Context, data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("XLSXReader.Parse: %w", err)
	}
	defer f.Close()
	return firstSheet(f)
}

func firstSheet(f *excelize.File) (*Table, error) {
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil || sheet == "" {
		// Fall back to the first listed sheet when index 0 is not usable.
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		rows, err = f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("rows of %s: %w", sheets[0], err)
		}
	}
	return newTable(rows), nil
}
