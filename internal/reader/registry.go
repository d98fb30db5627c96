package reader

import (
	"path/filepath"
	"strings"
)

// Registry dispatches files to readers by lower-case extension.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry returns the default dispatch table for CSV and spreadsheet files.
// Legacy binary .xls workbooks are not supported.
func NewRegistry() *Registry {
	xlsx := XLSXReader{}
	return &Registry{readers: map[string]Reader{
		".csv":  CSVReader{},
		".xlsx": xlsx,
		".xlsm": xlsx,
	}}
}

// Register adds or replaces the reader for ext (".ext" form).
func (r *Registry) Register(ext string, rd Reader) {
	r.readers[strings.ToLower(ext)] = rd
}

// ReaderFor returns the reader for path's extension.
func (r *Registry) ReaderFor(path string) (Reader, bool) {
	rd, ok := r.readers[strings.ToLower(filepath.Ext(path))]
	return rd, ok
}
