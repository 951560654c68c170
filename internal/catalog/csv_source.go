package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
)

// CSVSource reads catalog rows from a comma separated file with a header row.
type CSVSource struct {
	Path    string
	Columns Columns
}

// NewCSVSource creates a CSVSource using the default columns when cols is zero.
func NewCSVSource(path string, cols Columns) *CSVSource {
	if cols == (Columns{}) {
		cols = DefaultColumns()
	}
	return &CSVSource{Path: path, Columns: cols}
}

// Rows implements Source.
func (s *CSVSource) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	return RowsFromTable(table, s.Columns)
}
