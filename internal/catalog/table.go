package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("catalog: missing column")

// Columns names the header cells of the tabular source.
type Columns struct {
	Direction  string
	CourseType string
	CourseName string
	CourseLink string
}

// DefaultColumns returns the headers of the course spreadsheet.
func DefaultColumns() Columns {
	return Columns{
		Direction:  "Направление",
		CourseType: "Тип курса",
		CourseName: "Название курса",
		CourseLink: "Ссылка на курс",
	}
}

// RowsFromTable converts a header-addressed table into rows. The first row is the
// header, missing cells read as empty and fully blank rows are dropped.
func RowsFromTable(table [][]string, cols Columns) ([]Row, error) {
	if len(table) == 0 {
		return nil, nil
	}

	header := make(map[string]int, len(table[0]))
	for i, cell := range table[0] {
		name := strings.TrimSpace(cell)
		if _, seen := header[name]; !seen {
			header[name] = i
		}
	}

	index := func(name string) (int, error) {
		i, ok := header[strings.TrimSpace(name)]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		return i, nil
	}

	var idx [4]int
	for i, name := range []string{cols.Direction, cols.CourseType, cols.CourseName, cols.CourseLink} {
		pos, err := index(name)
		if err != nil {
			return nil, err
		}
		idx[i] = pos
	}

	rows := make([]Row, 0, len(table)-1)
	for _, record := range table[1:] {
		if blank(record) {
			continue
		}
		rows = append(rows, Row{
			Direction:  cell(record, idx[0]),
			CourseType: cell(record, idx[1]),
			CourseName: cell(record, idx[2]),
			CourseLink: cell(record, idx[3]),
		})
	}

	return rows, nil
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func blank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
