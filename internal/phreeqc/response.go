package phreeqc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/kamino/internal/chem"
)

// Table is a whitespace-separated response document: one heading row and
// any number of data rows.
type Table struct {
	Path    string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// ParseTable reads a response document. path is only used in errors.
func ParseTable(r io.Reader, path string) (*Table, error) {
	t := &Table{Path: path, index: make(map[string]int)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if t.Columns == nil {
			t.Columns = fields
			for i, c := range fields {
				if _, dup := t.index[c]; !dup {
					t.index[c] = i
				}
			}
			continue
		}
		t.Rows = append(t.Rows, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("phreeqc: read %s: %w", path, err)
	}
	return t, nil
}

// Float returns the numeric cell at the given 0-based data row.
func (t *Table) Float(row int, column string) (float64, error) {
	col, ok := t.index[column]
	if !ok {
		return 0, &chem.ResponseParseError{Path: t.Path, Column: column, Row: row, Wrapped: chem.ErrMissingColumn}
	}
	if row < 0 || row >= len(t.Rows) {
		return 0, &chem.ResponseParseError{Path: t.Path, Column: column, Row: row, Wrapped: chem.ErrMissingRow}
	}
	cells := t.Rows[row]
	if col >= len(cells) {
		return 0, &chem.ResponseParseError{Path: t.Path, Column: column, Row: row, Wrapped: chem.ErrMissingColumn}
	}
	v, err := strconv.ParseFloat(cells[col], 64)
	if err != nil {
		return 0, &chem.ResponseParseError{
			Path:    t.Path,
			Column:  column,
			Row:     row,
			Wrapped: fmt.Errorf("%w: %q", chem.ErrBadValue, cells[col]),
		}
	}
	return v, nil
}

// HasColumn reports whether the heading row names column.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.index[column]
	return ok
}
