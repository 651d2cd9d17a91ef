// Package dataset reads uploaded CSV and Excel files into a column-oriented
// Table. Cells are kept as text; numeric coercion happens when a column is
// prepared for analysis.
package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chrissnell/structbreak/internal/types"
)

// Table is a column-oriented view of a parsed file.
type Table struct {
	Name    string
	columns []string
	index   map[string]int
	cells   [][]string // cells[col][row]
	rows    int
}

// Preview is the header and the first rows of a Table, row-major.
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable builds a Table from a header and row-major records. Short records
// are padded with empty cells and long ones are truncated to the header.
// Blank headers become "Unnamed: i" and repeated headers get a ".n" suffix.
func NewTable(name string, header []string, records [][]string) *Table {
	cols := uniqueHeaders(header)
	t := &Table{
		Name:    name,
		columns: cols,
		index:   make(map[string]int, len(cols)),
		cells:   make([][]string, len(cols)),
		rows:    len(records),
	}

	for i, c := range cols {
		t.index[c] = i
		t.cells[i] = make([]string, len(records))
	}
	for r, rec := range records {
		for c := 0; c < len(cols) && c < len(rec); c++ {
			t.cells[c][r] = rec[c]
		}
	}
	return t
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// NumRows returns the number of data rows, excluding the header.
func (t *Table) NumRows() int {
	return t.rows
}

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", types.ErrColumnNotFound, name, strings.Join(t.columns, ", "))
	}
	out := make([]string, t.rows)
	copy(out, t.cells[i])
	return out, nil
}

// Values returns the named column as untyped cells, ready for series.Prepare.
func (t *Table) Values(name string) ([]any, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	raw := make([]any, len(col))
	for i, c := range col {
		raw[i] = c
	}
	return raw, nil
}

// Preview returns the header and up to n leading rows.
func (t *Table) Preview(n int) Preview {
	if n < 0 || n > t.rows {
		n = t.rows
	}
	p := Preview{Columns: t.Columns(), Rows: make([][]string, n)}
	for r := 0; r < n; r++ {
		row := make([]string, len(t.columns))
		for c := range t.columns {
			row[c] = t.cells[c][r]
		}
		p.Rows[r] = row
	}
	return p
}

func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}

		name := h
		for seen[name] > 0 {
			name = h + "." + strconv.Itoa(seen[h])
			seen[h]++
		}
		seen[name]++
		out[i] = name
	}
	return out
}
