// Package table accumulates flat rows with heterogeneous keys and renders them
// as one CSV whose header is the sorted union of every key.
package table

import (
	"encoding/csv"
	"io"
	"sort"
)

// Row maps a column name to its rendered value. Absent keys become blank
// cells.
type Row map[string]string

type Table struct {
	rows   []Row
	header map[string]struct{}
}

func New() *Table {
	return &Table{
		rows:   make([]Row, 0),
		header: make(map[string]struct{}),
	}
}

// Add appends a row. Rows are written in the order they were added.
func (t *Table) Add(row Row) {
	for k := range row {
		t.header[k] = struct{}{}
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Header returns the lexicographically sorted union of all keys seen so far.
func (t *Table) Header() []string {
	cols := make([]string, 0, len(t.header))
	for k := range t.header {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	return cols
}

// Write emits the header followed by every row. Quoting is minimal and lines
// end in CRLF, like Python's csv.DictWriter with the default excel dialect.
func (t *Table) Write(out io.Writer) error {
	w := csv.NewWriter(out)
	w.UseCRLF = true

	cols := t.Header()
	if err := w.Write(cols); err != nil {
		return err
	}

	line := make([]string, len(cols))
	for _, row := range t.rows {
		for i, col := range cols {
			line[i] = row[col]
		}
		if err := w.Write(line); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
