package dataset

import (
	"github.com/turtacn/datamigrate/pkg/errors"
)

// Table is an in-memory CSV table: a header plus data rows.  Rows are stored
// positionally; ColumnIndex resolves names to positions.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable constructs a Table, defensively copying the header.
func NewTable(header []string, rows [][]string) *Table {
	h := make([]string, len(header))
	copy(h, header)
	return &Table{Header: h, Rows: rows}
}

// ColumnIndex returns the position of the named column, or an error when the
// column does not exist.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, errors.Newf(errors.ErrCodeColumnNotFound, "column %q not found", name)
}

// Column returns all values of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, cellAt(row, idx))
	}
	return out, nil
}

// Cell returns the value at (row, column name), tolerating ragged rows.
func (t *Table) Cell(row int, name string) (string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return "", err
	}
	if row < 0 || row >= len(t.Rows) {
		return "", errors.Newf(errors.ErrCodeBadRequest, "row %d out of range", row)
	}
	return cellAt(t.Rows[row], idx), nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(row))
		copy(r, row)
		rows[i] = r
	}
	return NewTable(t.Header, rows)
}

// SelectRows returns a new Table containing only the rows at the given
// indexes, in the given order.
func (t *Table) SelectRows(indexes []int) *Table {
	rows := make([][]string, 0, len(indexes))
	for _, i := range indexes {
		if i >= 0 && i < len(t.Rows) {
			rows = append(rows, t.Rows[i])
		}
	}
	return NewTable(t.Header, rows)
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int { return len(t.Rows) }

// cellAt tolerates short rows by returning "" for missing positions.
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
