package dedup

import (
	"strings"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// keySeparator joins column values inside a composite duplicate key.  The
// unit separator cannot appear in CSV cell text parsed by this module.
const keySeparator = "\x1f"

// BuildKey derives the duplicate-detection key of a row from the cells at
// the given column indexes: trimmed, case-folded, joined.
func BuildKey(row []string, indexes []int) string {
	parts := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		var cell string
		if idx >= 0 && idx < len(row) {
			cell = row[idx]
		}
		parts = append(parts, strings.ToLower(strings.TrimSpace(cell)))
	}
	return strings.Join(parts, keySeparator)
}

// keyIndexes resolves key column names to header indexes.  Empty columns
// means every column.
func keyIndexes(table *dataset.Table, columns []string) ([]int, error) {
	if len(columns) == 0 {
		indexes := make([]int, len(table.Header))
		for i := range table.Header {
			indexes[i] = i
		}
		return indexes, nil
	}
	indexes := make([]int, 0, len(columns))
	for _, col := range columns {
		idx, err := table.ColumnIndex(col)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// ExactScanner accumulates duplicate keys across row chunks, so large files
// can be scanned without loading every row at once.
type ExactScanner struct {
	indexes []int
	byKey   map[string][]int
	order   []string
	total   int
}

// NewExactScanner prepares a streaming exact-duplicate scan keyed on the
// given columns of header.  Empty columns means every column.
func NewExactScanner(header []string, columns []string) (*ExactScanner, error) {
	indexes, err := keyIndexes(dataset.NewTable(header, nil), columns)
	if err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return nil, errors.New(errors.ErrCodeDedupNoKeyColumns, "no key columns to compare")
	}
	return &ExactScanner{
		indexes: indexes,
		byKey:   make(map[string][]int),
	}, nil
}

// Scan feeds one chunk of rows starting at the given absolute row offset.
func (s *ExactScanner) Scan(rows [][]string, offset int) {
	for i, row := range rows {
		key := BuildKey(row, s.indexes)
		if _, seen := s.byKey[key]; !seen {
			s.order = append(s.order, key)
		}
		s.byKey[key] = append(s.byKey[key], offset+i)
	}
	s.total += len(rows)
}

// Result closes the scan and returns the accumulated duplicate groups.
func (s *ExactScanner) Result() *Result {
	result := &Result{TotalRows: s.total}
	for _, key := range s.order {
		rows := s.byKey[key]
		if len(rows) < 2 {
			continue
		}
		result.Groups = append(result.Groups, Group{
			Rows:   rows,
			Score:  100,
			Action: ActionAutoMerge,
		})
		result.DuplicateRows += len(rows) - 1
	}
	return result
}

// FindExact groups rows that share an identical key over the given columns.
// Only keys seen more than once produce a group; groups keep row indexes in
// encounter order, so index 0 of each group is the row to keep.
func FindExact(table *dataset.Table, columns []string) (*Result, error) {
	scanner, err := NewExactScanner(table.Header, columns)
	if err != nil {
		return nil, err
	}
	scanner.Scan(table.Rows, 0)
	return scanner.Result(), nil
}
