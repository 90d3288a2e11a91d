package mapping

import (
	"strings"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// ValueRule rewrites one exact cell value within one field.
type ValueRule struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// ValueMap is a list of value rewrite rules, applied per field on exact
// matches.
type ValueMap struct {
	Rules []ValueRule `json:"rules"`
}

// LoadValueMap reads a value map from a CSV file with a
// field,old_value,new_value header.
func LoadValueMap(path string) (*ValueMap, error) {
	records, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) < 3 ||
		!strings.EqualFold(records[0][0], "field") ||
		!strings.EqualFold(records[0][1], "old_value") ||
		!strings.EqualFold(records[0][2], "new_value") {
		return nil, errors.New(errors.ErrCodeMappingFileInvalid, "value map CSV needs a field,old_value,new_value header").WithDetail(path)
	}
	m := &ValueMap{}
	for _, rec := range records[1:] {
		if len(rec) < 3 {
			continue
		}
		m.Rules = append(m.Rules, ValueRule{
			Field:    strings.TrimSpace(rec[0]),
			OldValue: rec[1],
			NewValue: rec[2],
		})
	}
	if len(m.Rules) == 0 {
		return nil, errors.New(errors.ErrCodeMappingEmpty, "value map contains no rules").WithDetail(path)
	}
	return m, nil
}

// Apply rewrites matching cells in place on a copy of table and reports how
// many cells changed.  Rules naming missing fields are an error.
func (m *ValueMap) Apply(table *dataset.Table) (*dataset.Table, int, error) {
	byField := make(map[int]map[string]string)
	for _, rule := range m.Rules {
		idx, err := table.ColumnIndex(rule.Field)
		if err != nil {
			return nil, 0, errors.Newf(errors.ErrCodeMappingFieldMissing, "value map field %q not present in data", rule.Field)
		}
		if byField[idx] == nil {
			byField[idx] = make(map[string]string)
		}
		byField[idx][rule.OldValue] = rule.NewValue
	}

	out := table.Clone()
	changed := 0
	for _, row := range out.Rows {
		for idx, rewrites := range byField {
			if idx >= len(row) {
				continue
			}
			if newVal, ok := rewrites[row[idx]]; ok {
				row[idx] = newVal
				changed++
			}
		}
	}
	return out, changed, nil
}
