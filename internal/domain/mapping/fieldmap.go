// Package mapping translates source CSV schemas into target schemas: field
// maps rename and reorder columns, value maps rewrite individual cell
// values per field.
package mapping

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// FieldMapping is one source-to-target field pair.
type FieldMapping struct {
	SourceField string `json:"source_field"`
	TargetField string `json:"target_field"`
}

// FieldMap is an ordered list of field mappings.  Order defines the column
// order of the mapped output.
type FieldMap struct {
	Mappings []FieldMapping `json:"mappings"`
}

// TargetFields returns the target column names in mapping order.
func (m *FieldMap) TargetFields() []string {
	fields := make([]string, len(m.Mappings))
	for i, fm := range m.Mappings {
		fields[i] = fm.TargetField
	}
	return fields
}

// Validate rejects empty maps and mappings with blank field names.
func (m *FieldMap) Validate() error {
	if len(m.Mappings) == 0 {
		return errors.New(errors.ErrCodeMappingEmpty, "field map contains no mappings")
	}
	for i, fm := range m.Mappings {
		if strings.TrimSpace(fm.SourceField) == "" || strings.TrimSpace(fm.TargetField) == "" {
			return errors.Newf(errors.ErrCodeMappingFileInvalid, "mapping %d has a blank field name", i)
		}
	}
	return nil
}

// LoadFieldMap reads a field map from a JSON or CSV file, chosen by
// extension.  JSON files carry a {"mappings": [...]} document; CSV files
// carry a source_field,target_field header.
func LoadFieldMap(path string) (*FieldMap, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadFieldMapJSON(path)
	case ".csv":
		return loadFieldMapCSV(path)
	default:
		return nil, errors.Newf(errors.ErrCodeMappingFileInvalid, "unsupported field map format %q", filepath.Ext(path))
	}
}

func loadFieldMapJSON(path string) (*FieldMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMappingFileInvalid, "failed to read field map").WithDetail(path)
	}
	var m FieldMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMappingFileInvalid, "failed to parse field map JSON").WithDetail(path)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func loadFieldMapCSV(path string) (*FieldMap, error) {
	records, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) < 2 ||
		!strings.EqualFold(records[0][0], "source_field") || !strings.EqualFold(records[0][1], "target_field") {
		return nil, errors.New(errors.ErrCodeMappingFileInvalid, "field map CSV needs a source_field,target_field header").WithDetail(path)
	}
	m := &FieldMap{}
	for _, rec := range records[1:] {
		if len(rec) < 2 {
			continue
		}
		m.Mappings = append(m.Mappings, FieldMapping{
			SourceField: strings.TrimSpace(rec[0]),
			TargetField: strings.TrimSpace(rec[1]),
		})
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMappingFileInvalid, "failed to open mapping file").WithDetail(path)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMappingFileInvalid, "failed to parse mapping CSV").WithDetail(path)
	}
	return records, nil
}

// GenerateTemplate builds an identity field map for a set of source
// columns, the starting point users edit into a real mapping.
func GenerateTemplate(columns []string) *FieldMap {
	m := &FieldMap{Mappings: make([]FieldMapping, len(columns))}
	for i, col := range columns {
		m.Mappings[i] = FieldMapping{SourceField: col, TargetField: col}
	}
	return m
}

// SaveTemplate writes a field map as JSON.
func SaveTemplate(path string, m *FieldMap) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode field map")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatasetWriteFailed, "failed to write field map").WithDetail(path)
	}
	return nil
}

// Apply projects table through the field map: columns are renamed to their
// target names and reordered to mapping order; unmapped source columns are
// dropped.  A mapping whose source column is missing is an error.
func (m *FieldMap) Apply(table *dataset.Table) (*dataset.Table, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	indexes := make([]int, len(m.Mappings))
	for i, fm := range m.Mappings {
		idx, err := table.ColumnIndex(fm.SourceField)
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeMappingFieldMissing, "source field %q not present in data", fm.SourceField)
		}
		indexes[i] = idx
	}

	rows := make([][]string, len(table.Rows))
	for r, row := range table.Rows {
		mapped := make([]string, len(indexes))
		for c, idx := range indexes {
			if idx < len(row) {
				mapped[c] = row[idx]
			}
		}
		rows[r] = mapped
	}
	return dataset.NewTable(m.TargetFields(), rows), nil
}
