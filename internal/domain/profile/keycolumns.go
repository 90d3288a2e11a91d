package profile

import (
	"strings"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
)

// Category classifies a column's likely role in matching and migration.
type Category string

const (
	CategoryID          Category = "id"
	CategoryName        Category = "name"
	CategoryDate        Category = "date"
	CategoryCategorical Category = "categorical"
	CategoryNumerical   Category = "numerical"
	CategoryOther       Category = "other"
)

// categoricalRatio is the unique/rows ceiling below which a column is
// treated as categorical.
const categoricalRatio = 0.1

var (
	idHints   = []string{"id", "key", "code"}
	nameHints = []string{"name", "title", "label"}
	dateHints = []string{"date", "time"}
)

// KeyColumns groups column names by category.  ID and Name columns are the
// primary candidates for duplicate-detection keys.
type KeyColumns struct {
	ID          []string `json:"id"`
	Name        []string `json:"name"`
	Date        []string `json:"date"`
	Categorical []string `json:"categorical"`
	Numerical   []string `json:"numerical"`
	Other       []string `json:"other"`
}

// DedupKeys returns the columns to use for duplicate detection: ID columns
// first, then name columns.  Empty when neither category matched.
func (k KeyColumns) DedupKeys() []string {
	keys := make([]string, 0, len(k.ID)+len(k.Name))
	keys = append(keys, k.ID...)
	keys = append(keys, k.Name...)
	return keys
}

// Classify assigns a single column to a category.  Name-based hints (id,
// name, date) take precedence over type and cardinality.
func Classify(stats ColumnStats, rowCount int) Category {
	lower := strings.ToLower(stats.Name)
	for _, h := range idHints {
		if strings.Contains(lower, h) {
			return CategoryID
		}
	}
	for _, h := range nameHints {
		if strings.Contains(lower, h) {
			return CategoryName
		}
	}
	if stats.Type == dataset.ColumnTypeDate {
		return CategoryDate
	}
	for _, h := range dateHints {
		if strings.Contains(lower, h) {
			return CategoryDate
		}
	}
	if rowCount > 0 && float64(stats.UniqueCount)/float64(rowCount) <= categoricalRatio {
		return CategoryCategorical
	}
	if stats.Type.IsNumeric() {
		return CategoryNumerical
	}
	return CategoryOther
}

// IdentifyKeyColumns classifies every column of a profile.
func IdentifyKeyColumns(p *TableProfile) KeyColumns {
	var k KeyColumns
	for _, col := range p.Columns {
		switch Classify(col, p.RowCount) {
		case CategoryID:
			k.ID = append(k.ID, col.Name)
		case CategoryName:
			k.Name = append(k.Name, col.Name)
		case CategoryDate:
			k.Date = append(k.Date, col.Name)
		case CategoryCategorical:
			k.Categorical = append(k.Categorical, col.Name)
		case CategoryNumerical:
			k.Numerical = append(k.Numerical, col.Name)
		default:
			k.Other = append(k.Other, col.Name)
		}
	}
	return k
}
