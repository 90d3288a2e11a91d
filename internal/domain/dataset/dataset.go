// Package dataset defines the CSV dataset model: delimiter detection, typed
// column inference, chunked reading, and output-path naming conventions shared
// by every stage of the migration pipeline.
package dataset

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultChunkSize is the number of rows processed per chunk when scanning
// large files.
const DefaultChunkSize = 10000

// delimiterSampleSize is how many bytes of the file head are inspected when
// guessing the delimiter.
const delimiterSampleSize = 4096

// ColumnType classifies the inferred content of a column.
type ColumnType string

const (
	ColumnTypeInteger ColumnType = "integer"
	ColumnTypeFloat   ColumnType = "float"
	ColumnTypeDate    ColumnType = "date"
	ColumnTypeBoolean ColumnType = "boolean"
	ColumnTypeString  ColumnType = "string"
)

// Dataset describes a CSV file that has been registered with the platform.
type Dataset struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Delimiter rune       `json:"-"`
	Columns   []string   `json:"columns"`
	RowCount  int        `json:"row_count"`
	SizeBytes int64      `json:"size_bytes"`
	CreatedAt time.Time  `json:"created_at"`
}

// New constructs a Dataset with a fresh ID.
func New(name, path string) *Dataset {
	return &Dataset{
		ID:        uuid.New().String(),
		Name:      name,
		Path:      path,
		Delimiter: ',',
		CreatedAt: time.Now().UTC(),
	}
}

// DetectDelimiter inspects up to the first 4096 bytes of a CSV sample and
// returns ';' when semicolons strictly outnumber commas, ',' otherwise.
// Single-column files therefore fall back to comma.
func DetectDelimiter(sample []byte) rune {
	if len(sample) > delimiterSampleSize {
		sample = sample[:delimiterSampleSize]
	}
	var commas, semicolons int
	for _, b := range sample {
		switch b {
		case ',':
			commas++
		case ';':
			semicolons++
		}
	}
	if semicolons > commas {
		return ';'
	}
	return ','
}

// nullTokens are cell values treated as missing regardless of column type.
var nullTokens = map[string]struct{}{
	"":     {},
	"null": {},
	"NULL": {},
	"None": {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
}

// IsNull reports whether a raw cell value represents a missing value.
func IsNull(cell string) bool {
	_, ok := nullTokens[strings.TrimSpace(cell)]
	return ok
}

// dateLayouts are the recognised date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
}

// ParseDate attempts to parse a cell as a date using the recognised layouts.
func ParseDate(cell string) (time.Time, bool) {
	s := strings.TrimSpace(cell)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InferType classifies a single non-null cell value.
func InferType(cell string) ColumnType {
	s := strings.TrimSpace(cell)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ColumnTypeInteger
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return ColumnTypeFloat
	}
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no":
		return ColumnTypeBoolean
	}
	if _, ok := ParseDate(s); ok {
		return ColumnTypeDate
	}
	return ColumnTypeString
}

// InferColumnType classifies a column from its non-null values.  A column is
// integer only when every value parses as an integer; a mix of integers and
// floats yields float; any non-numeric value demotes the column to the widest
// type observed, ending at string.
func InferColumnType(values []string) ColumnType {
	seen := make(map[ColumnType]int)
	var total int
	for _, v := range values {
		if IsNull(v) {
			continue
		}
		seen[InferType(v)]++
		total++
	}
	if total == 0 {
		return ColumnTypeString
	}
	if seen[ColumnTypeInteger] == total {
		return ColumnTypeInteger
	}
	if seen[ColumnTypeInteger]+seen[ColumnTypeFloat] == total {
		return ColumnTypeFloat
	}
	if seen[ColumnTypeDate] == total {
		return ColumnTypeDate
	}
	if seen[ColumnTypeBoolean] == total {
		return ColumnTypeBoolean
	}
	return ColumnTypeString
}

// IsNumeric reports whether a column type supports arithmetic statistics.
func (t ColumnType) IsNumeric() bool {
	return t == ColumnTypeInteger || t == ColumnTypeFloat
}
