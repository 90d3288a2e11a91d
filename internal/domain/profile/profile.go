// Package profile computes column-level statistics over CSV datasets:
// null ratios, uniqueness, numeric distributions with IQR outlier fences,
// and string length/capitalization checks.
package profile

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Types
// ─────────────────────────────────────────────────────────────────────────────

// NumericStats holds the distribution of a numeric column.  Outlier fences
// follow the IQR rule: values outside [Q1−1.5·IQR, Q3+1.5·IQR].
type NumericStats struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	StdDev       float64 `json:"std_dev"`
	OutlierCount int     `json:"outlier_count"`
	LowerBound   float64 `json:"lower_bound"`
	UpperBound   float64 `json:"upper_bound"`
}

// StringStats holds length statistics and the capitalization consistency
// check for a string column.
type StringStats struct {
	MinLength                 int     `json:"min_length"`
	MaxLength                 int     `json:"max_length"`
	AvgLength                 float64 `json:"avg_length"`
	InconsistentCapitalization bool   `json:"inconsistent_capitalization"`
}

// ColumnStats is the full profile of a single column.
type ColumnStats struct {
	Name        string             `json:"name"`
	Type        dataset.ColumnType `json:"type"`
	NullCount   int                `json:"null_count"`
	NullPercent float64            `json:"null_percent"`
	UniqueCount int                `json:"unique_count"`
	Numeric     *NumericStats      `json:"numeric,omitempty"`
	String      *StringStats       `json:"string,omitempty"`
}

// TableProfile is the profile of a whole dataset.
type TableProfile struct {
	Name        string        `json:"name"`
	Path        string        `json:"path"`
	RowCount    int           `json:"row_count"`
	ColumnCount int           `json:"column_count"`
	SizeKB      float64       `json:"size_kb"`
	Columns     []ColumnStats `json:"columns"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Profiling
// ─────────────────────────────────────────────────────────────────────────────

// Build profiles every column of table.  sizeBytes is the on-disk size of
// the source file; it is reported in KB rounded to two decimals.
func Build(name, path string, table *dataset.Table, sizeBytes int64) *TableProfile {
	p := &TableProfile{
		Name:        name,
		Path:        path,
		RowCount:    table.RowCount(),
		ColumnCount: len(table.Header),
		SizeKB:      RoundKB(sizeBytes),
		Columns:     make([]ColumnStats, 0, len(table.Header)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, col := range table.Header {
		values, _ := table.Column(col)
		p.Columns = append(p.Columns, ProfileColumn(col, values))
	}
	return p
}

// ProfileColumn computes statistics for one column.
func ProfileColumn(name string, values []string) ColumnStats {
	stats := ColumnStats{
		Name: name,
		Type: dataset.InferColumnType(values),
	}

	seen := make(map[string]struct{}, len(values))
	nonNull := make([]string, 0, len(values))
	for _, v := range values {
		if dataset.IsNull(v) {
			stats.NullCount++
			continue
		}
		nonNull = append(nonNull, v)
		seen[v] = struct{}{}
	}
	stats.UniqueCount = len(seen)
	if len(values) > 0 {
		stats.NullPercent = round2(float64(stats.NullCount) / float64(len(values)) * 100)
	}

	if stats.Type.IsNumeric() {
		stats.Numeric = numericStats(nonNull)
	} else if stats.Type == dataset.ColumnTypeString {
		stats.String = stringStats(nonNull)
	}
	return stats
}

func numericStats(values []string) *NumericStats {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return nil
	}
	sort.Float64s(nums)

	var sum float64
	for _, f := range nums {
		sum += f
	}
	mean := sum / float64(len(nums))

	var variance float64
	for _, f := range nums {
		variance += (f - mean) * (f - mean)
	}
	variance /= float64(len(nums))

	q1 := percentile(nums, 25)
	q3 := percentile(nums, 75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	outliers := 0
	for _, f := range nums {
		if f < lower || f > upper {
			outliers++
		}
	}

	return &NumericStats{
		Min:          nums[0],
		Max:          nums[len(nums)-1],
		Mean:         mean,
		Median:       percentile(nums, 50),
		StdDev:       math.Sqrt(variance),
		OutlierCount: outliers,
		LowerBound:   lower,
		UpperBound:   upper,
	}
}

func stringStats(values []string) *StringStats {
	if len(values) == 0 {
		return nil
	}
	s := &StringStats{MinLength: len(values[0]), MaxLength: len(values[0])}
	var total int
	casings := make(map[string]map[string]struct{})
	for _, v := range values {
		n := len(v)
		total += n
		if n < s.MinLength {
			s.MinLength = n
		}
		if n > s.MaxLength {
			s.MaxLength = n
		}
		key := strings.ToLower(v)
		if casings[key] == nil {
			casings[key] = make(map[string]struct{})
		}
		casings[key][v] = struct{}{}
	}
	s.AvgLength = round2(float64(total) / float64(len(values)))
	for _, variants := range casings {
		if len(variants) > 1 {
			s.InconsistentCapitalization = true
			break
		}
	}
	return s
}

// percentile computes the p-th percentile of sorted values using linear
// interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// RoundKB converts a byte count to KB rounded to two decimals.
func RoundKB(bytes int64) float64 {
	return round2(float64(bytes) / 1024)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// NumericColumn parses a column into floats, failing if the column is not
// numeric.  Null cells are skipped.
func NumericColumn(table *dataset.Table, name string) ([]float64, error) {
	values, err := table.Column(name)
	if err != nil {
		return nil, err
	}
	if t := dataset.InferColumnType(values); !t.IsNumeric() {
		return nil, errors.Newf(errors.ErrCodeProfileNonNumeric, "column %q is %s, not numeric", name, t)
	}
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeProfileNonNumeric, "column %q holds non-numeric value %q", name, v)
		}
		nums = append(nums, f)
	}
	return nums, nil
}
