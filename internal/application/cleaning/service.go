// Package cleaning provides the application-level service for data
// cleaning: duplicate detection and removal, missing-value handling, and
// capitalization standardization.
package cleaning

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	"github.com/turtacn/datamigrate/internal/domain/dedup"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Missing-value strategies
// ─────────────────────────────────────────────────────────────────────────────

// Strategy decides how missing values in a column are handled.
type Strategy string

const (
	// StrategyAuto picks a strategy per column: mean for numeric columns
	// under 10% nulls, mode for non-numeric columns, row removal otherwise.
	StrategyAuto   Strategy = "auto"
	StrategyRemove Strategy = "remove"
	StrategyMean   Strategy = "mean"
	StrategyMedian Strategy = "median"
	StrategyMode   Strategy = "mode"
	StrategyZero   Strategy = "zero"
)

// autoMeanNullLimit is the null percentage above which auto stops imputing
// numeric columns and removes the rows instead.
const autoMeanNullLimit = 10.0

func (s Strategy) IsValid() bool {
	switch s {
	case StrategyAuto, StrategyRemove, StrategyMean, StrategyMedian, StrategyMode, StrategyZero:
		return true
	}
	return false
}

// ParseStrategy validates and normalizes a missing-value strategy.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if st == "" {
		return StrategyAuto, nil
	}
	if !st.IsValid() {
		return "", errors.Newf(errors.ErrCodeCleaningStrategyInvalid, "unknown missing-value strategy %q", s)
	}
	return st, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service defines the cleaning operations exposed over HTTP and CLI.
type Service interface {
	FindExactDuplicates(ctx context.Context, input *ExactInput) (*DuplicatesOutput, error)
	FindFuzzyDuplicates(ctx context.Context, input *FuzzyInput) (*DuplicatesOutput, error)
	RemoveDuplicates(ctx context.Context, input *RemoveInput) (*RemoveOutput, error)
	HandleMissingValues(ctx context.Context, input *MissingInput) (*MissingOutput, error)
	StandardizeCapitalization(ctx context.Context, input *CapitalizeInput) (*CapitalizeOutput, error)
}

// ExactInput selects the file and key columns for an exact scan.
type ExactInput struct {
	Path       string   `json:"path"`
	KeyColumns []string `json:"key_columns,omitempty"`
}

// FuzzyInput configures a fuzzy scan.  Zero thresholds fall back to the
// defaults (90 similarity, 85 review).
type FuzzyInput struct {
	Path            string   `json:"path"`
	KeyColumns      []string `json:"key_columns,omitempty"`
	Threshold       float64  `json:"threshold,omitempty"`
	ReviewThreshold float64  `json:"review_threshold,omitempty"`
	Metric          string   `json:"metric,omitempty"`
}

// DuplicatesOutput summarizes a duplicate scan.
type DuplicatesOutput struct {
	TotalRows      int           `json:"total_rows"`
	DuplicateRows  int           `json:"duplicate_rows"`
	GroupCount     int           `json:"group_count"`
	Groups         []dedup.Group `json:"groups,omitempty"`
}

// RemoveInput configures duplicate removal.  Fuzzy matching is used unless
// Exact is set.
type RemoveInput struct {
	Path            string   `json:"path"`
	KeyColumns      []string `json:"key_columns,omitempty"`
	Threshold       float64  `json:"threshold,omitempty"`
	ReviewThreshold float64  `json:"review_threshold,omitempty"`
	Metric          string   `json:"metric,omitempty"`
	Exact           bool     `json:"exact,omitempty"`
}

// RemoveOutput names the written artifacts and their row counts.
type RemoveOutput struct {
	UniquePath     string `json:"unique_path"`
	DuplicatesPath string `json:"duplicates_path"`
	TotalRows      int    `json:"total_rows"`
	UniqueRows     int    `json:"unique_rows"`
	DuplicateRows  int    `json:"duplicate_rows"`
}

// MissingInput configures missing-value handling.  Empty Columns means all
// columns with at least one null.
type MissingInput struct {
	Path     string   `json:"path"`
	Strategy string   `json:"strategy,omitempty"`
	Columns  []string `json:"columns,omitempty"`
}

// MissingOutput reports what was filled and removed.
type MissingOutput struct {
	CleanedPath string              `json:"cleaned_path"`
	CellsFilled int                 `json:"cells_filled"`
	RowsRemoved int                 `json:"rows_removed"`
	Applied     map[string]Strategy `json:"applied"`
}

// CapitalizeInput selects the columns to standardize.  Empty means every
// text column.
type CapitalizeInput struct {
	Path    string   `json:"path"`
	Columns []string `json:"columns,omitempty"`
}

// CapitalizeOutput reports the rewritten cells.
type CapitalizeOutput struct {
	CleanedPath  string `json:"cleaned_path"`
	CellsChanged int    `json:"cells_changed"`
}

type serviceImpl struct {
	logger logging.Logger
}

// NewService constructs the cleaning service.
func NewService(logger logging.Logger) Service {
	return &serviceImpl{logger: logger}
}

// ─────────────────────────────────────────────────────────────────────────────
// Duplicate detection
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) FindExactDuplicates(ctx context.Context, input *ExactInput) (*DuplicatesOutput, error) {
	table, _, err := dataset.NewReader(input.Path).ReadAll()
	if err != nil {
		return nil, err
	}

	result, err := dedup.FindExact(table, input.KeyColumns)
	if err != nil {
		return nil, err
	}
	return duplicatesOutput(result), nil
}

func (s *serviceImpl) FindFuzzyDuplicates(ctx context.Context, input *FuzzyInput) (*DuplicatesOutput, error) {
	table, _, err := dataset.NewReader(input.Path).ReadAll()
	if err != nil {
		return nil, err
	}

	result, err := dedup.FindFuzzy(table, dedup.FuzzyOptions{
		Columns:             input.KeyColumns,
		Metric:              dedup.Metric(input.Metric),
		SimilarityThreshold: input.Threshold,
		ReviewThreshold:     input.ReviewThreshold,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Fuzzy duplicate scan finished",
		logging.String("file", input.Path),
		logging.Int("rows", result.TotalRows),
		logging.Int("duplicates", result.DuplicateRows),
		logging.Int("groups", len(result.Groups)),
	)
	return duplicatesOutput(result), nil
}

func (s *serviceImpl) RemoveDuplicates(ctx context.Context, input *RemoveInput) (*RemoveOutput, error) {
	table, delim, err := dataset.NewReader(input.Path).ReadAll()
	if err != nil {
		return nil, err
	}

	var result *dedup.Result
	if input.Exact {
		result, err = dedup.FindExact(table, input.KeyColumns)
	} else {
		result, err = dedup.FindFuzzy(table, dedup.FuzzyOptions{
			Columns:             input.KeyColumns,
			Metric:              dedup.Metric(input.Metric),
			SimilarityThreshold: input.Threshold,
			ReviewThreshold:     input.ReviewThreshold,
		})
	}
	if err != nil {
		return nil, err
	}

	threshold := input.Threshold
	if threshold == 0 {
		threshold = dedup.DefaultSimilarityThreshold
	}

	kept := result.KeptIndexes()
	dropped := result.DuplicateIndexes()

	uniquePath := dataset.UniquePath(input.Path)
	if err := dataset.WriteTable(uniquePath, table.SelectRows(kept), delim); err != nil {
		return nil, err
	}
	duplicatesPath := dataset.DuplicatesPath(input.Path, threshold)
	if err := dataset.WriteTable(duplicatesPath, table.SelectRows(dropped), delim); err != nil {
		return nil, err
	}

	s.logger.Info("Removed duplicates",
		logging.String("unique", uniquePath),
		logging.String("duplicates", duplicatesPath),
		logging.Int("kept", len(kept)),
		logging.Int("dropped", len(dropped)),
	)
	return &RemoveOutput{
		UniquePath:     uniquePath,
		DuplicatesPath: duplicatesPath,
		TotalRows:      result.TotalRows,
		UniqueRows:     len(kept),
		DuplicateRows:  len(dropped),
	}, nil
}

func duplicatesOutput(result *dedup.Result) *DuplicatesOutput {
	return &DuplicatesOutput{
		TotalRows:     result.TotalRows,
		DuplicateRows: result.DuplicateRows,
		GroupCount:    len(result.Groups),
		Groups:        result.Groups,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Missing values
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) HandleMissingValues(ctx context.Context, input *MissingInput) (*MissingOutput, error) {
	strategy, err := ParseStrategy(input.Strategy)
	if err != nil {
		return nil, err
	}

	table, delim, err := dataset.NewReader(input.Path).ReadAll()
	if err != nil {
		return nil, err
	}

	columns := input.Columns
	if len(columns) == 0 {
		columns = table.Header
	}

	out := &MissingOutput{Applied: make(map[string]Strategy)}
	work := table.Clone()
	for _, col := range columns {
		values, err := work.Column(col)
		if err != nil {
			return nil, err
		}
		nullCount := countNulls(values)
		if nullCount == 0 {
			continue
		}

		resolved := strategy
		if resolved == StrategyAuto {
			resolved = autoStrategy(values, nullCount)
		}
		out.Applied[col] = resolved

		switch resolved {
		case StrategyRemove:
			removed, err := dropNullRows(work, col)
			if err != nil {
				return nil, err
			}
			out.RowsRemoved += removed
		case StrategyMean, StrategyMedian:
			fill, err := numericFill(work, col, resolved)
			if err != nil {
				return nil, err
			}
			out.CellsFilled += fillNulls(work, col, fill)
		case StrategyMode:
			out.CellsFilled += fillNulls(work, col, modeValue(values))
		case StrategyZero:
			out.CellsFilled += fillNulls(work, col, "0")
		}
	}

	cleanedPath := dataset.CleanedPath(input.Path)
	if err := dataset.WriteTable(cleanedPath, work, delim); err != nil {
		return nil, err
	}
	out.CleanedPath = cleanedPath

	s.logger.Info("Handled missing values",
		logging.String("file", input.Path),
		logging.String("strategy", string(strategy)),
		logging.Int("cells_filled", out.CellsFilled),
		logging.Int("rows_removed", out.RowsRemoved),
	)
	return out, nil
}

func countNulls(values []string) int {
	n := 0
	for _, v := range values {
		if dataset.IsNull(v) {
			n++
		}
	}
	return n
}

// autoStrategy picks mean for numeric columns with few nulls, mode for
// text, and row removal for heavily null numeric columns.
func autoStrategy(values []string, nullCount int) Strategy {
	colType := dataset.InferColumnType(values)
	if colType.IsNumeric() {
		nullPct := float64(nullCount) / float64(len(values)) * 100
		if nullPct < autoMeanNullLimit {
			return StrategyMean
		}
		return StrategyRemove
	}
	if colType == dataset.ColumnTypeString {
		return StrategyMode
	}
	return StrategyRemove
}

func numericFill(table *dataset.Table, col string, strategy Strategy) (string, error) {
	values, err := table.Column(col)
	if err != nil {
		return "", err
	}
	if t := dataset.InferColumnType(values); !t.IsNumeric() {
		return "", errors.Newf(errors.ErrCodeCleaningNonNumeric,
			"strategy %s needs a numeric column, %q is %s", strategy, col, t)
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrCodeCleaningNonNumeric,
				"column %q holds non-numeric value %q", col, v)
		}
		nums = append(nums, f)
	}
	if len(nums) == 0 {
		return "0", nil
	}

	var fill float64
	if strategy == StrategyMean {
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		fill = sum / float64(len(nums))
	} else {
		sort.Float64s(nums)
		mid := len(nums) / 2
		if len(nums)%2 == 0 {
			fill = (nums[mid-1] + nums[mid]) / 2
		} else {
			fill = nums[mid]
		}
	}
	return strconv.FormatFloat(fill, 'f', -1, 64), nil
}

// modeValue is the most frequent non-null value; ties go to the value seen
// first.
func modeValue(values []string) string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, v := range values {
		if dataset.IsNull(v) {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	best := ""
	bestCount := 0
	for _, v := range order {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

func fillNulls(table *dataset.Table, col, fill string) int {
	idx, err := table.ColumnIndex(col)
	if err != nil {
		return 0
	}
	filled := 0
	for _, row := range table.Rows {
		if idx < len(row) && dataset.IsNull(row[idx]) {
			row[idx] = fill
			filled++
		}
	}
	return filled
}

func dropNullRows(table *dataset.Table, col string) (int, error) {
	idx, err := table.ColumnIndex(col)
	if err != nil {
		return 0, err
	}
	kept := table.Rows[:0]
	removed := 0
	for _, row := range table.Rows {
		if idx < len(row) && dataset.IsNull(row[idx]) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	table.Rows = kept
	return removed, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Capitalization
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) StandardizeCapitalization(ctx context.Context, input *CapitalizeInput) (*CapitalizeOutput, error) {
	table, delim, err := dataset.NewReader(input.Path).ReadAll()
	if err != nil {
		return nil, err
	}

	columns := input.Columns
	if len(columns) == 0 {
		for _, col := range table.Header {
			values, _ := table.Column(col)
			if dataset.InferColumnType(values) == dataset.ColumnTypeString {
				columns = append(columns, col)
			}
		}
	}

	work := table.Clone()
	changed := 0
	for _, col := range columns {
		n, err := standardizeColumn(work, col)
		if err != nil {
			return nil, err
		}
		changed += n
	}

	cleanedPath := dataset.CleanedPath(input.Path)
	if err := dataset.WriteTable(cleanedPath, work, delim); err != nil {
		return nil, err
	}

	s.logger.Info("Standardized capitalization",
		logging.String("file", input.Path),
		logging.Int("cells_changed", changed),
	)
	return &CapitalizeOutput{CleanedPath: cleanedPath, CellsChanged: changed}, nil
}

// standardizeColumn rewrites each value to the most common casing of its
// case-insensitive group.
func standardizeColumn(table *dataset.Table, col string) (int, error) {
	idx, err := table.ColumnIndex(col)
	if err != nil {
		return 0, err
	}

	counts := make(map[string]map[string]int)
	order := make(map[string][]string)
	for _, row := range table.Rows {
		if idx >= len(row) || dataset.IsNull(row[idx]) {
			continue
		}
		v := row[idx]
		lower := strings.ToLower(v)
		if counts[lower] == nil {
			counts[lower] = make(map[string]int)
		}
		if _, seen := counts[lower][v]; !seen {
			order[lower] = append(order[lower], v)
		}
		counts[lower][v]++
	}

	canonical := make(map[string]string, len(counts))
	for lower, variants := range counts {
		best := ""
		bestCount := 0
		for _, v := range order[lower] {
			if variants[v] > bestCount {
				best = v
				bestCount = variants[v]
			}
		}
		canonical[lower] = best
	}

	changed := 0
	for _, row := range table.Rows {
		if idx >= len(row) || dataset.IsNull(row[idx]) {
			continue
		}
		want := canonical[strings.ToLower(row[idx])]
		if want != "" && want != row[idx] {
			row[idx] = want
			changed++
		}
	}
	return changed, nil
}
