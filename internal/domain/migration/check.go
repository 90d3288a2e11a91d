package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	"github.com/turtacn/datamigrate/internal/domain/dedup"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// Conflict is one source row whose key already exists in the target.
// Score is the key similarity in percent; exact matches score 100.
type Conflict struct {
	SourceRow int     `json:"source_row"`
	TargetRow int     `json:"target_row"`
	Key       string  `json:"key"`
	Score     float64 `json:"score"`
}

// CheckResult is the outcome of a duplicate check against the target.
type CheckResult struct {
	SourceRows int        `json:"source_rows"`
	TargetRows int        `json:"target_rows"`
	Conflicts  []Conflict `json:"conflicts"`
}

// CheckAgainstTarget finds source rows whose key columns match an existing
// target row.  Keys are built the same way the duplicate scanner builds
// them; key columns must exist in both tables.  Empty keyColumns means
// every source column.  threshold is the minimum key similarity percent:
// 0 or 100 compares exactly, anything below 100 fuzzy-matches each key
// field and averages the scores per target row.
func CheckAgainstTarget(source, target *dataset.Table, keyColumns []string, threshold float64) (*CheckResult, error) {
	if threshold == 0 {
		threshold = 100
	}
	if threshold < 0 || threshold > 100 {
		return nil, errors.Newf(errors.ErrCodeBadRequest, "similarity threshold %.1f is out of range (0, 100]", threshold)
	}
	if len(keyColumns) == 0 {
		keyColumns = source.Header
	}
	srcIdx := make([]int, 0, len(keyColumns))
	tgtIdx := make([]int, 0, len(keyColumns))
	for _, col := range keyColumns {
		si, err := source.ColumnIndex(col)
		if err != nil {
			return nil, err
		}
		ti, err := target.ColumnIndex(col)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeTargetUnreadable, "key column %q missing from target", col)
		}
		srcIdx = append(srcIdx, si)
		tgtIdx = append(tgtIdx, ti)
	}

	result := &CheckResult{
		SourceRows: source.RowCount(),
		TargetRows: target.RowCount(),
	}
	if threshold < 100 {
		checkFuzzy(source, target, srcIdx, tgtIdx, threshold, result)
		return result, nil
	}

	targetKeys := make(map[string]int, target.RowCount())
	for i, row := range target.Rows {
		key := dedup.BuildKey(row, tgtIdx)
		if _, seen := targetKeys[key]; !seen {
			targetKeys[key] = i
		}
	}
	for i, row := range source.Rows {
		key := dedup.BuildKey(row, srcIdx)
		if tgtRow, ok := targetKeys[key]; ok {
			result.Conflicts = append(result.Conflicts, Conflict{
				SourceRow: i,
				TargetRow: tgtRow,
				Key:       key,
				Score:     100,
			})
		}
	}
	return result, nil
}

// checkFuzzy scores every source row against every target row, averaging
// the per-field Levenshtein similarity of the key columns, and records the
// best match when it reaches the threshold.
func checkFuzzy(source, target *dataset.Table, srcIdx, tgtIdx []int, threshold float64, result *CheckResult) {
	for i, srcRow := range source.Rows {
		best := 0.0
		bestRow := -1
		for j, tgtRow := range target.Rows {
			sum := 0.0
			for k := range srcIdx {
				sum += dedup.Ratio(cellValue(srcRow, srcIdx[k]), cellValue(tgtRow, tgtIdx[k]))
			}
			avg := sum / float64(len(srcIdx))
			if avg > best {
				best = avg
				bestRow = j
			}
		}
		if bestRow >= 0 && best >= threshold {
			result.Conflicts = append(result.Conflicts, Conflict{
				SourceRow: i,
				TargetRow: bestRow,
				Key:       dedup.BuildKey(srcRow, srcIdx),
				Score:     best,
			})
		}
	}
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// conflictSourceRows returns the set of conflicting source row indexes.
func (r *CheckResult) conflictSourceRows() map[int]struct{} {
	set := make(map[int]struct{}, len(r.Conflicts))
	for _, c := range r.Conflicts {
		set[c.SourceRow] = struct{}{}
	}
	return set
}

// Resolve applies a duplicate-handling mode to the checked tables and
// returns the new target content.  ModeAsk returns nil: the caller reports
// the conflicts and writes nothing.
func (r *CheckResult) Resolve(source, target *dataset.Table, mode Mode) (*dataset.Table, error) {
	if !mode.IsValid() {
		return nil, errors.Newf(errors.ErrCodeDuplicateModeInvalid, "unknown duplicate mode %q", mode)
	}
	if mode == ModeAsk {
		return nil, nil
	}

	out := target.Clone()
	conflicting := r.conflictSourceRows()

	switch mode {
	case ModeSkip:
		for i, row := range source.Rows {
			if _, ok := conflicting[i]; ok {
				continue
			}
			out.Rows = append(out.Rows, row)
		}
	case ModeOverwrite:
		replaced := make(map[int]struct{}, len(r.Conflicts))
		for _, c := range r.Conflicts {
			if _, done := replaced[c.TargetRow]; done {
				continue
			}
			out.Rows[c.TargetRow] = source.Rows[c.SourceRow]
			replaced[c.TargetRow] = struct{}{}
		}
		for i, row := range source.Rows {
			if _, ok := conflicting[i]; ok {
				continue
			}
			out.Rows = append(out.Rows, row)
		}
	case ModeAppend:
		out.Rows = append(out.Rows, source.Rows...)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transfer report
// ─────────────────────────────────────────────────────────────────────────────

// TransferReport is the JSON artifact written next to a run's outputs.
type TransferReport struct {
	RunID       string     `json:"run_id"`
	SourcePath  string     `json:"source_path"`
	TargetPath  string     `json:"target_path"`
	Mode        Mode       `json:"mode"`
	Stats       Statistics `json:"stats"`
	GeneratedAt time.Time  `json:"generated_at"`
}

const reportTimestampLayout = "20060102_150405"

// TransferReportPath names a transfer report inside dir:
// transfer_report_{timestamp}.json.
func TransferReportPath(dir string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("transfer_report_%s.json", at.Format(reportTimestampLayout)))
}

// WriteTransferReport serializes the report to path.
func WriteTransferReport(path string, report *TransferReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode transfer report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatasetWriteFailed, "failed to write transfer report").WithDetail(path)
	}
	return nil
}
