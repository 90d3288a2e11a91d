package dedup

import (
	"github.com/turtacn/datamigrate/internal/domain/dataset"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// Default similarity fences, in percent.
const (
	DefaultSimilarityThreshold = 90.0
	DefaultReviewThreshold     = 85.0
)

// Action is the disposition assigned to a duplicate group.
type Action string

const (
	// ActionAutoMerge groups score at or above the similarity threshold.
	ActionAutoMerge Action = "auto_merge"
	// ActionReview groups score between the review and similarity thresholds.
	ActionReview Action = "review"
	// ActionEscalate groups hold pairwise scores on both sides of the fences.
	ActionEscalate Action = "escalate"
)

// Group is a set of row indexes considered duplicates of each other.
// Rows are in encounter order; the first row is kept on removal.
type Group struct {
	Rows   []int   `json:"rows"`
	Score  float64 `json:"score"`
	Action Action  `json:"action"`
}

// Result summarizes a duplicate scan over one table.
type Result struct {
	TotalRows     int     `json:"total_rows"`
	DuplicateRows int     `json:"duplicate_rows"`
	Groups        []Group `json:"groups"`
}

// DuplicateIndexes returns the indexes of every row that would be dropped
// by keep-first removal, in ascending order of appearance in groups.
func (r *Result) DuplicateIndexes() []int {
	var dropped []int
	for _, g := range r.Groups {
		if len(g.Rows) > 1 {
			dropped = append(dropped, g.Rows[1:]...)
		}
	}
	return dropped
}

// KeptIndexes returns the row indexes that survive keep-first removal,
// preserving table order.
func (r *Result) KeptIndexes() []int {
	drop := make(map[int]struct{}, r.DuplicateRows)
	for _, idx := range r.DuplicateIndexes() {
		drop[idx] = struct{}{}
	}
	kept := make([]int, 0, r.TotalRows-len(drop))
	for i := 0; i < r.TotalRows; i++ {
		if _, ok := drop[i]; !ok {
			kept = append(kept, i)
		}
	}
	return kept
}

// FuzzyOptions configures a fuzzy duplicate scan.
type FuzzyOptions struct {
	Columns             []string
	Metric              Metric
	SimilarityThreshold float64
	ReviewThreshold     float64
}

func (o *FuzzyOptions) normalize() error {
	if o.Metric == "" {
		o.Metric = MetricRatio
	}
	if !o.Metric.IsValid() {
		return errors.Newf(errors.ErrCodeDedupMetricInvalid, "unknown similarity metric %q", o.Metric)
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.ReviewThreshold == 0 {
		o.ReviewThreshold = DefaultReviewThreshold
	}
	if o.SimilarityThreshold <= 0 || o.SimilarityThreshold > 100 ||
		o.ReviewThreshold <= 0 || o.ReviewThreshold > o.SimilarityThreshold {
		return errors.Newf(errors.ErrCodeDedupThresholdInvalid,
			"invalid thresholds: similarity=%.1f review=%.1f", o.SimilarityThreshold, o.ReviewThreshold)
	}
	return nil
}

// rowSimilarity averages the per-column similarity of two rows.  All key
// columns weigh equally.
func rowSimilarity(calc Calculator, a, b []string, indexes []int) float64 {
	if len(indexes) == 0 {
		return 0
	}
	var sum float64
	for _, idx := range indexes {
		var ca, cb string
		if idx < len(a) {
			ca = a[idx]
		}
		if idx < len(b) {
			cb = b[idx]
		}
		sum += calc.Similarity(ca, cb)
	}
	return sum / float64(len(indexes))
}

// FindFuzzy scans all row pairs and clusters rows whose similarity reaches
// the review threshold.  Group score is the average pairwise similarity
// inside the group; the action follows the fences, with groups straddling
// both fences escalated.
func FindFuzzy(table *dataset.Table, opts FuzzyOptions) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	indexes, err := keyIndexes(table, opts.Columns)
	if err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return nil, errors.New(errors.ErrCodeDedupNoKeyColumns, "no key columns to compare")
	}
	calc, err := NewCalculator(opts.Metric)
	if err != nil {
		return nil, err
	}

	n := table.RowCount()
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			if rb < ra {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	scores := make(map[[2]int]float64)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			score := rowSimilarity(calc, table.Rows[i], table.Rows[j], indexes)
			if score >= opts.ReviewThreshold {
				scores[[2]int{i, j}] = score
				union(i, j)
			}
		}
	}

	members := make(map[int][]int)
	roots := make([]int, 0)
	for i := 0; i < n; i++ {
		root := find(i)
		if _, seen := members[root]; !seen {
			roots = append(roots, root)
		}
		members[root] = append(members[root], i)
	}

	result := &Result{TotalRows: n}
	for _, root := range roots {
		rows := members[root]
		if len(rows) < 2 {
			continue
		}
		group := buildGroup(rows, scores, calc, table, indexes, opts)
		result.Groups = append(result.Groups, group)
		result.DuplicateRows += len(rows) - 1
	}
	return result, nil
}

func buildGroup(rows []int, scores map[[2]int]float64, calc Calculator, table *dataset.Table, indexes []int, opts FuzzyOptions) Group {
	var sum float64
	var count int
	minScore, maxScore := 101.0, -1.0
	for a := 0; a < len(rows); a++ {
		for b := a + 1; b < len(rows); b++ {
			key := [2]int{rows[a], rows[b]}
			score, ok := scores[key]
			if !ok {
				score = rowSimilarity(calc, table.Rows[rows[a]], table.Rows[rows[b]], indexes)
			}
			sum += score
			count++
			if score < minScore {
				minScore = score
			}
			if score > maxScore {
				maxScore = score
			}
		}
	}

	group := Group{Rows: rows, Score: sum / float64(count)}
	switch {
	case maxScore >= opts.SimilarityThreshold && minScore < opts.ReviewThreshold:
		group.Action = ActionEscalate
	case group.Score >= opts.SimilarityThreshold:
		group.Action = ActionAutoMerge
	default:
		group.Action = ActionReview
	}
	return group
}
