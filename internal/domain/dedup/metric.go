// Package dedup finds exact and fuzzy duplicate rows in CSV tables.
// Exact matching builds case-folded keys from selected columns; fuzzy
// matching scores pairwise string similarity and groups rows by action
// thresholds.
package dedup

import (
	"sort"
	"strings"

	"github.com/turtacn/datamigrate/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Metric
// ─────────────────────────────────────────────────────────────────────────────

// Metric selects the similarity algorithm used for fuzzy matching.
type Metric string

const (
	// MetricRatio is the plain Levenshtein similarity ratio.
	MetricRatio Metric = "ratio"
	// MetricTokenSortRatio tokenizes both strings, sorts the tokens, and
	// applies the ratio to the rejoined forms.  Robust to word order.
	MetricTokenSortRatio Metric = "token_sort_ratio"
)

func (m Metric) String() string { return string(m) }

func (m Metric) IsValid() bool {
	return m == MetricRatio || m == MetricTokenSortRatio
}

// ParseMetric validates and normalizes a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", errors.Newf(errors.ErrCodeDedupMetricInvalid, "unknown similarity metric %q", s)
	}
	return m, nil
}

// Calculator scores the similarity of two strings on a 0..100 scale.
type Calculator interface {
	Similarity(a, b string) float64
}

// NewCalculator returns the Calculator for a metric.
func NewCalculator(m Metric) (Calculator, error) {
	switch m {
	case MetricRatio:
		return ratioCalculator{}, nil
	case MetricTokenSortRatio:
		return tokenSortCalculator{}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeDedupMetricInvalid, "unknown similarity metric %q", m)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Calculators
// ─────────────────────────────────────────────────────────────────────────────

type ratioCalculator struct{}

func (ratioCalculator) Similarity(a, b string) float64 {
	return Ratio(a, b)
}

type tokenSortCalculator struct{}

func (tokenSortCalculator) Similarity(a, b string) float64 {
	return Ratio(tokenSort(a), tokenSort(b))
}

func tokenSort(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Ratio is the Levenshtein similarity of a and b in percent.  Identical
// strings (including two empty strings) score 100; an empty string against
// a non-empty one scores 0.
func Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	dist := levenshtein(ra, rb)
	return (1 - float64(dist)/float64(max(len(ra), len(rb)))) * 100
}

// levenshtein computes the edit distance with a two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
