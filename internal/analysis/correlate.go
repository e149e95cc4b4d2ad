package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"ev-telemetry-dashboard/internal/models"
)

// Thresholds with no derivation behind them; kept overridable through Options.
const (
	DefaultMinOverlap     = 10 // joint non-missing pairs needed for a cell
	DefaultMinNonMissing  = 10 // a column needs strictly more values than this
	DefaultTopCorrelation = 5
)

// Options tunes the correlation guards.
type Options struct {
	MinOverlap    int
	MinNonMissing int
	TopN          int
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		MinOverlap:    DefaultMinOverlap,
		MinNonMissing: DefaultMinNonMissing,
		TopN:          DefaultTopCorrelation,
	}
}

func (o Options) withDefaults() Options {
	if o.MinOverlap <= 0 {
		o.MinOverlap = DefaultMinOverlap
	}
	if o.MinNonMissing < 0 {
		o.MinNonMissing = DefaultMinNonMissing
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopCorrelation
	}
	return o
}

// Reasons reported for dropped columns and insufficient results.
const (
	ReasonAbsent        = "column not present"
	ReasonZeroVariance  = "zero variance"
	ReasonTooFewValues  = "too few non-missing values"
	ReasonFewCandidates = "fewer than 2 candidate columns"
	ReasonFewEligible   = "fewer than 2 eligible columns"
)

// Correlate builds the Pearson matrix over the eligible subset of columns.
// Selection runs in order: at least two candidates, drop zero-variance
// columns, drop columns with too few values, at least two remaining.
func Correlate(t *models.Table, columns []string, opt Options) models.CorrelationResult {
	opt = opt.withDefaults()
	res := models.CorrelationResult{Status: models.CorrelationOK}

	var candidates []string
	seen := make(map[string]bool)
	for _, col := range columns {
		if seen[col] {
			continue
		}
		seen[col] = true
		if !t.Has(col) {
			res.Dropped = append(res.Dropped, models.DroppedColumn{Column: col, Reason: ReasonAbsent})
			continue
		}
		candidates = append(candidates, col)
	}
	if len(candidates) < 2 {
		return insufficient(res, ReasonFewCandidates)
	}

	var varying []string
	for _, col := range candidates {
		vals := t.Present(col)
		if len(vals) < 2 || stat.Variance(vals, nil) == 0 {
			res.Dropped = append(res.Dropped, models.DroppedColumn{Column: col, Reason: ReasonZeroVariance})
			continue
		}
		varying = append(varying, col)
	}

	var eligible []string
	for _, col := range varying {
		if len(t.Present(col)) <= opt.MinNonMissing {
			res.Dropped = append(res.Dropped, models.DroppedColumn{Column: col, Reason: ReasonTooFewValues})
			continue
		}
		eligible = append(eligible, col)
	}
	if len(eligible) < 2 {
		return insufficient(res, ReasonFewEligible)
	}

	n := len(eligible)
	m := &models.CorrelationMatrix{
		Columns: eligible,
		Values:  make([][]float64, n),
		Defined: make([][]bool, n),
		Pairs:   make([][]int, n),
	}
	for i := range eligible {
		m.Values[i] = make([]float64, n)
		m.Defined[i] = make([]bool, n)
		m.Pairs[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		xi, _ := t.Column(eligible[i])
		for j := i; j < n; j++ {
			xj, _ := t.Column(eligible[j])
			r, count, ok := pairwise(xi, xj, opt.MinOverlap)
			if i == j {
				r, ok = 1, true
			}
			if !ok {
				r = 0
			}
			m.Values[i][j], m.Values[j][i] = r, r
			m.Defined[i][j], m.Defined[j][i] = ok, ok
			m.Pairs[i][j], m.Pairs[j][i] = count, count
		}
	}
	res.Matrix = m
	res.Top = TopCorrelations(m, opt.TopN)
	return res
}

func insufficient(res models.CorrelationResult, reason string) models.CorrelationResult {
	res.Status = models.CorrelationInsufficientData
	res.Reason = reason
	res.Matrix = nil
	return res
}

// pairwise computes Pearson r over rows where both values are present.
func pairwise(x, y []float64, minOverlap int) (float64, int, bool) {
	var xs, ys []float64
	for k := range x {
		if math.IsNaN(x[k]) || math.IsNaN(y[k]) {
			continue
		}
		xs = append(xs, x[k])
		ys = append(ys, y[k])
	}
	if len(xs) < minOverlap || len(xs) < 2 {
		return 0, len(xs), false
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, len(xs), false
	}
	return math.Max(-1, math.Min(1, r)), len(xs), true
}

// TopCorrelations ranks defined off-diagonal cells by descending |r|.
// Undefined cells are ineligible; ties keep row-major scan order.
func TopCorrelations(m *models.CorrelationMatrix, limit int) []models.CorrelationPair {
	if m == nil {
		return nil
	}
	var pairs []models.CorrelationPair
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if !m.Defined[i][j] {
				continue
			}
			pairs = append(pairs, models.CorrelationPair{
				A: m.Columns[i],
				B: m.Columns[j],
				R: m.Values[i][j],
				N: m.Pairs[i][j],
			})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].R) > math.Abs(pairs[b].R)
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// DescribeResult summarizes a result in one line for CLI output.
func DescribeResult(r models.CorrelationResult) string {
	if r.Insufficient() {
		return fmt.Sprintf("insufficient data: %s", r.Reason)
	}
	return fmt.Sprintf("%d columns, %d ranked pairs", len(r.Matrix.Columns), len(r.Top))
}
