package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

// StatColumns is the default column set for descriptive statistics and correlation.
var StatColumns = []string{
	schema.VehSpeed,
	schema.HVBSOC,
	schema.HVBTemp,
	schema.HVBVoltage,
	schema.MotTorque,
	schema.AccelPedal,
	schema.HVBCurrent,
}

// Describe computes summary statistics for each requested column present in t.
// Absent columns are omitted; a column with no values yields Count 0 and
// undefined fields.
func Describe(t *models.Table, columns []string) map[string]models.StatSummary {
	out := make(map[string]models.StatSummary, len(columns))
	for _, col := range columns {
		if !t.Has(col) {
			continue
		}
		out[col] = Summarize(col, t.Present(col))
	}
	return out
}

// DescribeOrdered is Describe returned in request order.
func DescribeOrdered(t *models.Table, columns []string) []models.StatSummary {
	m := Describe(t, columns)
	out := make([]models.StatSummary, 0, len(m))
	for _, col := range columns {
		if s, ok := m[col]; ok {
			out = append(out, s)
			delete(m, col)
		}
	}
	return out
}

// Summarize computes statistics over values that are all present.
// Spread measures use the sample (n-1) estimator and are undefined below two values.
func Summarize(column string, values []float64) models.StatSummary {
	s := models.StatSummary{
		Column:   column,
		Count:    len(values),
		Mean:     models.NaN(),
		Median:   models.NaN(),
		StdDev:   models.NaN(),
		Min:      models.NaN(),
		Max:      models.NaN(),
		Q1:       models.NaN(),
		Q3:       models.NaN(),
		Variance: models.NaN(),
	}
	if len(values) == 0 {
		return s
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s.Mean = models.Number(stat.Mean(values, nil))
	s.Min = models.Number(sorted[0])
	s.Max = models.Number(sorted[len(sorted)-1])
	s.Median = models.Number(Quantile(sorted, 0.5))
	s.Q1 = models.Number(Quantile(sorted, 0.25))
	s.Q3 = models.Number(Quantile(sorted, 0.75))
	if len(values) > 1 {
		_, variance := stat.MeanVariance(values, nil)
		s.Variance = models.Number(variance)
		s.StdDev = models.Number(math.Sqrt(variance))
	}
	return s
}

// Quantile returns the p-quantile of ascending sorted data, interpolating
// linearly between closest ranks (h = (n-1)p).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
