package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ev-telemetry-dashboard/internal/models"
)

// DefaultHistogramBins is the bin count of the distribution view.
const DefaultHistogramBins = 30

// Histogram bins the non-missing values of column into equal-width bins
// spanning [min, max]; the last bin is closed so max is counted. A constant
// column gets a unit-wide range centred on its value. ok is false when the
// column is absent. A column without values yields no edges.
func Histogram(t *models.Table, column string, bins int) (models.Histogram, bool) {
	if !t.Has(column) {
		return models.Histogram{}, false
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}

	var values []float64
	for _, v := range t.Present(column) {
		if !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	h := models.Histogram{Column: column, Count: len(values)}
	if len(values) == 0 {
		return h, true
	}
	sort.Float64s(values)

	lo, hi := values[0], values[len(values)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	h.Edges = floats.Span(make([]float64, bins+1), lo, hi)

	dividers := append([]float64(nil), h.Edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, values, nil)

	h.Counts = make([]int, bins)
	for i, c := range counts {
		h.Counts[i] = int(c)
	}
	return h, true
}

// Histograms bins every present column in request order.
func Histograms(t *models.Table, columns []string, bins int) []models.Histogram {
	var out []models.Histogram
	for _, col := range columns {
		if h, ok := Histogram(t, col, bins); ok {
			out = append(out, h)
		}
	}
	return out
}
