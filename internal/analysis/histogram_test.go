package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-telemetry-dashboard/internal/models"
)

func TestHistogram(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name    string
		values  []float64
		bins    int
		column  string
		present bool
		count   int
		edges   []float64
		counts  []int
	}{
		{
			name:    "equal width bins include the maximum",
			values:  []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
			bins:    5,
			present: true,
			count:   10,
			edges:   []float64{0, 1.8, 3.6, 5.4, 7.2, 9},
			counts:  []int{2, 2, 2, 2, 2},
		},
		{
			name:    "missing cells are skipped",
			values:  []float64{1, nan, 3, nan, 2},
			bins:    2,
			present: true,
			count:   3,
			edges:   []float64{1, 2, 3},
			counts:  []int{1, 2},
		},
		{
			name:    "constant column gets a unit range",
			values:  []float64{5, 5, 5},
			bins:    2,
			present: true,
			count:   3,
			edges:   []float64{4.5, 5, 5.5},
			counts:  []int{0, 3},
		},
		{
			name:    "no values yields no bins",
			values:  []float64{nan, nan},
			bins:    4,
			present: true,
		},
		{
			name:   "absent column",
			values: []float64{1, 2},
			column: "HVBCurrent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := models.FromColumns([]string{"x"}, map[string][]float64{"x": tt.values})
			column := tt.column
			if column == "" {
				column = "x"
			}

			h, ok := Histogram(tbl, column, tt.bins)
			require.Equal(t, tt.present, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.count, h.Count)
			assert.Equal(t, tt.counts, h.Counts)
			require.Len(t, h.Edges, len(tt.edges))
			for i := range tt.edges {
				assert.InDelta(t, tt.edges[i], h.Edges[i], 1e-9)
			}
		})
	}
}

func TestHistogramDefaultBins(t *testing.T) {
	tbl := models.FromColumns([]string{"x"}, map[string][]float64{"x": {0, 10, 20, 30}})
	h, ok := Histogram(tbl, "x", 0)
	require.True(t, ok)
	assert.Len(t, h.Counts, DefaultHistogramBins)
	assert.Len(t, h.Edges, DefaultHistogramBins+1)

	total := 0
	for _, c := range h.Counts {
		total += c
	}
	assert.Equal(t, 4, total)
	assert.Equal(t, 1, h.Counts[DefaultHistogramBins-1])
}

func TestHistogramsSkipsAbsentColumns(t *testing.T) {
	tbl := models.FromColumns([]string{"a", "b"}, map[string][]float64{"a": {1, 2}, "b": {3, 4}})
	hs := Histograms(tbl, []string{"b", "missing", "a"}, 3)
	require.Len(t, hs, 2)
	assert.Equal(t, "b", hs[0].Column)
	assert.Equal(t, "a", hs[1].Column)
}
