package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

func timedTable() *models.Table {
	return models.FromColumns(
		[]string{schema.Time, schema.VehSpeed},
		map[string][]float64{
			schema.Time:     {0, 1, math.NaN(), 2, 3},
			schema.VehSpeed: {5, 6, 7, 8, 9},
		},
	)
}

func TestFilterFullRange(t *testing.T) {
	tbl := timedTable()
	w, ok := DefaultWindow(tbl)
	require.True(t, ok)
	assert.Equal(t, models.TimeWindow{Start: 0, End: 3}, w)

	out := FilterWindow(tbl, w)
	assert.Equal(t, []float64{5, 6, 8, 9}, out.Values[schema.VehSpeed], "rows without time never qualify")
}

func TestFilterSingleInstant(t *testing.T) {
	out := Filter(timedTable(), 1, 1)
	assert.Equal(t, []float64{6}, out.Values[schema.VehSpeed])

	out = Filter(timedTable(), 1.5, 1.5)
	assert.Zero(t, out.Len())
}

func TestFilterInvertedRangeIsEmpty(t *testing.T) {
	out := Filter(timedTable(), 3, 1)
	assert.Zero(t, out.Len())
	assert.Equal(t, []string{schema.Time, schema.VehSpeed}, out.Columns)
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	tbl := timedTable()
	out := Filter(tbl, 0, 1)
	out.Values[schema.VehSpeed][0] = 99

	assert.Equal(t, 5.0, tbl.Values[schema.VehSpeed][0])
	assert.Equal(t, 5, tbl.Len())
}

func TestFilterWithoutTimeColumn(t *testing.T) {
	tbl := models.FromColumns([]string{schema.VehSpeed}, map[string][]float64{schema.VehSpeed: {1, 2}})
	assert.Zero(t, Filter(tbl, 0, 10).Len())

	_, ok := DefaultWindow(tbl)
	assert.False(t, ok)
}
