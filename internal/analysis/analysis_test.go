package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

func TestDescribe(t *testing.T) {
	tbl := models.FromColumns(
		[]string{schema.Time, schema.VehSpeed, schema.HVBSOC},
		map[string][]float64{
			schema.Time:     {0, 1, 2},
			schema.VehSpeed: {10, 50, 20},
			schema.HVBSOC:   {math.NaN(), math.NaN(), math.NaN()},
		},
	)

	got := Describe(tbl, []string{schema.VehSpeed, schema.HVBSOC, schema.HVBTemp})
	require.Len(t, got, 2, "absent columns are omitted")

	speed := got[schema.VehSpeed]
	assert.Equal(t, 3, speed.Count)
	assert.InDelta(t, 26.667, float64(speed.Mean), 0.001)
	assert.InDelta(t, 20, float64(speed.Median), 1e-9)
	assert.InDelta(t, 10, float64(speed.Min), 1e-9)
	assert.InDelta(t, 50, float64(speed.Max), 1e-9)
	assert.InDelta(t, 15, float64(speed.Q1), 1e-9)
	assert.InDelta(t, 35, float64(speed.Q3), 1e-9)
	assert.InDelta(t, 433.333, float64(speed.Variance), 0.001)
	assert.InDelta(t, 20.817, float64(speed.StdDev), 0.001)

	soc := got[schema.HVBSOC]
	assert.True(t, soc.Insufficient())
	assert.False(t, soc.Mean.Defined())
}

func TestSummarizeSingleValue(t *testing.T) {
	s := Summarize("x", []float64{4})
	assert.InDelta(t, 4, float64(s.Mean), 1e-9)
	assert.InDelta(t, 4, float64(s.Q3), 1e-9)
	assert.False(t, s.StdDev.Defined(), "sample spread needs two values")
}

func TestDescribeOrdered(t *testing.T) {
	tbl := models.FromColumns(
		[]string{"a", "b"},
		map[string][]float64{"a": {1, 2}, "b": {3, 4}},
	)
	got := DescribeOrdered(tbl, []string{"b", "missing", "a"})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Column)
	assert.Equal(t, "a", got[1].Column)
}

func TestQuantile(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, Quantile(data, 0.25), 1e-9)
	assert.InDelta(t, 2.5, Quantile(data, 0.5), 1e-9)
	assert.InDelta(t, 4, Quantile(data, 1), 1e-9)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func rampTable(n int) *models.Table {
	cols := []string{"a", "b", "c", "flat"}
	values := map[string][]float64{}
	for i := 0; i < n; i++ {
		x := float64(i)
		values["a"] = append(values["a"], x)
		values["b"] = append(values["b"], 2*x+1)
		values["c"] = append(values["c"], -x+float64(i%3))
		values["flat"] = append(values["flat"], 7)
	}
	return models.FromColumns(cols, values)
}

func TestCorrelateDropsConstantColumn(t *testing.T) {
	res := Correlate(rampTable(20), []string{"a", "b", "c", "flat"}, DefaultOptions())
	require.False(t, res.Insufficient())
	require.NotNil(t, res.Matrix)

	assert.Equal(t, []string{"a", "b", "c"}, res.Matrix.Columns)
	assert.Contains(t, res.Dropped, models.DroppedColumn{Column: "flat", Reason: ReasonZeroVariance})

	r, ok := res.Matrix.Get("a", "b")
	require.True(t, ok)
	assert.InDelta(t, 1, r, 1e-9)

	r, ok = res.Matrix.Get("a", "a")
	require.True(t, ok)
	assert.Equal(t, 1.0, r)

	r, ok = res.Matrix.Get("a", "c")
	require.True(t, ok)
	assert.Less(t, r, -0.9)

	for i := range res.Matrix.Columns {
		for j := range res.Matrix.Columns {
			assert.Equal(t, res.Matrix.Values[i][j], res.Matrix.Values[j][i])
			assert.LessOrEqual(t, math.Abs(res.Matrix.Values[i][j]), 1.0)
		}
	}

	require.NotEmpty(t, res.Top)
	assert.Equal(t, "a", res.Top[0].A)
	assert.Equal(t, "b", res.Top[0].B)
}

func TestCorrelateInsufficient(t *testing.T) {
	small := rampTable(5)
	res := Correlate(small, []string{"a", "b"}, DefaultOptions())
	assert.True(t, res.Insufficient())
	assert.Nil(t, res.Matrix)
	assert.Equal(t, ReasonFewEligible, res.Reason)
	assert.Len(t, res.Dropped, 2)

	res = Correlate(rampTable(20), []string{"a", "nope"}, DefaultOptions())
	assert.True(t, res.Insufficient())
	assert.Equal(t, ReasonFewCandidates, res.Reason)

	res = Correlate(rampTable(20), []string{"a", "flat"}, DefaultOptions())
	assert.True(t, res.Insufficient())
	assert.Equal(t, ReasonFewEligible, res.Reason)
}

func TestCorrelateSparseOverlapIsUndefined(t *testing.T) {
	n := 24
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i], y[i] = math.NaN(), math.NaN()
		if i < n/2 {
			x[i] = float64(i)
		} else {
			y[i] = float64(i * i)
		}
	}
	y[0] = 3
	tbl := models.FromColumns([]string{"x", "y"}, map[string][]float64{"x": x, "y": y})

	res := Correlate(tbl, []string{"x", "y"}, DefaultOptions())
	require.False(t, res.Insufficient())

	_, ok := res.Matrix.Get("x", "y")
	assert.False(t, ok)
	assert.Equal(t, 0.0, res.Matrix.Values[0][1])
	assert.Equal(t, 1, res.Matrix.Pairs[0][1])
	assert.Empty(t, res.Top, "undefined cells are never ranked")
}

func TestTopCorrelationsTieOrder(t *testing.T) {
	m := &models.CorrelationMatrix{
		Columns: []string{"p", "q", "r"},
		Values: [][]float64{
			{1, 0.5, -0.5},
			{0.5, 1, 0.9},
			{-0.5, 0.9, 1},
		},
		Defined: [][]bool{
			{true, true, true},
			{true, true, true},
			{true, true, true},
		},
		Pairs: [][]int{{3, 3, 3}, {3, 3, 3}, {3, 3, 3}},
	}

	top := TopCorrelations(m, 5)
	require.Len(t, top, 3)
	assert.Equal(t, models.CorrelationPair{A: "q", B: "r", R: 0.9, N: 3}, top[0])
	assert.Equal(t, "q", top[1].B, "equal |r| keeps scan order")
	assert.Equal(t, "r", top[2].B)

	assert.Len(t, TopCorrelations(m, 1), 1)
	assert.Nil(t, TopCorrelations(nil, 5))
}

func TestHeadline(t *testing.T) {
	tbl := models.FromColumns(
		[]string{schema.Time, schema.VehSpeed, schema.HVBSOC, schema.HVBTemp, schema.VehDistance},
		map[string][]float64{
			schema.Time:        {0, 1800, 3600},
			schema.VehSpeed:    {10, 50, 30},
			schema.HVBSOC:      {80, math.NaN(), 70},
			schema.HVBTemp:     {30, 46, 40},
			schema.VehDistance: {100, 120, 150},
		},
	)

	h := Headline(tbl)
	assert.Equal(t, 3, h.Rows)
	assert.InDelta(t, 50, float64(h.MaxSpeed), 1e-9)
	assert.InDelta(t, 20, float64(h.SpeedAboveMean), 1e-9)
	assert.InDelta(t, 75, float64(h.MeanSOC), 1e-9)
	assert.InDelta(t, -10, float64(h.SOCDelta), 1e-9)
	assert.Equal(t, "high", h.TempStatus)
	assert.InDelta(t, 50, float64(h.Distance), 1e-9)
	assert.InDelta(t, 50, float64(h.AvgSpeed), 1e-9)
	assert.InDelta(t, 20, float64(h.Consumption), 1e-9)
	assert.Equal(t, "high", h.ConsumptionStatus)
	assert.InDelta(t, 3600, float64(h.Duration), 1e-9)
}

func TestHeadlineOdometerReset(t *testing.T) {
	tbl := models.FromColumns(
		[]string{schema.Time, schema.HVBSOC, schema.VehDistance},
		map[string][]float64{
			schema.Time:        {0, 1, 2, 3},
			schema.HVBSOC:      {80, 79, 78, 77},
			schema.VehDistance: {100, 102, 0, 1},
		},
	)

	h := Headline(tbl)
	assert.InDelta(t, -99, float64(h.Distance), 1e-9)
	assert.False(t, h.Consumption.Defined(), "consumption needs a positive distance")
	assert.Empty(t, h.ConsumptionStatus)
}

func TestHeadlineMissingColumns(t *testing.T) {
	tbl := models.FromColumns([]string{schema.HVBTemp}, map[string][]float64{schema.HVBTemp: {20}})
	h := Headline(tbl)
	assert.False(t, h.MaxSpeed.Defined())
	assert.False(t, h.Distance.Defined())
	assert.Equal(t, "optimal", h.TempStatus)
	assert.Empty(t, h.ConsumptionStatus)
}

// sparseRamp fills rows [from, to) of an n-row column with f(i) and leaves the rest missing.
func sparseRamp(n, from, to int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
		if i >= from && i < to {
			out[i] = f(i)
		}
	}
	return out
}

func TestCorrelateGuardBoundaries(t *testing.T) {
	linear := func(i int) float64 { return float64(i) }
	curved := func(i int) float64 { return float64(i*i) + float64(i%3) }

	tests := []struct {
		name         string
		rows         int
		aFrom, aTo   int
		bFrom, bTo   int
		insufficient bool
		defined      bool
		pairs        int
	}{
		{name: "ten values are too few", rows: 10, aFrom: 0, aTo: 10, bFrom: 0, bTo: 10, insufficient: true},
		{name: "eleven values are kept", rows: 11, aFrom: 0, aTo: 11, bFrom: 0, bTo: 11, defined: true, pairs: 11},
		{name: "overlap of exactly ten is defined", rows: 12, aFrom: 0, aTo: 11, bFrom: 1, bTo: 12, defined: true, pairs: 10},
		{name: "overlap of nine is undefined", rows: 13, aFrom: 0, aTo: 11, bFrom: 2, bTo: 13, defined: false, pairs: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := models.FromColumns([]string{"a", "b"}, map[string][]float64{
				"a": sparseRamp(tt.rows, tt.aFrom, tt.aTo, linear),
				"b": sparseRamp(tt.rows, tt.bFrom, tt.bTo, curved),
			})

			res := Correlate(tbl, []string{"a", "b"}, DefaultOptions())
			if tt.insufficient {
				require.True(t, res.Insufficient())
				assert.Equal(t, ReasonFewEligible, res.Reason)
				require.Len(t, res.Dropped, 2)
				assert.Equal(t, ReasonTooFewValues, res.Dropped[0].Reason)
				return
			}

			require.False(t, res.Insufficient())
			r, ok := res.Matrix.Get("a", "b")
			assert.Equal(t, tt.defined, ok)
			assert.Equal(t, tt.pairs, res.Matrix.Pairs[0][1])
			if tt.defined {
				assert.Greater(t, r, 0.9)
				require.Len(t, res.Top, 1)
			} else {
				assert.Empty(t, res.Top)
			}
		})
	}
}
