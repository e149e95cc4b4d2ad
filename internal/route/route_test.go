package route

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

func gpsTable(soc, speed []float64) *models.Table {
	n := len(soc)
	if len(speed) > n {
		n = len(speed)
	}
	cols := []string{schema.Time, schema.GPSLat, schema.GPSLon}
	values := map[string][]float64{}
	for i := 0; i < n; i++ {
		values[schema.Time] = append(values[schema.Time], float64(i))
		values[schema.GPSLat] = append(values[schema.GPSLat], 50+float64(i)*0.001)
		values[schema.GPSLon] = append(values[schema.GPSLon], 3+float64(i)*0.001)
	}
	if soc != nil {
		cols = append(cols, schema.HVBSOC)
		values[schema.HVBSOC] = soc
	}
	if speed != nil {
		cols = append(cols, schema.VehSpeed)
		values[schema.VehSpeed] = speed
	}
	return models.FromColumns(cols, values)
}

func kinds(events []models.RouteEvent, kind models.EventKind) []models.RouteEvent {
	var out []models.RouteEvent
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestExtractRecharge(t *testing.T) {
	tbl := gpsTable([]float64{50, 50, 56, 56, 60}, nil)

	events := Extract(tbl, DefaultOptions())
	recharges := kinds(events, models.EventRechargeDetected)
	require.Len(t, recharges, 1)
	assert.Equal(t, 2, recharges[0].Index)
	assert.InDelta(t, 6, float64(recharges[0].SOCDelta), 1e-9)

	assert.Empty(t, kinds(events, models.EventMaxSpeed), "no speed column, no max-speed event")
}

func TestExtractRechargeThresholdOverride(t *testing.T) {
	tbl := gpsTable([]float64{50, 50, 56, 56, 60}, nil)
	events := Extract(tbl, Options{RechargeThreshold: 3})
	assert.Len(t, kinds(events, models.EventRechargeDetected), 2)
}

func TestExtractMaxSpeedTieBreak(t *testing.T) {
	tbl := gpsTable(nil, []float64{10, 70, math.NaN(), 70, 5})
	maxes := kinds(Extract(tbl, DefaultOptions()), models.EventMaxSpeed)
	require.Len(t, maxes, 1)
	assert.Equal(t, 1, maxes[0].Index)
}

func TestExtractEndToEnd(t *testing.T) {
	tbl := models.FromColumns(
		[]string{schema.Time, schema.HVBSOC, schema.VehSpeed, schema.GPSLat, schema.GPSLon},
		map[string][]float64{
			schema.Time:     {0, 1, 2},
			schema.HVBSOC:   {80, 78, 76},
			schema.VehSpeed: {10, 50, 20},
			schema.GPSLat:   {50.0, 50.001, 50.002},
			schema.GPSLon:   {3.0, 3.001, 3.002},
		},
	)

	events := Extract(tbl, DefaultOptions())
	require.Len(t, events, 3)
	assert.Equal(t, models.EventStart, events[0].Kind)
	assert.Equal(t, 0, events[0].Index)
	assert.Equal(t, models.EventEnd, events[1].Kind)
	assert.Equal(t, 2, events[1].Index)
	assert.InDelta(t, 4, float64(events[1].SOCDelta), 1e-9)
	assert.Equal(t, models.EventMaxSpeed, events[2].Kind)
	assert.Equal(t, 1, events[2].Index)
	assert.InDelta(t, 50.001, float64(events[2].Lat), 1e-9)
	assert.False(t, events[2].Temp.Defined())
}

func TestExtractSingleRow(t *testing.T) {
	tbl := gpsTable([]float64{40}, []float64{12})
	events := Extract(tbl, DefaultOptions())
	require.Len(t, events, 3)
	for _, e := range events {
		assert.Equal(t, 0, e.Index)
	}
}

func TestExtractWithoutGPS(t *testing.T) {
	tbl := models.FromColumns([]string{schema.VehSpeed}, map[string][]float64{schema.VehSpeed: {1}})
	assert.Nil(t, Extract(tbl, DefaultOptions()))
	assert.Nil(t, Build(tbl, DefaultOptions()))
	assert.Nil(t, Extract(gpsTable([]float64{}, nil), DefaultOptions()))
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, "#00ff00", BandFor(0).Color)
	assert.Equal(t, "#7fff00", BandFor(20).Color)
	assert.Equal(t, "#ffff00", BandFor(59.9).Color)
	assert.Equal(t, "#ff8c00", BandFor(79).Color)
	assert.Equal(t, "#ff0000", BandFor(130).Color)
	assert.Equal(t, "unknown", BandFor(math.NaN()).Label)
}

func TestSegmentsAndHeat(t *testing.T) {
	tbl := gpsTable([]float64{80, 79, 78}, []float64{10, math.NaN(), 90})
	tbl.Values[schema.GPSLat][1] = math.NaN()

	assert.Empty(t, Segments(tbl), "every pair touches the unpositioned row")

	heat := HeatPoints(tbl)
	require.Len(t, heat, 2)
	assert.InDelta(t, 0.1, heat[0].Weight, 1e-9)
	assert.InDelta(t, 0.9, heat[1].Weight, 1e-9)

	segs := Segments(gpsTable(nil, []float64{10, 90}))
	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].FromIndex)
	assert.Equal(t, "#00ff00", segs[0].Band.Color)
}

func TestSummarize(t *testing.T) {
	tbl := gpsTable([]float64{1, 2, 3}, nil)
	s := Summarize(tbl)
	require.NotNil(t, s)
	assert.Equal(t, 3, s.Points)
	assert.InDelta(t, 50.001, s.Center.Lat, 1e-9)
	assert.InDelta(t, 0.222, s.ExtentNS, 1e-6)
	assert.Equal(t, 15, s.Zoom)
	assert.False(t, s.Distance.Defined())

	wide := gpsTable(make([]float64, 40), nil)
	assert.Equal(t, 13, Summarize(wide).Zoom)
}

func TestSummarizeDistanceUsesOdometerEnds(t *testing.T) {
	tbl := gpsTable([]float64{80, 79, 78, 77}, nil)
	tbl.SetColumn(schema.VehDistance, []float64{math.NaN(), 12, 30, 15})

	s := Summarize(tbl)
	require.NotNil(t, s)
	assert.InDelta(t, 3, float64(s.Distance), 1e-9, "last minus first present reading, not the range")
}
