package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

var anchor = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func rawTable() *models.Table {
	return models.FromColumns(
		[]string{schema.Time, schema.GPSLat, schema.GPSLon, schema.VehSpeed, schema.HVBVoltage, schema.MotTorque},
		map[string][]float64{
			schema.Time:       {0, 1, 2, 3},
			schema.GPSLat:     {50, 0, 50.001, 0},
			schema.GPSLon:     {3, 0, 3.001, 3.002},
			schema.VehSpeed:   {10, 20, 30, 40},
			schema.HVBVoltage: {400, 400, math.NaN(), 400},
			schema.MotTorque:  {100, 100, 50, -2.5},
		},
	)
}

func TestDeriveDropsZeroGPSFirst(t *testing.T) {
	out, dropped := Derive(rawTable(), anchor)

	assert.Equal(t, 1, dropped)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []float64{0, 2, 3}, out.Values[schema.Time])
	assert.Equal(t, anchor.Add(2*time.Second), out.Timestamps[1])
	assert.True(t, out.Caps.Has(schema.CapEnergy))
	assert.True(t, out.Caps.Has(schema.CapEfficiency))
}

func TestDeriveEnergyAndEfficiency(t *testing.T) {
	out, _ := Derive(rawTable(), anchor)

	energy := out.Values[schema.EnergyConsumption]
	assert.InDelta(t, 40, energy[0], 1e-9)
	assert.True(t, math.IsNaN(energy[1]), "missing voltage leaves energy missing")
	assert.InDelta(t, -1, energy[2], 1e-9)

	eff := out.Values[schema.Efficiency]
	assert.InDelta(t, 10/(40+Epsilon), eff[0], 1e-9)
	assert.False(t, math.IsInf(eff[2], 0))
}

func TestEfficiencyNeverDividesByZero(t *testing.T) {
	got := Efficiency(5, -Epsilon)
	assert.InDelta(t, 5/Epsilon, got, 1e-6)
	assert.False(t, math.IsInf(Efficiency(5, 0), 0))
}

func TestDeriveSkipsMissingInputs(t *testing.T) {
	tbl := models.FromColumns(
		[]string{schema.VehSpeed, schema.HVBVoltage},
		map[string][]float64{schema.VehSpeed: {1}, schema.HVBVoltage: {2}},
	)
	out, dropped := Derive(tbl, anchor)

	assert.Zero(t, dropped)
	assert.False(t, out.Has(schema.EnergyConsumption))
	assert.False(t, out.Has(schema.Efficiency))
	assert.Nil(t, out.Timestamps)
}

func TestDeriveEfficiencyFromRecordedEnergy(t *testing.T) {
	tbl := models.FromColumns(
		[]string{schema.VehSpeed, schema.EnergyConsumption},
		map[string][]float64{schema.VehSpeed: {30}, schema.EnergyConsumption: {2}},
	)
	out, _ := Derive(tbl, anchor)

	require.True(t, out.Has(schema.Efficiency))
	assert.InDelta(t, Efficiency(30, 2), out.Values[schema.Efficiency][0], 1e-9)

	noSpeed, _ := Derive(models.FromColumns(
		[]string{schema.EnergyConsumption},
		map[string][]float64{schema.EnergyConsumption: {2}},
	), anchor)
	assert.False(t, noSpeed.Has(schema.Efficiency))
}

func TestDeriveIsIdempotent(t *testing.T) {
	once, _ := Derive(rawTable(), anchor)
	twice, dropped := Derive(once, anchor)

	assert.Zero(t, dropped)
	assert.Equal(t, once.Columns, twice.Columns)
	for _, c := range once.Columns {
		assert.Equal(t, len(once.Values[c]), len(twice.Values[c]), c)
		for i := range once.Values[c] {
			a, b := once.Values[c][i], twice.Values[c][i]
			if math.IsNaN(a) {
				assert.True(t, math.IsNaN(b), c)
				continue
			}
			assert.InDelta(t, a, b, 1e-12, c)
		}
	}
}

func TestDeriveDoesNotMutateInput(t *testing.T) {
	in := rawTable()
	_, _ = Derive(in, anchor)
	assert.Equal(t, 4, in.Len())
	assert.False(t, in.Has(schema.EnergyConsumption))
}

func TestDropZeroGPSNeedsBothColumns(t *testing.T) {
	tbl := models.FromColumns([]string{schema.GPSLat}, map[string][]float64{schema.GPSLat: {0, 0}})
	out, dropped := DropZeroGPS(tbl)
	assert.Zero(t, dropped)
	assert.Equal(t, 2, out.Len())
}
