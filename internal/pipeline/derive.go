package pipeline

import (
	"math"
	"time"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

// Epsilon keeps the efficiency denominator away from zero.
const Epsilon = 0.001

// Derive returns a new table with zero-GPS rows removed and the derived
// columns (timestamp, energy consumption, efficiency) computed. Derivations
// whose inputs are absent are skipped. The input is not modified and
// re-deriving a derived table with the same anchor yields the same values.
func Derive(t *models.Table, anchor time.Time) (*models.Table, int) {
	out, dropped := DropZeroGPS(t)
	out.Anchor = anchor

	if times, ok := out.Column(schema.Time); ok {
		out.Timestamps = make([]time.Time, len(times))
		for i, s := range times {
			if math.IsNaN(s) {
				continue
			}
			out.Timestamps[i] = anchor.Add(time.Duration(s * float64(time.Second)))
		}
	} else {
		out.Timestamps = nil
	}

	caps := schema.Detect(out.Columns)
	if caps.CanDeriveEnergy() {
		volts, _ := out.Column(schema.HVBVoltage)
		torque, _ := out.Column(schema.MotTorque)
		energy := make([]float64, len(volts))
		for i := range volts {
			energy[i] = EnergyConsumption(volts[i], torque[i])
		}
		out.SetColumn(schema.EnergyConsumption, energy)
	}

	if caps.CanDeriveEfficiency() {
		speed, _ := out.Column(schema.VehSpeed)
		energy, _ := out.Column(schema.EnergyConsumption)
		eff := make([]float64, len(speed))
		for i := range speed {
			eff[i] = Efficiency(speed[i], energy[i])
		}
		out.SetColumn(schema.Efficiency, eff)
	}

	out.Caps = schema.Detect(out.Columns)
	return out, dropped
}

// EnergyConsumption is voltage * torque / 1000; NaN when either input is missing.
func EnergyConsumption(voltage, torque float64) float64 {
	return voltage * torque / 1000
}

// Efficiency is speed / (energy + Epsilon). A denominator that still lands on
// exactly zero falls back to Epsilon so the result stays finite.
func Efficiency(speed, energy float64) float64 {
	denom := energy + Epsilon
	if denom == 0 {
		denom = Epsilon
	}
	return speed / denom
}

// DropZeroGPS copies t without rows whose latitude and longitude are both
// exactly zero. Tables lacking either GPS column are copied unchanged.
func DropZeroGPS(t *models.Table) (*models.Table, int) {
	n := t.Len()
	keep := make([]int, 0, n)
	lat, okLat := t.Column(schema.GPSLat)
	lon, okLon := t.Column(schema.GPSLon)
	for i := 0; i < n; i++ {
		if okLat && okLon && lat[i] == 0 && lon[i] == 0 {
			continue
		}
		keep = append(keep, i)
	}
	return t.Select(keep), n - len(keep)
}
