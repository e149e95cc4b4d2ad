package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

// Status thresholds for the headline badges.
const (
	OptimalTempLimit      = 45.0 // Celsius
	EconomicalConsumption = 15.0 // %/100 km
)

// Headline computes the overview numbers. Each figure is undefined (NaN)
// when its column is absent or holds no values.
func Headline(t *models.Table) models.Headline {
	h := models.Headline{
		Rows:           t.Len(),
		MaxSpeed:       models.NaN(),
		SpeedAboveMean: models.NaN(),
		MeanSOC:        models.NaN(),
		SOCDelta:       models.NaN(),
		MaxTemp:        models.NaN(),
		Distance:       models.NaN(),
		AvgSpeed:       models.NaN(),
		Consumption:    models.NaN(),
		Duration:       models.NaN(),
	}

	if speed := t.Present(schema.VehSpeed); len(speed) > 0 {
		peak := floats.Max(speed)
		h.MaxSpeed = models.Number(peak)
		h.SpeedAboveMean = models.Number(peak - stat.Mean(speed, nil))
	}

	soc := t.Present(schema.HVBSOC)
	if len(soc) > 0 {
		h.MeanSOC = models.Number(stat.Mean(soc, nil))
		h.SOCDelta = models.Number(soc[len(soc)-1] - soc[0])
	}

	if temp := t.Present(schema.HVBTemp); len(temp) > 0 {
		peak := floats.Max(temp)
		h.MaxTemp = models.Number(peak)
		h.TempStatus = "optimal"
		if peak >= OptimalTempLimit {
			h.TempStatus = "high"
		}
	}

	if times := t.Present(schema.Time); len(times) > 0 {
		h.Duration = models.Number(floats.Max(times) - floats.Min(times))
	}

	dist := t.Present(schema.VehDistance)
	if len(dist) == 0 {
		return h
	}
	// Odometer delta in table order, as for SOCDelta; a reset makes it negative.
	distance := dist[len(dist)-1] - dist[0]
	h.Distance = models.Number(distance)
	if span := float64(h.Duration); !math.IsNaN(span) && span > 0 {
		h.AvgSpeed = models.Number(distance / span * 3600)
	}
	if distance > 0 && len(soc) > 0 {
		consumption := (soc[0] - soc[len(soc)-1]) / distance * 100
		h.Consumption = models.Number(consumption)
		h.ConsumptionStatus = "economical"
		if consumption >= EconomicalConsumption {
			h.ConsumptionStatus = "high"
		}
	}
	return h
}
