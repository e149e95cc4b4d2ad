// Package route extracts map events, colored segments and the spatial
// summary from a GPS-capable telemetry table.
package route

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

// DefaultRechargeThreshold is the SOC rise (percentage points) between
// consecutive rows that counts as a recharge. It is a heuristic: noisy SOC
// sensors can trigger it and slow charging split over many rows will not.
const DefaultRechargeThreshold = 5.0

// kmPerDegree approximates one degree of latitude.
const kmPerDegree = 111.0

// Options tunes event extraction.
type Options struct {
	RechargeThreshold float64
}

// DefaultOptions returns the stock extraction settings.
func DefaultOptions() Options {
	return Options{RechargeThreshold: DefaultRechargeThreshold}
}

// Extract returns the route events in order: start, end, max speed (when a
// speed column exists) and one recharge per qualifying SOC rise. It returns
// nil for a table without GPS or without rows.
func Extract(t *models.Table, opt Options) []models.RouteEvent {
	n := t.Len()
	if !t.Caps.Has(schema.CapGPS) || n == 0 {
		return nil
	}
	if opt.RechargeThreshold <= 0 {
		opt.RechargeThreshold = DefaultRechargeThreshold
	}

	events := []models.RouteEvent{event(t, models.EventStart, 0)}

	end := event(t, models.EventEnd, n-1)
	if soc := t.Present(schema.HVBSOC); len(soc) > 0 {
		end.SOCDelta = models.Number(soc[0] - soc[len(soc)-1])
	}
	events = append(events, end)

	if speed, ok := t.Column(schema.VehSpeed); ok {
		best := -1
		for i, v := range speed {
			if math.IsNaN(v) {
				continue
			}
			if best < 0 || v > speed[best] {
				best = i
			}
		}
		if best >= 0 {
			events = append(events, event(t, models.EventMaxSpeed, best))
		}
	}

	if soc, ok := t.Column(schema.HVBSOC); ok {
		for i := 1; i < len(soc); i++ {
			rise := soc[i] - soc[i-1]
			if math.IsNaN(rise) || rise <= opt.RechargeThreshold {
				continue
			}
			e := event(t, models.EventRechargeDetected, i)
			e.SOCDelta = models.Number(rise)
			events = append(events, e)
		}
	}
	return events
}

func event(t *models.Table, kind models.EventKind, i int) models.RouteEvent {
	return models.RouteEvent{
		Kind:     kind,
		Index:    i,
		Time:     models.Number(t.Cell(schema.Time, i)),
		Lat:      models.Number(t.Cell(schema.GPSLat, i)),
		Lon:      models.Number(t.Cell(schema.GPSLon, i)),
		Speed:    models.Number(t.Cell(schema.VehSpeed, i)),
		SOC:      models.Number(t.Cell(schema.HVBSOC, i)),
		Temp:     models.Number(t.Cell(schema.HVBTemp, i)),
		SOCDelta: models.NaN(),
	}
}

var bands = []struct {
	below float64
	band  models.SpeedBand
}{
	{20, models.SpeedBand{Label: "0-20 km/h", Color: "#00ff00"}},
	{40, models.SpeedBand{Label: "20-40 km/h", Color: "#7fff00"}},
	{60, models.SpeedBand{Label: "40-60 km/h", Color: "#ffff00"}},
	{80, models.SpeedBand{Label: "60-80 km/h", Color: "#ff8c00"}},
}

var (
	fastBand    = models.SpeedBand{Label: "80+ km/h", Color: "#ff0000"}
	unknownBand = models.SpeedBand{Label: "unknown", Color: "#808080"}
)

// BandFor classifies a speed into a color band.
func BandFor(speed float64) models.SpeedBand {
	if math.IsNaN(speed) {
		return unknownBand
	}
	for _, b := range bands {
		if speed < b.below {
			return b.band
		}
	}
	return fastBand
}

// Segments joins consecutive rows that both carry a position.
func Segments(t *models.Table) []models.Segment {
	if !t.Caps.Has(schema.CapGPS) {
		return nil
	}
	var out []models.Segment
	for i := 0; i+1 < t.Len(); i++ {
		from, ok1 := position(t, i)
		to, ok2 := position(t, i+1)
		if !ok1 || !ok2 {
			continue
		}
		speed := t.Cell(schema.VehSpeed, i)
		out = append(out, models.Segment{
			From:      from,
			To:        to,
			FromIndex: i,
			Speed:     models.Number(speed),
			SOC:       models.Number(t.Cell(schema.HVBSOC, i)),
			Band:      BandFor(speed),
		})
	}
	return out
}

// HeatPoints weights each positioned row by speed/100.
func HeatPoints(t *models.Table) []models.HeatPoint {
	if !t.Caps.Has(schema.CapGPS) || !t.Has(schema.VehSpeed) {
		return nil
	}
	var out []models.HeatPoint
	for i := 0; i < t.Len(); i++ {
		p, ok := position(t, i)
		speed, okSpeed := t.Value(schema.VehSpeed, i)
		if !ok || !okSpeed {
			continue
		}
		out = append(out, models.HeatPoint{Lat: p.Lat, Lon: p.Lon, Weight: speed / 100})
	}
	return out
}

func position(t *models.Table, i int) (models.LatLon, bool) {
	lat, ok1 := t.Value(schema.GPSLat, i)
	lon, ok2 := t.Value(schema.GPSLon, i)
	return models.LatLon{Lat: lat, Lon: lon}, ok1 && ok2
}

// Summarize describes the spatial extent and a suggested map zoom.
// It returns nil when no row carries a full position.
func Summarize(t *models.Table) *models.GPSSummary {
	if !t.Caps.Has(schema.CapGPS) {
		return nil
	}
	var lats, lons []float64
	for i := 0; i < t.Len(); i++ {
		if p, ok := position(t, i); ok {
			lats = append(lats, p.Lat)
			lons = append(lons, p.Lon)
		}
	}
	if len(lats) == 0 {
		return nil
	}

	s := &models.GPSSummary{
		Points:   len(lats),
		Distance: models.NaN(),
		Lat:      axis(lats),
		Lon:      axis(lons),
	}
	s.Center = models.LatLon{Lat: float64(s.Lat.Mean), Lon: float64(s.Lon.Mean)}
	s.Bounds = [2]models.LatLon{
		{Lat: float64(s.Lat.Min), Lon: float64(s.Lon.Min)},
		{Lat: float64(s.Lat.Max), Lon: float64(s.Lon.Max)},
	}

	latRange := float64(s.Lat.Max - s.Lat.Min)
	lonRange := float64(s.Lon.Max - s.Lon.Min)
	s.ExtentNS = latRange * kmPerDegree
	s.ExtentEW = lonRange * kmPerDegree * math.Cos(float64(s.Lat.Mean)*math.Pi/180)
	s.Zoom = zoomFor(math.Max(latRange, lonRange))

	if dist := t.Present(schema.VehDistance); len(dist) > 0 {
		s.Distance = models.Number(dist[len(dist)-1] - dist[0])
	}
	return s
}

func axis(v []float64) models.AxisStats {
	a := models.AxisStats{
		Mean:   models.Number(stat.Mean(v, nil)),
		StdDev: models.NaN(),
		Min:    models.Number(floats.Min(v)),
		Max:    models.Number(floats.Max(v)),
	}
	if len(v) > 1 {
		a.StdDev = models.Number(stat.StdDev(v, nil))
	}
	return a
}

func zoomFor(spanDegrees float64) int {
	switch {
	case spanDegrees < 0.01:
		return 15
	case spanDegrees < 0.05:
		return 13
	default:
		return 12
	}
}

// Build assembles everything the map view needs, or nil without GPS.
func Build(t *models.Table, opt Options) *models.Route {
	if !t.Caps.Has(schema.CapGPS) {
		return nil
	}
	return &models.Route{
		Events:   Extract(t, opt),
		Segments: Segments(t),
		Heat:     HeatPoints(t),
		Summary:  Summarize(t),
	}
}
