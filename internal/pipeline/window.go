package pipeline

import (
	"math"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

// Filter returns a new table with the rows where start <= Time <= end.
// It never fails: an inverted range, a missing Time column or no match all
// yield an empty table with the same columns.
func Filter(t *models.Table, start, end float64) *models.Table {
	times, ok := t.Column(schema.Time)
	if !ok || start > end {
		return t.Select(nil)
	}
	keep := make([]int, 0, len(times))
	for i, s := range times {
		if !math.IsNaN(s) && start <= s && s <= end {
			keep = append(keep, i)
		}
	}
	return t.Select(keep)
}

// FilterWindow is Filter over a TimeWindow.
func FilterWindow(t *models.Table, w models.TimeWindow) *models.Table {
	return Filter(t, w.Start, w.End)
}

// DefaultWindow spans the observed minimum and maximum Time.
// ok is false when the table has no time values.
func DefaultWindow(t *models.Table) (models.TimeWindow, bool) {
	times := t.Present(schema.Time)
	if len(times) == 0 {
		return models.TimeWindow{}, false
	}
	w := models.TimeWindow{Start: times[0], End: times[0]}
	for _, s := range times[1:] {
		w.Start = math.Min(w.Start, s)
		w.End = math.Max(w.End, s)
	}
	return w, true
}
