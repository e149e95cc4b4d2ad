package pipeline

import (
	"ev-telemetry-dashboard/internal/analysis"
	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/route"
	"ev-telemetry-dashboard/internal/schema"
)

// NoDataMessage is shown in place of every view when nothing is loaded
// or the window selects no rows.
const NoDataMessage = "no data"

// DefaultSeriesColumns are charted when the config selects none.
var DefaultSeriesColumns = []string{schema.VehSpeed, schema.HVBSOC}

var energySeries = []string{schema.HVBSOC, schema.HVBTemp, schema.HVBVoltage}

// Options carries the tunable thresholds of the aggregation stages.
type Options struct {
	Analysis      analysis.Options
	Route         route.Options
	StatColumns   []string
	HistogramBins int
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		Analysis:      analysis.DefaultOptions(),
		Route:         route.DefaultOptions(),
		StatColumns:   analysis.StatColumns,
		HistogramBins: analysis.DefaultHistogramBins,
	}
}

// Normalize fills unset config fields with their defaults.
func Normalize(cfg models.DashboardConfig) models.DashboardConfig {
	if cfg.Audience == "" {
		cfg.Audience = models.AudiencePublic
	}
	if cfg.ViewMode == "" {
		cfg.ViewMode = models.ViewSynthetic
	}
	if len(cfg.SelectedColumns) == 0 {
		cfg.SelectedColumns = append([]string(nil), DefaultSeriesColumns...)
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = models.DefaultRowLimit
	}
	return cfg
}

// Build recomputes a dashboard from the cached base table. The base table
// is only read; the window produces an independent copy. A nil base or an
// empty selection yields an empty dashboard rather than an error.
func Build(base *models.Table, session *models.Session, cfg models.DashboardConfig, opt Options) *models.Dashboard {
	cfg = Normalize(cfg)
	if len(opt.StatColumns) == 0 {
		opt.StatColumns = analysis.StatColumns
	}

	d := &models.Dashboard{Session: session, Config: cfg}
	if base == nil || base.Len() == 0 {
		return empty(d)
	}

	var view *models.Table
	if cfg.Window != nil {
		d.Window = *cfg.Window
		view = FilterWindow(base, *cfg.Window)
	} else if w, ok := DefaultWindow(base); ok {
		d.Window = w
		view = FilterWindow(base, w)
	} else {
		// Without a time axis there is nothing to window on.
		view = base.Select(allRows(base.Len()))
	}
	if view.Len() == 0 {
		return empty(d)
	}

	d.Rows = view.Len()
	d.Headline = analysis.Headline(view)
	d.Series = series(view, cfg)

	d.Route = route.Build(view, opt.Route)
	if d.Route != nil && cfg.Audience != models.AudienceExpert {
		d.Route.Heat = nil
		d.Route.Summary = nil
	}

	if cfg.Audience == models.AudienceExpert {
		d.Stats = analysis.DescribeOrdered(view, opt.StatColumns)
		d.Histograms = analysis.Histograms(view, opt.StatColumns, opt.HistogramBins)
		corr := analysis.Correlate(view, opt.StatColumns, opt.Analysis)
		d.Correlation = &corr
		d.Samples = view.Rows(0, cfg.RowLimit)
	}
	return d
}

func empty(d *models.Dashboard) *models.Dashboard {
	d.Empty = true
	d.Message = NoDataMessage
	d.Headline = analysis.Headline(nil)
	return d
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func series(t *models.Table, cfg models.DashboardConfig) []models.Series {
	columns := cfg.SelectedColumns
	if cfg.ViewMode == models.ViewEnergy {
		columns = energySeries
	}
	times, hasTime := t.Column(schema.Time)

	var out []models.Series
	for _, col := range columns {
		values, ok := t.Column(col)
		if !ok || col == schema.Time {
			continue
		}
		s := models.Series{Column: col, Values: make([]models.Number, len(values))}
		for i, v := range values {
			s.Values[i] = models.Number(v)
		}
		if hasTime {
			s.Time = append([]float64(nil), times...)
		}
		out = append(out, s)
	}
	return out
}
