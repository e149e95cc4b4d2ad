// Package export writes dashboards and tables to spreadsheet formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

// Sheet names in workbook order.
const (
	SheetSummary     = "Summary"
	SheetStatistics  = "Statistics"
	SheetCorrelation = "Correlation"
	SheetEvents      = "Events"
	SheetSamples     = "Samples"
)

// WriteXLSX renders a dashboard as a workbook. Sections the dashboard does
// not carry (public audience, no GPS) produce a sheet with headers only.
func WriteXLSX(w io.Writer, d *models.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetStatistics, SheetCorrelation, SheetEvents, SheetSamples} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	writers := []struct {
		sheet string
		rows  [][]interface{}
	}{
		{SheetSummary, summaryRows(d)},
		{SheetStatistics, statRows(d.Stats)},
		{SheetCorrelation, correlationRows(d.Correlation)},
		{SheetEvents, eventRows(d.Route)},
		{SheetSamples, sampleRows(d.Samples)},
	}
	for _, sw := range writers {
		if err := writeRows(f, sw.sheet, sw.rows); err != nil {
			return fmt.Errorf("write sheet %s: %w", sw.sheet, err)
		}
		if err := f.SetRowStyle(sw.sheet, 1, 1, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// cell converts an undefined number into an empty cell.
func cell(n models.Number) interface{} {
	if !n.Defined() {
		return nil
	}
	return float64(n)
}

func summaryRows(d *models.Dashboard) [][]interface{} {
	h := d.Headline
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Audience", string(d.Config.Audience)},
		{"Window start", d.Window.Start},
		{"Window end", d.Window.End},
		{"Rows", d.Rows},
		{"Max speed (km/h)", cell(h.MaxSpeed)},
		{"Speed above mean (km/h)", cell(h.SpeedAboveMean)},
		{"Mean SOC (%)", cell(h.MeanSOC)},
		{"SOC delta (%)", cell(h.SOCDelta)},
		{"Max temperature (C)", cell(h.MaxTemp)},
		{"Temperature status", h.TempStatus},
		{"Distance (km)", cell(h.Distance)},
		{"Average speed (km/h)", cell(h.AvgSpeed)},
		{"Consumption (%/100 km)", cell(h.Consumption)},
		{"Consumption status", h.ConsumptionStatus},
		{"Duration (s)", cell(h.Duration)},
	}
	if d.Session != nil {
		rows = append(rows,
			[]interface{}{"Session", d.Session.ID},
			[]interface{}{"Source", d.Session.Source},
		)
	}
	if d.Empty {
		rows = append(rows, []interface{}{"Message", d.Message})
	}
	return rows
}

func statRows(stats []models.StatSummary) [][]interface{} {
	rows := [][]interface{}{{"Column", "Count", "Mean", "Median", "Std", "Min", "Max", "Q1", "Q3", "Variance"}}
	for _, s := range stats {
		rows = append(rows, []interface{}{
			s.Column, s.Count, cell(s.Mean), cell(s.Median), cell(s.StdDev),
			cell(s.Min), cell(s.Max), cell(s.Q1), cell(s.Q3), cell(s.Variance),
		})
	}
	return rows
}

func correlationRows(c *models.CorrelationResult) [][]interface{} {
	if c == nil {
		return [][]interface{}{{"Correlation"}}
	}
	if c.Insufficient() {
		return [][]interface{}{{"Correlation"}, {"insufficient data: " + c.Reason}}
	}
	m := c.Matrix
	header := []interface{}{""}
	for _, col := range m.Columns {
		header = append(header, col)
	}
	rows := [][]interface{}{header}
	for i, col := range m.Columns {
		row := []interface{}{col}
		for j := range m.Columns {
			if m.Defined[i][j] {
				row = append(row, m.Values[i][j])
			} else {
				row = append(row, nil)
			}
		}
		rows = append(rows, row)
	}

	rows = append(rows, []interface{}{}, []interface{}{"A", "B", "r", "n"})
	for _, p := range c.Top {
		rows = append(rows, []interface{}{p.A, p.B, p.R, p.N})
	}
	return rows
}

func eventRows(r *models.Route) [][]interface{} {
	rows := [][]interface{}{{"Event", "Index", "Time", "Lat", "Lon", "Speed", "SOC", "Temp", "SOC delta"}}
	if r == nil {
		return rows
	}
	for _, e := range r.Events {
		rows = append(rows, []interface{}{
			string(e.Kind), e.Index, cell(e.Time), cell(e.Lat), cell(e.Lon),
			cell(e.Speed), cell(e.SOC), cell(e.Temp), cell(e.SOCDelta),
		})
	}
	return rows
}

func sampleRows(samples []models.Row) [][]interface{} {
	columns := sampleColumns(samples)
	header := []interface{}{"Index", schema.Timestamp}
	for _, c := range columns {
		header = append(header, c)
	}
	rows := [][]interface{}{header}
	for _, s := range samples {
		row := []interface{}{s.Index, nil}
		if s.Timestamp != nil {
			row[1] = s.Timestamp.UTC().Format(time.RFC3339)
		}
		for _, c := range columns {
			row = append(row, cell(s.Values[c]))
		}
		rows = append(rows, row)
	}
	return rows
}

// sampleColumns orders catalog columns first, then the rest alphabetically.
func sampleColumns(samples []models.Row) []string {
	seen := make(map[string]bool)
	for _, s := range samples {
		for c := range s.Values {
			seen[c] = true
		}
	}
	var out []string
	for _, c := range schema.Catalog {
		if seen[c] {
			out = append(out, c)
			delete(seen, c)
		}
	}
	rest := make([]string, 0, len(seen))
	for c := range seen {
		rest = append(rest, c)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// WriteCSV writes the table with a leading RFC3339 Timestamp column when
// the table carries timestamps. Missing cells are left empty.
func WriteCSV(w io.Writer, t *models.Table) error {
	cw := csv.NewWriter(w)

	withTime := t.Timestamps != nil
	header := make([]string, 0, len(t.Columns)+1)
	if withTime {
		header = append(header, schema.Timestamp)
	}
	header = append(header, t.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		k := 0
		if withTime {
			record[0] = ""
			if !t.Timestamps[i].IsZero() {
				record[0] = t.Timestamps[i].UTC().Format(time.RFC3339)
			}
			k = 1
		}
		for j, c := range t.Columns {
			record[k+j] = ""
			if v, ok := t.Value(c, i); ok {
				record[k+j] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
