package models

import (
	"math"
	"time"

	"ev-telemetry-dashboard/internal/schema"
)

// Table is a columnar telemetry table. Row order is the source row order.
// A missing or malformed cell is stored as NaN.
type Table struct {
	Columns    []string
	Values     map[string][]float64
	Timestamps []time.Time // anchor + Time offset; display only
	Anchor     time.Time
	Caps       schema.Capability
}

// NewTable creates an empty table with the given column order.
func NewTable(columns []string) *Table {
	t := &Table{
		Columns: make([]string, 0, len(columns)),
		Values:  make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		if _, dup := t.Values[c]; dup {
			continue
		}
		t.Columns = append(t.Columns, c)
		t.Values[c] = nil
	}
	t.Caps = schema.Detect(t.Columns)
	return t
}

// FromColumns builds a table from column slices. All slices must share a length.
func FromColumns(columns []string, values map[string][]float64) *Table {
	t := NewTable(columns)
	for _, c := range t.Columns {
		t.Values[c] = values[c]
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	for _, c := range t.Columns {
		return len(t.Values[c])
	}
	return 0
}

// Has reports whether the column exists.
func (t *Table) Has(col string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Values[col]
	return ok
}

// Column returns the raw column slice; callers must not modify it.
func (t *Table) Column(col string) ([]float64, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.Values[col]
	return v, ok
}

// Value returns the cell at row i, ok is false when absent or missing.
func (t *Table) Value(col string, i int) (float64, bool) {
	v, ok := t.Column(col)
	if !ok || i < 0 || i >= len(v) || math.IsNaN(v[i]) {
		return math.NaN(), false
	}
	return v[i], true
}

// Cell returns the cell at row i or NaN.
func (t *Table) Cell(col string, i int) float64 {
	v, _ := t.Value(col, i)
	return v
}

// SetColumn adds or replaces a column, appending it to the column order if new.
func (t *Table) SetColumn(col string, values []float64) {
	if _, ok := t.Values[col]; !ok {
		t.Columns = append(t.Columns, col)
	}
	t.Values[col] = values
	t.Caps = schema.Detect(t.Columns)
}

// AppendRow appends a row; columns absent from row are stored as missing.
func (t *Table) AppendRow(row map[string]float64) {
	for _, c := range t.Columns {
		v, ok := row[c]
		if !ok {
			v = math.NaN()
		}
		t.Values[c] = append(t.Values[c], v)
	}
}

// Select returns a new table holding the rows at idx, in idx order.
func (t *Table) Select(idx []int) *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Values:  make(map[string][]float64, len(t.Columns)),
		Anchor:  t.Anchor,
		Caps:    t.Caps,
	}
	for _, c := range t.Columns {
		src := t.Values[c]
		dst := make([]float64, len(idx))
		for k, i := range idx {
			dst[k] = src[i]
		}
		out.Values[c] = dst
	}
	if t.Timestamps != nil {
		out.Timestamps = make([]time.Time, len(idx))
		for k, i := range idx {
			out.Timestamps[k] = t.Timestamps[i]
		}
	}
	return out
}

// Present returns the non-missing values of a column, in row order.
func (t *Table) Present(col string) []float64 {
	v, ok := t.Column(col)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Row is one serialized table row.
type Row struct {
	Index     int               `json:"index"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
	Values    map[string]Number `json:"values"`
}

// Rows serializes rows [offset, offset+limit). limit <= 0 means all.
func (t *Table) Rows(offset, limit int) []Row {
	n := t.Len()
	if offset < 0 {
		offset = 0
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	if offset >= end {
		return []Row{}
	}
	rows := make([]Row, 0, end-offset)
	for i := offset; i < end; i++ {
		r := Row{Index: i, Values: make(map[string]Number, len(t.Columns))}
		if t.Timestamps != nil {
			ts := t.Timestamps[i]
			r.Timestamp = &ts
		}
		for _, c := range t.Columns {
			r.Values[c] = Number(t.Values[c][i])
		}
		rows = append(rows, r)
	}
	return rows
}

// TimeWindow is an inclusive [Start, End] range over the Time column.
type TimeWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether t lies in the window.
func (w TimeWindow) Contains(t float64) bool {
	return w.Start <= t && t <= w.End
}

// Valid reports whether Start <= End.
func (w TimeWindow) Valid() bool {
	return w.Start <= w.End
}

// Session describes one loaded source file.
type Session struct {
	ID             string         `json:"id"`
	Source         string         `json:"source"`
	Format         string         `json:"format"`
	ModTime        time.Time      `json:"mod_time"`
	LoadedAt       time.Time      `json:"loaded_at"`
	Rows           int            `json:"rows"`
	SourceRows     int            `json:"source_rows"`
	DroppedZeroGPS int            `json:"dropped_zero_gps"`
	Columns        []string       `json:"columns"`
	Known          []string       `json:"known_columns"`
	Capabilities   []string       `json:"capabilities"`
	Malformed      map[string]int `json:"malformed,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	Window         *TimeWindow    `json:"window,omitempty"`
	Missing        bool           `json:"missing,omitempty"`
}
