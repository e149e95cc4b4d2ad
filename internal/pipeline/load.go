// Package pipeline turns a telemetry file into dashboards: load, derive,
// window, then aggregate and extract route events.
package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/parser"
	"ev-telemetry-dashboard/internal/schema"
)

// Loaded is a derived table together with the session describing its source.
type Loaded struct {
	Table   *models.Table
	Session *models.Session
}

// LoadFile parses, validates and derives a telemetry file. Timestamps are
// anchored at load time unless anchor is non-zero.
func LoadFile(path, format string, anchor time.Time) (*Loaded, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}

	format = parser.FormatFor(abs, format)
	res, err := parser.NewParser(format).ParseFile(abs)
	if err != nil {
		return nil, err
	}

	loadedAt := time.Now().UTC()
	if anchor.IsZero() {
		anchor = loadedAt
	}

	table, dropped := Derive(res.Table, anchor)

	session := &models.Session{
		ID:             uuid.NewString(),
		Source:         abs,
		Format:         format,
		ModTime:        info.ModTime().UTC(),
		LoadedAt:       loadedAt,
		Rows:           table.Len(),
		SourceRows:     res.Rows,
		DroppedZeroGPS: dropped,
		Columns:        table.Columns,
		Known:          schema.Validate(table.Values, schema.Catalog),
		Capabilities:   table.Caps.Names(),
		Malformed:      res.Malformed,
		Warnings:       parser.ValidateTelemetry(table),
	}
	if w, ok := DefaultWindow(table); ok {
		session.Window = &w
	}

	slog.Info("telemetry loaded",
		"source", abs,
		"rows", session.Rows,
		"dropped_zero_gps", dropped,
		"capabilities", table.Caps.String(),
	)
	for _, w := range session.Warnings {
		slog.Warn("telemetry validation", "source", abs, "warning", w)
	}
	for col, n := range res.Malformed {
		slog.Warn("malformed cells", "source", abs, "column", col, "count", n)
	}

	return &Loaded{Table: table, Session: session}, nil
}
