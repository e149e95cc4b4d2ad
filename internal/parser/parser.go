package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"
)

var (
	// ErrNoCSV is returned when no telemetry file can be found.
	ErrNoCSV = errors.New("no telemetry CSV found")
	// ErrUnsupportedFormat is returned for unknown input formats.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEmptyInput is returned when the input has no header.
	ErrEmptyInput = errors.New("empty input")
)

// Result is a parsed raw table plus per-column parse diagnostics.
type Result struct {
	Table     *models.Table
	Rows      int
	Known     []string
	Malformed map[string]int // non-numeric cells per column
}

// Parser handles parsing of telemetry data files
type Parser struct {
	format string
}

// NewParser creates a new parser with the specified format
func NewParser(format string) *Parser {
	return &Parser{format: format}
}

// ParseFile parses a telemetry data file
func (p *Parser) ParseFile(filename string) (*Result, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse reads telemetry from r in the parser's format.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	switch strings.ToLower(p.format) {
	case "", "csv":
		return p.parseCSV(r)
	case "json":
		return p.parseJSON(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, p.format)
	}
}

// parseCSV parses CSV formatted telemetry data
func (p *Parser) parseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable fields
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map header indices; the first occurrence of a name wins
	indices := make(map[string]int)
	var columns []string
	for i, h := range header {
		name := schema.CleanHeader(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if _, dup := indices[name]; dup {
			continue
		}
		indices[name] = i
		columns = append(columns, name)
	}

	res := newResult(columns)
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("error at line %d: %w", lineNum, err)
		}
		if isBlank(record) {
			continue
		}

		row := make(map[string]float64, len(columns))
		for _, name := range columns {
			idx := indices[name]
			cell := ""
			if idx < len(record) {
				cell = strings.TrimSpace(record[idx])
			}
			row[name] = res.parseCell(name, cell)
		}
		res.Table.AppendRow(row)
		res.Rows++
	}

	res.Known = schema.Validate(res.Table.Values, schema.Catalog)
	return res, nil
}

// parseJSON parses a JSON array of objects or newline-delimited objects.
func (p *Parser) parseJSON(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	var objects []map[string]any
	if data[0] == '[' {
		if err := json.Unmarshal(data, &objects); err != nil {
			return nil, fmt.Errorf("failed to decode JSON array: %w", err)
		}
	} else {
		objects, err = parseJSONLines(data)
		if err != nil {
			return nil, err
		}
	}

	res := newResult(jsonColumns(objects))
	for _, obj := range objects {
		row := make(map[string]float64, len(obj))
		for _, name := range res.Table.Columns {
			row[name] = res.parseValue(name, obj[name])
		}
		res.Table.AppendRow(row)
		res.Rows++
	}

	res.Known = schema.Validate(res.Table.Values, schema.Catalog)
	return res, nil
}

// parseJSONLines parses newline-delimited JSON
func parseJSONLines(data []byte) ([]map[string]any, error) {
	var objects []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		line = strings.TrimSuffix(line, ",")

		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, fmt.Errorf("error at line %d: %w", lineNum, err)
		}
		objects = append(objects, obj)
	}

	return objects, scanner.Err()
}

// jsonColumns orders keys: catalog columns first, then the rest alphabetically.
func jsonColumns(objects []map[string]any) []string {
	seen := make(map[string]bool)
	for _, obj := range objects {
		for k := range obj {
			seen[schema.CleanHeader(k)] = true
		}
	}
	var columns, extra []string
	for _, name := range schema.Catalog {
		if seen[name] {
			columns = append(columns, name)
			delete(seen, name)
		}
	}
	for name := range seen {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

func newResult(columns []string) *Result {
	return &Result{
		Table:     models.NewTable(columns),
		Malformed: make(map[string]int),
	}
}

// parseCell converts a CSV cell. Empty cells are missing; anything that is not
// a number is counted as malformed and stored as missing.
func (res *Result) parseCell(column, cell string) float64 {
	if cell == "" || strings.EqualFold(cell, "nan") || strings.EqualFold(cell, "null") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsInf(v, 0) {
		res.Malformed[column]++
		return math.NaN()
	}
	return v
}

func (res *Result) parseValue(column string, v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return x
	case string:
		return res.parseCell(column, strings.TrimSpace(x))
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		res.Malformed[column]++
		return math.NaN()
	}
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Discover returns the first CSV file in dir, in lexical order.
func Discover(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoCSV
		}
		return "", fmt.Errorf("failed to read directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", ErrNoCSV
}

// Resolve picks the explicit path when set, otherwise discovers one in dir.
func Resolve(path, dir string) (string, error) {
	if path != "" {
		return path, nil
	}
	return Discover(dir)
}

// FormatFor infers the format from a file extension, defaulting to fallback.
func FormatFor(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".ndjson", ".jsonl":
		return "json"
	case ".csv":
		return "csv"
	}
	return fallback
}

// ValidateTelemetry reports physically implausible values without dropping rows.
func ValidateTelemetry(t *models.Table) []string {
	type bound struct {
		column   string
		min, max float64
		message  string
	}
	bounds := []bound{
		{schema.HVBSOC, 0, 100, "HVBSOC must be between 0 and 100"},
		{schema.GPSLat, -90, 90, "GPSLat must be between -90 and 90"},
		{schema.GPSLon, -180, 180, "GPSLon must be between -180 and 180"},
		{schema.VehSpeed, 0, math.Inf(1), "VehSpeed cannot be negative"},
		{schema.AccelPedal, 0, 100, "AccelPedal must be between 0 and 100"},
	}

	var warnings []string
	for _, b := range bounds {
		count := 0
		for _, v := range t.Present(b.column) {
			if v < b.min || v > b.max {
				count++
			}
		}
		if count > 0 {
			warnings = append(warnings, fmt.Sprintf("%s (%d rows)", b.message, count))
		}
	}
	return warnings
}
