package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-telemetry-dashboard/internal/schema"
)

func TestParseCSVTrimsHeadersAndKeepsUnknownColumns(t *testing.T) {
	input := " Time , VehSpeed ,HVBSOC, Custom\n" +
		"0,10,80,a\n" +
		"1,20,79,7\n"

	res, err := NewParser("csv").Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Time", "VehSpeed", "HVBSOC", "Custom"}, res.Table.Columns)
	assert.Equal(t, []string{schema.Time, schema.VehSpeed, schema.HVBSOC}, res.Known)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, []float64{10, 20}, res.Table.Values["VehSpeed"])
	assert.Equal(t, []float64{7}, res.Table.Present("Custom"))
	assert.Equal(t, 1, res.Malformed["Custom"])
}

func TestParseCSVMalformedCellOnlyAffectsThatColumn(t *testing.T) {
	input := "Time,VehSpeed,HVBSOC\n" +
		"0,fast,80\n" +
		"1,20,\n" +
		"2,30\n"

	res, err := NewParser("csv").Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Equal(t, 3, res.Table.Len())
	assert.Equal(t, []float64{20, 30}, res.Table.Present("VehSpeed"))
	assert.Equal(t, []float64{80}, res.Table.Present("HVBSOC"))
	assert.Equal(t, 1, res.Malformed["VehSpeed"])
	assert.Zero(t, res.Malformed["HVBSOC"], "empty and short cells are missing, not malformed")
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := NewParser("csv").Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParseJSONArrayAndLines(t *testing.T) {
	array := `[{"Time":0,"HVBSOC":80,"Note":"x"},{"Time":1,"HVBSOC":null}]`
	res, err := NewParser("json").Parse(strings.NewReader(array))
	require.NoError(t, err)
	assert.Equal(t, []string{"Time", "HVBSOC", "Note"}, res.Table.Columns)
	assert.Equal(t, []float64{80}, res.Table.Present("HVBSOC"))
	assert.Equal(t, 1, res.Malformed["Note"])

	lines := "{\"Time\":0,\"VehSpeed\":\"12.5\"}\n\n{\"Time\":1,\"VehSpeed\":13}\n"
	res, err = NewParser("json").Parse(strings.NewReader(lines))
	require.NoError(t, err)
	assert.Equal(t, []float64{12.5, 13}, res.Table.Values["VehSpeed"])
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := NewParser("log").Parse(strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(dir)
	assert.ErrorIs(t, err, ErrNoCSV)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("Time\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.CSV"), []byte("Time\n"), 0o644))

	got, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.CSV"), got)

	got, err = Resolve("fixed.csv", dir)
	require.NoError(t, err)
	assert.Equal(t, "fixed.csv", got)

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrNoCSV)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "session.csv")
	require.NoError(t, os.WriteFile(p, []byte("Time,HVBSOC\n0,50\n"), 0o644))

	res, err := NewParser(FormatFor(p, "json")).ParseFile(p)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)

	_, err = NewParser("csv").ParseFile(filepath.Join(dir, "nope.csv"))
	assert.Error(t, err)
}

func TestValidateTelemetry(t *testing.T) {
	input := "Time,HVBSOC,VehSpeed\n0,101,-1\n1,50,10\n"
	res, err := NewParser("csv").Parse(strings.NewReader(input))
	require.NoError(t, err)

	warnings := ValidateTelemetry(res.Table)
	assert.Equal(t, []string{
		"HVBSOC must be between 0 and 100 (1 rows)",
		"VehSpeed cannot be negative (1 rows)",
	}, warnings)
}
