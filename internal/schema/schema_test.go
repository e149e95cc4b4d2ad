package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePreservesCatalogOrder(t *testing.T) {
	raw := map[string][]float64{
		"HVBSOC":   {1},
		"Time":     {0},
		"VehSpeed": {2},
		"Custom":   {3},
	}

	got := Validate(raw, Catalog)

	assert.Equal(t, []string{Time, VehSpeed, HVBSOC}, got)
}

func TestValidateEmptyInput(t *testing.T) {
	got := Validate(map[string][]float64{}, Catalog)
	assert.Empty(t, got)
}

func TestDetectRequiresBothGPSAxes(t *testing.T) {
	assert.False(t, Detect([]string{Time, GPSLat}).Has(CapGPS))
	assert.True(t, Detect([]string{Time, GPSLat, GPSLon}).Has(CapGPS))
}

func TestDetectDerivationAbilities(t *testing.T) {
	c := Detect([]string{Time, VehSpeed, MotTorque, HVBVoltage})
	assert.True(t, c.CanDeriveEnergy())
	assert.True(t, c.CanDeriveEfficiency())
	assert.False(t, c.Has(CapEnergy))

	c = Detect([]string{Time, VehSpeed, MotTorque})
	assert.False(t, c.CanDeriveEnergy())
	assert.False(t, c.CanDeriveEfficiency())
}

func TestCapabilityNames(t *testing.T) {
	c := CapTime.With(CapSOC).With(CapGPS)
	assert.Equal(t, []string{"time", "gps", "soc"}, c.Names())
	assert.Equal(t, "time,gps,soc", c.String())
	assert.Equal(t, "none", Capability(0).String())
}

func TestCleanHeader(t *testing.T) {
	assert.Equal(t, "Time", CleanHeader("\ufeff Time "))
	assert.Equal(t, "VehSpeed", CleanHeader("\tVehSpeed"))
	assert.True(t, IsKnown("Efficiency"))
	assert.False(t, IsKnown("vehspeed"))
}
