package schema

import (
	"strings"
)

// Recognized telemetry columns, exact match after trimming.
const (
	Time        = "Time"
	GPSLat      = "GPSLat"
	GPSLon      = "GPSLon"
	VehSpeed    = "VehSpeed"
	AccelPedal  = "AccelPedal"
	BrakePedal  = "BrakePedal"
	MotTorque   = "MotTorque"
	MotSpeed    = "MotSpeed"
	HVBSOC      = "HVBSOC"
	HVBTemp     = "HVBTemp"
	HVBVoltage  = "HVBVoltage"
	HVBCurrent  = "HVBCurrent"
	VehDistance = "VehDistance"
	SteerAngle  = "SteerAngle"
	ExtTemp     = "ExtTemp"
	IntTemp     = "IntTemp"
)

// Derived columns appended by the metric deriver.
const (
	Timestamp         = "Timestamp"
	EnergyConsumption = "Energy_Consumption"
	Efficiency        = "Efficiency"
)

// Catalog is the ordered list of known telemetry columns.
var Catalog = []string{
	Time, GPSLat, GPSLon, VehSpeed, AccelPedal, BrakePedal, MotTorque, MotSpeed,
	HVBSOC, HVBTemp, HVBVoltage, HVBCurrent, VehDistance, SteerAngle, ExtTemp, IntTemp,
}

// Derived lists the numeric columns computed from raw ones.
var Derived = []string{EnergyConsumption, Efficiency}

// Capability is a flag set describing which features a table supports.
type Capability uint32

const (
	CapTime Capability = 1 << iota
	CapGPS
	CapSpeed
	CapTorque
	CapSOC
	CapTemp
	CapVoltage
	CapCurrent
	CapDistance
	CapAccelPedal
	CapBrakePedal
	CapEnergy
	CapEfficiency
)

var capNames = []struct {
	c    Capability
	name string
}{
	{CapTime, "time"},
	{CapGPS, "gps"},
	{CapSpeed, "speed"},
	{CapTorque, "torque"},
	{CapSOC, "soc"},
	{CapTemp, "temperature"},
	{CapVoltage, "voltage"},
	{CapCurrent, "current"},
	{CapDistance, "distance"},
	{CapAccelPedal, "accel_pedal"},
	{CapBrakePedal, "brake_pedal"},
	{CapEnergy, "energy"},
	{CapEfficiency, "efficiency"},
}

var columnCaps = map[string]Capability{
	Time:              CapTime,
	VehSpeed:          CapSpeed,
	MotTorque:         CapTorque,
	HVBSOC:            CapSOC,
	HVBTemp:           CapTemp,
	HVBVoltage:        CapVoltage,
	HVBCurrent:        CapCurrent,
	VehDistance:       CapDistance,
	AccelPedal:        CapAccelPedal,
	BrakePedal:        CapBrakePedal,
	EnergyConsumption: CapEnergy,
	Efficiency:        CapEfficiency,
}

// Has reports whether every flag in f is set.
func (c Capability) Has(f Capability) bool {
	return c&f == f
}

// With returns c with f added.
func (c Capability) With(f Capability) Capability {
	return c | f
}

// Names lists the set flags in declaration order.
func (c Capability) Names() []string {
	var out []string
	for _, cn := range capNames {
		if c.Has(cn.c) {
			out = append(out, cn.name)
		}
	}
	return out
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	return strings.Join(c.Names(), ",")
}

// CanDeriveEnergy reports whether energy consumption can be computed.
func (c Capability) CanDeriveEnergy() bool {
	return c.Has(CapVoltage | CapTorque)
}

// CanDeriveEfficiency reports whether efficiency can be computed.
func (c Capability) CanDeriveEfficiency() bool {
	return c.Has(CapSpeed) && (c.Has(CapEnergy) || c.CanDeriveEnergy())
}

// Validate returns the catalog columns present in raw, in catalog order.
// Missing columns are not an error.
func Validate[V any](raw map[string]V, catalog []string) []string {
	present := make([]string, 0, len(catalog))
	for _, name := range catalog {
		if _, ok := raw[name]; ok {
			present = append(present, name)
		}
	}
	return present
}

// Detect computes the capability set for a list of present column names.
// GPS requires both latitude and longitude.
func Detect(columns []string) Capability {
	var c Capability
	var lat, lon bool
	for _, name := range columns {
		switch name {
		case GPSLat:
			lat = true
		case GPSLon:
			lon = true
		default:
			if f, ok := columnCaps[name]; ok {
				c = c.With(f)
			}
		}
	}
	if lat && lon {
		c = c.With(CapGPS)
	}
	return c
}

// IsKnown reports whether name is a catalog or derived column.
func IsKnown(name string) bool {
	for _, n := range Catalog {
		if n == name {
			return true
		}
	}
	for _, n := range Derived {
		if n == name {
			return true
		}
	}
	return false
}

// CleanHeader trims whitespace and a leading byte order mark from a header cell.
func CleanHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}
