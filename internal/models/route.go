package models

// EventKind tags a route event.
type EventKind string

const (
	EventStart            EventKind = "start"
	EventEnd              EventKind = "end"
	EventMaxSpeed         EventKind = "max_speed"
	EventRechargeDetected EventKind = "recharge_detected"
)

// RouteEvent marks a notable row of the route. Events are immutable once built.
type RouteEvent struct {
	Kind     EventKind `json:"kind"`
	Index    int       `json:"index"`
	Time     Number    `json:"time"`
	Lat      Number    `json:"lat"`
	Lon      Number    `json:"lon"`
	Speed    Number    `json:"speed"`
	SOC      Number    `json:"soc"`
	Temp     Number    `json:"temp"`
	SOCDelta Number    `json:"soc_delta"` // rise for recharges, consumption since start for the end event
}

// LatLon is a coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SpeedBand classifies a speed for route coloring.
type SpeedBand struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Segment joins two consecutive route rows.
type Segment struct {
	From      LatLon    `json:"from"`
	To        LatLon    `json:"to"`
	FromIndex int       `json:"from_index"`
	Speed     Number    `json:"speed"`
	SOC       Number    `json:"soc"`
	Band      SpeedBand `json:"band"`
}

// HeatPoint is a weighted coordinate for a speed heatmap.
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// AxisStats summarizes one coordinate axis.
type AxisStats struct {
	Mean   Number `json:"mean"`
	StdDev Number `json:"std_dev"`
	Min    Number `json:"min"`
	Max    Number `json:"max"`
}

// GPSSummary describes the spatial extent of the route.
type GPSSummary struct {
	Points   int       `json:"points"`
	Distance Number    `json:"distance"` // km, from VehDistance
	Lat      AxisStats `json:"lat"`
	Lon      AxisStats `json:"lon"`
	Center   LatLon    `json:"center"`
	Bounds   [2]LatLon `json:"bounds"`
	ExtentNS float64   `json:"extent_ns_km"`
	ExtentEW float64   `json:"extent_ew_km"`
	Zoom     int       `json:"zoom"`
}

// Route bundles everything the map view needs.
type Route struct {
	Events   []RouteEvent `json:"events"`
	Segments []Segment    `json:"segments,omitempty"`
	Heat     []HeatPoint  `json:"heat,omitempty"`
	Summary  *GPSSummary  `json:"summary,omitempty"`
}
