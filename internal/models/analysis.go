package models

// StatSummary holds descriptive statistics over the non-missing values of one column.
// Fields are NaN (JSON null) when Count is too small to define them.
type StatSummary struct {
	Column   string `json:"column"`
	Count    int    `json:"count"`
	Mean     Number `json:"mean"`
	Median   Number `json:"median"`
	StdDev   Number `json:"std_dev"`
	Min      Number `json:"min"`
	Max      Number `json:"max"`
	Q1       Number `json:"q1"`
	Q3       Number `json:"q3"`
	Variance Number `json:"variance"`
}

// Insufficient reports whether the column had no values to summarize.
func (s StatSummary) Insufficient() bool {
	return s.Count == 0
}

// CorrelationStatus tags a correlation result.
type CorrelationStatus string

const (
	CorrelationOK               CorrelationStatus = "ok"
	CorrelationInsufficientData CorrelationStatus = "insufficient_data"
)

// CorrelationMatrix is a symmetric Pearson matrix. Values holds display values:
// cells with Defined false are rendered as 0 and must not be ranked.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
	Defined [][]bool    `json:"defined"`
	Pairs   [][]int     `json:"pairs"` // joint non-missing sample counts
}

// Get returns the coefficient between a and b; ok is false when undefined.
func (m *CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 || !m.Defined[i][j] {
		return 0, false
	}
	return m.Values[i][j], true
}

func (m *CorrelationMatrix) index(col string) int {
	for i, c := range m.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// DroppedColumn records why a candidate column was excluded.
type DroppedColumn struct {
	Column string `json:"column"`
	Reason string `json:"reason"`
}

// CorrelationPair is one off-diagonal matrix entry.
type CorrelationPair struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
	N int     `json:"n"`
}

// CorrelationResult is either a matrix or an explicit insufficient-data outcome.
type CorrelationResult struct {
	Status  CorrelationStatus  `json:"status"`
	Reason  string             `json:"reason,omitempty"`
	Matrix  *CorrelationMatrix `json:"matrix,omitempty"`
	Dropped []DroppedColumn    `json:"dropped,omitempty"`
	Top     []CorrelationPair  `json:"top,omitempty"`
}

// Insufficient reports whether no matrix could be built.
func (r CorrelationResult) Insufficient() bool {
	return r.Status == CorrelationInsufficientData
}

// Histogram holds equal-width bin counts of one column. Edges has one more
// entry than Counts.
type Histogram struct {
	Column string    `json:"column"`
	Count  int       `json:"count"`
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// Headline carries the session overview numbers. Undefined values are null.
type Headline struct {
	Rows              int    `json:"rows"`
	MaxSpeed          Number `json:"max_speed"`        // km/h
	SpeedAboveMean    Number `json:"speed_above_mean"` // km/h
	MeanSOC           Number `json:"mean_soc"`         // percentage
	SOCDelta          Number `json:"soc_delta"`        // last - first
	MaxTemp           Number `json:"max_temp"`         // Celsius
	TempStatus        string `json:"temp_status,omitempty"`
	Distance          Number `json:"distance"`    // km, last - first odometer
	AvgSpeed          Number `json:"avg_speed"`   // km/h
	Consumption       Number `json:"consumption"` // %/100 km
	ConsumptionStatus string `json:"consumption_status,omitempty"`
	Duration          Number `json:"duration"` // seconds
}
