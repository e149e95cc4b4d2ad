package models

import (
	"fmt"
	"strings"
)

// AudienceMode selects how much of the dashboard is computed.
type AudienceMode string

const (
	AudiencePublic AudienceMode = "public"
	AudienceExpert AudienceMode = "expert"
)

// ParseAudience parses an audience mode; empty input yields public.
func ParseAudience(s string) (AudienceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "public":
		return AudiencePublic, nil
	case "expert":
		return AudienceExpert, nil
	}
	return "", fmt.Errorf("invalid audience %q (use public or expert)", s)
}

// ViewMode selects which time series are emitted.
type ViewMode string

const (
	ViewSynthetic ViewMode = "synthetic"
	ViewDetailed  ViewMode = "detailed"
	ViewEnergy    ViewMode = "energy"
)

// ParseViewMode parses a view mode; empty input yields synthetic.
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "synthetic":
		return ViewSynthetic, nil
	case "detailed":
		return ViewDetailed, nil
	case "energy":
		return ViewEnergy, nil
	}
	return "", fmt.Errorf("invalid view mode %q (use synthetic, detailed or energy)", s)
}

// DefaultRowLimit caps the raw rows returned to expert views.
const DefaultRowLimit = 500

// DashboardConfig is the full set of user controls for one recomputation.
type DashboardConfig struct {
	Audience        AudienceMode `json:"audience"`
	ViewMode        ViewMode     `json:"view_mode"`
	SelectedColumns []string     `json:"selected_columns"`
	Window          *TimeWindow  `json:"window,omitempty"`
	RowLimit        int          `json:"row_limit,omitempty"`
}

// Series is one time-series chart input.
type Series struct {
	Column string    `json:"column"`
	Time   []float64 `json:"time"`
	Values []Number  `json:"values"`
}

// Dashboard is the complete, serializable output of one pipeline run.
type Dashboard struct {
	Session     *Session           `json:"session,omitempty"`
	Config      DashboardConfig    `json:"config"`
	Window      TimeWindow         `json:"window"`
	Empty       bool               `json:"empty"`
	Message     string             `json:"message,omitempty"`
	Rows        int                `json:"rows"`
	Headline    Headline           `json:"headline"`
	Route       *Route             `json:"route,omitempty"`
	Series      []Series           `json:"series,omitempty"`
	Stats       []StatSummary      `json:"stats,omitempty"`
	Histograms  []Histogram        `json:"histograms,omitempty"`
	Correlation *CorrelationResult `json:"correlation,omitempty"`
	Samples     []Row              `json:"samples,omitempty"`
}
