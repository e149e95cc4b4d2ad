package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ev-telemetry-dashboard/internal/analysis"
	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/pipeline"
	"ev-telemetry-dashboard/internal/route"
	"ev-telemetry-dashboard/internal/schema"
)

// Global configuration structure.
type Global struct {
	CSVPath string `mapstructure:"csv_path" yaml:"csv_path"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	Format  string `mapstructure:"format" yaml:"format"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	DBPath  string `mapstructure:"db_path" yaml:"db_path"`

	// Dashboard defaults
	Audience        string   `mapstructure:"audience" yaml:"audience"`
	ViewMode        string   `mapstructure:"view_mode" yaml:"view_mode"`
	SelectedColumns []string `mapstructure:"selected_columns" yaml:"selected_columns"`

	// Heuristic thresholds
	RechargeThreshold float64 `mapstructure:"recharge_threshold" yaml:"recharge_threshold"`
	MinOverlap        int     `mapstructure:"min_overlap" yaml:"min_overlap"`
	MinNonMissing     int     `mapstructure:"min_non_missing" yaml:"min_non_missing"`
	TopCorrelations   int     `mapstructure:"top_correlations" yaml:"top_correlations"`
	HistogramBins     int     `mapstructure:"histogram_bins" yaml:"histogram_bins"`
}

// Keys lists every recognized configuration key.
var Keys = []string{
	"csv_path", "data_dir", "format", "listen", "db_path",
	"audience", "view_mode", "selected_columns",
	"recharge_threshold", "min_overlap", "min_non_missing", "top_correlations",
	"histogram_bins",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("csv_path", "")
	v.SetDefault("data_dir", ".")
	v.SetDefault("format", "csv")
	v.SetDefault("listen", ":8080")
	v.SetDefault("db_path", "ev_telemetry.db")
	v.SetDefault("audience", string(models.AudiencePublic))
	v.SetDefault("view_mode", string(models.ViewSynthetic))
	v.SetDefault("selected_columns", []string{schema.VehSpeed, schema.HVBSOC})
	v.SetDefault("recharge_threshold", route.DefaultRechargeThreshold)
	v.SetDefault("min_overlap", analysis.DefaultMinOverlap)
	v.SetDefault("min_non_missing", analysis.DefaultMinNonMissing)
	v.SetDefault("top_correlations", analysis.DefaultTopCorrelation)
	v.SetDefault("histogram_bins", analysis.DefaultHistogramBins)
}

// DefaultPath is ~/.evdash/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".evdash", "config.yaml"), nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A missing file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EVDASH")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the configuration as YAML to cfgFile, or to DefaultPath when
// cfgFile is empty, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks enumerated and numeric settings.
func (c *Global) Validate() error {
	if _, err := models.ParseAudience(c.Audience); err != nil {
		return err
	}
	if _, err := models.ParseViewMode(c.ViewMode); err != nil {
		return err
	}
	switch c.Format {
	case "", "csv", "json":
	default:
		return fmt.Errorf("invalid format %q (use csv or json)", c.Format)
	}
	if c.RechargeThreshold <= 0 {
		return fmt.Errorf("recharge_threshold must be positive, got %v", c.RechargeThreshold)
	}
	if c.MinOverlap < 2 {
		return fmt.Errorf("min_overlap must be at least 2, got %d", c.MinOverlap)
	}
	if c.MinNonMissing < 0 || c.TopCorrelations < 1 {
		return fmt.Errorf("min_non_missing must be >= 0 and top_correlations >= 1")
	}
	if c.HistogramBins < 1 {
		return fmt.Errorf("histogram_bins must be at least 1, got %d", c.HistogramBins)
	}
	return nil
}

// Set assigns one key from its string form.
func (c *Global) Set(key, value string) error {
	var err error
	switch key {
	case "csv_path":
		c.CSVPath = value
	case "data_dir":
		c.DataDir = value
	case "format":
		c.Format = value
	case "listen":
		c.Listen = value
	case "db_path":
		c.DBPath = value
	case "audience":
		c.Audience = value
	case "view_mode":
		c.ViewMode = value
	case "selected_columns":
		c.SelectedColumns = SplitList(value)
	case "recharge_threshold":
		c.RechargeThreshold, err = strconv.ParseFloat(value, 64)
	case "min_overlap":
		c.MinOverlap, err = strconv.Atoi(value)
	case "min_non_missing":
		c.MinNonMissing, err = strconv.Atoi(value)
	case "top_correlations":
		c.TopCorrelations, err = strconv.Atoi(value)
	case "histogram_bins":
		c.HistogramBins, err = strconv.Atoi(value)
	default:
		known := append([]string(nil), Keys...)
		sort.Strings(known)
		return fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(known, ", "))
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return c.Validate()
}

// SplitList parses a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DashboardConfig returns the configured dashboard defaults.
func (c *Global) DashboardConfig() models.DashboardConfig {
	audience, _ := models.ParseAudience(c.Audience)
	view, _ := models.ParseViewMode(c.ViewMode)
	return pipeline.Normalize(models.DashboardConfig{
		Audience:        audience,
		ViewMode:        view,
		SelectedColumns: append([]string(nil), c.SelectedColumns...),
	})
}

// PipelineOptions returns the configured thresholds.
func (c *Global) PipelineOptions() pipeline.Options {
	opt := pipeline.DefaultOptions()
	opt.Route.RechargeThreshold = c.RechargeThreshold
	opt.Analysis.MinOverlap = c.MinOverlap
	opt.Analysis.MinNonMissing = c.MinNonMissing
	opt.Analysis.TopN = c.TopCorrelations
	opt.HistogramBins = c.HistogramBins
	return opt
}
