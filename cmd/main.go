package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"ev-telemetry-dashboard/internal/analysis"
	"ev-telemetry-dashboard/internal/api"
	"ev-telemetry-dashboard/internal/cache"
	"ev-telemetry-dashboard/internal/config"
	"ev-telemetry-dashboard/internal/db"
	"ev-telemetry-dashboard/internal/export"
	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/parser"
	"ev-telemetry-dashboard/internal/pipeline"
	"ev-telemetry-dashboard/internal/route"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile string
	csvPath string
	dataDir string
	dbPath  string
	verbose bool
	cfg     *config.Global
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evdash",
		Short: "EV telemetry dashboard - analyze a vehicle telemetry CSV",
		Long: `A CLI tool and HTTP server that loads an electric vehicle telemetry CSV,
derives energy metrics, and reports statistics, correlations and route events
for a selectable time window.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			flags := cmd.Flags()
			if flags.Changed("csv") {
				cfg.CSVPath = csvPath
			}
			if flags.Changed("dir") {
				cfg.DataDir = dataDir
			}
			if flags.Changed("db") {
				cfg.DBPath = dbPath
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.evdash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&csvPath, "csv", "", "Telemetry file to load (default: first CSV in --dir)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", ".", "Directory searched for a telemetry CSV")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "ev_telemetry.db", "Path to SQLite snapshot database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	// Add commands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(correlateCmd())
	rootCmd.AddCommand(histogramCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSession resolves and loads the configured telemetry file.
func loadSession() (*pipeline.Loaded, error) {
	path, err := parser.Resolve(cfg.CSVPath, cfg.DataDir)
	if err != nil {
		if errors.Is(err, parser.ErrNoCSV) {
			return nil, fmt.Errorf("%w in %s (use --csv or --dir)", err, cfg.DataDir)
		}
		return nil, err
	}
	return pipeline.LoadFile(path, cfg.Format, time.Time{})
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("start", 0, "Window start (seconds on the Time axis)")
	cmd.Flags().Float64("end", 0, "Window end (seconds on the Time axis)")
}

// windowFlag builds the requested window; an unset bound falls back to the
// table's observed range. It returns nil when neither flag was given.
func windowFlag(cmd *cobra.Command, t *models.Table) *models.TimeWindow {
	flags := cmd.Flags()
	if !flags.Changed("start") && !flags.Changed("end") {
		return nil
	}
	w, _ := pipeline.DefaultWindow(t)
	if flags.Changed("start") {
		w.Start, _ = flags.GetFloat64("start")
	}
	if flags.Changed("end") {
		w.End, _ = flags.GetFloat64("end")
	}
	return &w
}

func windowedView(cmd *cobra.Command, t *models.Table) *models.Table {
	if w := windowFlag(cmd, t); w != nil {
		return pipeline.FilterWindow(t, *w)
	}
	if w, ok := pipeline.DefaultWindow(t); ok {
		return pipeline.FilterWindow(t, w)
	}
	return t
}

func num(n models.Number, format string) string {
	if !n.Defined() {
		return "n/a"
	}
	return fmt.Sprintf(format, float64(n))
}

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}

			var database *db.Database
			if cfg.DBPath != "" {
				var err error
				database, err = db.New(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("database error: %w", err)
				}
				defer database.Close()
			}

			server := api.NewServer(api.Config{
				Resolve:  func() (string, error) { return parser.Resolve(cfg.CSVPath, cfg.DataDir) },
				Cache:    cache.NewWithFormat(cfg.Format),
				DB:       database,
				Defaults: cfg.DashboardConfig(),
				Options:  cfg.PipelineOptions(),
			})

			fmt.Printf("🚗 EV Telemetry Dashboard API Server\n")
			fmt.Printf("   Listening on http://localhost%s\n", cfg.Listen)
			if cfg.CSVPath != "" {
				fmt.Printf("   Telemetry: %s\n", cfg.CSVPath)
			} else {
				fmt.Printf("   Telemetry: first CSV in %s\n", cfg.DataDir)
			}
			fmt.Printf("   Database:  %s\n\n", cfg.DBPath)

			// Serve web dashboard at root
			if info, err := os.Stat("./web"); err == nil && info.IsDir() {
				server.Router().PathPrefix("/").Handler(http.FileServer(http.Dir("./web/")))
			}
			fmt.Println("Available endpoints:")
			fmt.Println("  GET  /health")
			fmt.Println("  GET  /api/v1/session")
			fmt.Println("  POST /api/v1/session/reload")
			fmt.Println("  GET  /api/v1/columns")
			fmt.Println("  GET  /api/v1/dashboard")
			fmt.Println("  GET  /api/v1/samples")
			fmt.Println("  GET  /api/v1/stats")
			fmt.Println("  GET  /api/v1/correlation")
			fmt.Println("  GET  /api/v1/histogram")
			fmt.Println("  GET  /api/v1/route")
			fmt.Println("  GET  /api/v1/export.xlsx")
			fmt.Println("  GET  /api/v1/ws")
			fmt.Println("  GET  /api/v1/sessions")
			fmt.Println("  POST /api/v1/sessions")
			fmt.Println("  GET  /api/v1/sessions/{id}")
			fmt.Println()

			return http.ListenAndServe(cfg.Listen, server.Router())
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", ":8080", "Listen address")
	return cmd
}

// summaryCmd prints the headline metrics
func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show headline metrics for the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadSession()
			if err != nil {
				return err
			}
			s := loaded.Session
			view := windowedView(cmd, loaded.Table)
			h := analysis.Headline(view)

			fmt.Printf("📈 Session %s\n", s.ID)
			fmt.Println("==========================================")
			fmt.Printf("  Source:           %s (%s)\n", s.Source, s.Format)
			fmt.Printf("  Rows:             %d of %d (%d dropped without GPS fix)\n", h.Rows, s.SourceRows, s.DroppedZeroGPS)
			fmt.Printf("  Capabilities:     %s\n", strings.Join(s.Capabilities, ", "))
			fmt.Printf("  Duration:         %s s\n", num(h.Duration, "%.0f"))
			fmt.Printf("  Maximum Speed:    %s km/h (+%s above mean)\n", num(h.MaxSpeed, "%.1f"), num(h.SpeedAboveMean, "%.1f"))
			fmt.Printf("  Average Speed:    %s km/h\n", num(h.AvgSpeed, "%.1f"))
			fmt.Printf("  Distance:         %s km\n", num(h.Distance, "%.2f"))
			fmt.Printf("  Mean SOC:         %s%% (delta %s)\n", num(h.MeanSOC, "%.1f"), num(h.SOCDelta, "%+.1f"))
			fmt.Printf("  Max Battery Temp: %s°C %s\n", num(h.MaxTemp, "%.1f"), h.TempStatus)
			fmt.Printf("  Consumption:      %s %%/100 km %s\n", num(h.Consumption, "%.2f"), h.ConsumptionStatus)

			for col, n := range s.Malformed {
				fmt.Printf("  ⚠ %d malformed values in %s\n", n, col)
			}
			for _, w := range s.Warnings {
				fmt.Printf("  ⚠ %s\n", w)
			}
			return nil
		},
	}
	addWindowFlags(cmd)
	return cmd
}

// statsCmd prints descriptive statistics
func statsCmd() *cobra.Command {
	var columns string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show descriptive statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadSession()
			if err != nil {
				return err
			}

			cols := analysis.StatColumns
			if columns != "" {
				cols = config.SplitList(columns)
			}
			view := windowedView(cmd, loaded.Table)
			stats := analysis.DescribeOrdered(view, cols)
			if len(stats) == 0 {
				fmt.Println("No requested columns present.")
				return nil
			}

			fmt.Printf("📊 Statistics over %d rows\n", view.Len())
			fmt.Printf("%-12s %6s %10s %10s %10s %10s %10s %10s %10s\n",
				"COLUMN", "COUNT", "MEAN", "STD", "MIN", "Q1", "MEDIAN", "Q3", "MAX")
			fmt.Println(strings.Repeat("-", 96))
			for _, st := range stats {
				fmt.Printf("%-12s %6d %10s %10s %10s %10s %10s %10s %10s\n",
					st.Column, st.Count,
					num(st.Mean, "%.3f"), num(st.StdDev, "%.3f"), num(st.Min, "%.3f"),
					num(st.Q1, "%.3f"), num(st.Median, "%.3f"), num(st.Q3, "%.3f"), num(st.Max, "%.3f"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&columns, "columns", "", "Comma separated columns (default: standard metric set)")
	addWindowFlags(cmd)
	return cmd
}

// correlateCmd prints the correlation matrix and strongest pairs
func correlateCmd() *cobra.Command {
	var columns string
	var top int

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Show Pearson correlations between metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadSession()
			if err != nil {
				return err
			}

			cols := analysis.StatColumns
			if columns != "" {
				cols = config.SplitList(columns)
			}
			opt := cfg.PipelineOptions().Analysis
			if cmd.Flags().Changed("top") {
				opt.TopN = top
			}

			res := analysis.Correlate(windowedView(cmd, loaded.Table), cols, opt)
			fmt.Println(analysis.DescribeResult(res))
			for _, d := range res.Dropped {
				fmt.Printf("  dropped %s: %s\n", d.Column, d.Reason)
			}
			if res.Insufficient() {
				return nil
			}

			m := res.Matrix
			fmt.Printf("\n%-12s", "")
			for _, c := range m.Columns {
				fmt.Printf(" %11s", c)
			}
			fmt.Println()
			for i, row := range m.Values {
				fmt.Printf("%-12s", m.Columns[i])
				for j, v := range row {
					if !m.Defined[i][j] {
						fmt.Printf(" %11s", "n/a")
						continue
					}
					fmt.Printf(" %11.3f", v)
				}
				fmt.Println()
			}

			fmt.Println("\n🔗 Strongest correlations")
			for i, p := range res.Top {
				fmt.Printf("  %d. %s ~ %s: %+.3f (n=%d)\n", i+1, p.A, p.B, p.R, p.N)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&columns, "columns", "", "Comma separated columns (default: standard metric set)")
	cmd.Flags().IntVar(&top, "top", analysis.DefaultTopCorrelation, "Number of strongest pairs to list")
	addWindowFlags(cmd)
	return cmd
}

// histogramCmd prints the distribution of one column
func histogramCmd() *cobra.Command {
	var bins int

	cmd := &cobra.Command{
		Use:   "histogram [column]",
		Short: "Show the value distribution of a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadSession()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("bins") {
				bins = cfg.PipelineOptions().HistogramBins
			}

			h, ok := analysis.Histogram(windowedView(cmd, loaded.Table), args[0], bins)
			if !ok {
				return fmt.Errorf("column %s: %s", args[0], analysis.ReasonAbsent)
			}
			if h.Count == 0 {
				fmt.Printf("No values in %s.\n", h.Column)
				return nil
			}

			peak := 0
			for _, c := range h.Counts {
				peak = max(peak, c)
			}
			fmt.Printf("📊 %s distribution (%d values)\n", h.Column, h.Count)
			for i, c := range h.Counts {
				bar := strings.Repeat("#", c*40/max(peak, 1))
				fmt.Printf("  [%10.3f, %10.3f) %6d %s\n", h.Edges[i], h.Edges[i+1], c, bar)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&bins, "bins", "b", analysis.DefaultHistogramBins, "Number of bins")
	addWindowFlags(cmd)
	return cmd
}

// routeCmd prints route events
func routeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Show route events (start, end, max speed, recharges)",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadSession()
			if err != nil {
				return err
			}

			view := windowedView(cmd, loaded.Table)
			events := route.Extract(view, cfg.PipelineOptions().Route)
			if len(events) == 0 {
				fmt.Println("No route: GPS columns missing or window empty.")
				return nil
			}

			fmt.Printf("🗺  %d route events\n", len(events))
			fmt.Printf("%-18s %6s %8s %11s %11s %8s %6s %8s\n", "EVENT", "ROW", "TIME", "LAT", "LON", "SPEED", "SOC", "ΔSOC")
			fmt.Println(strings.Repeat("-", 84))
			for _, e := range events {
				fmt.Printf("%-18s %6d %8s %11s %11s %8s %6s %8s\n",
					e.Kind, e.Index, num(e.Time, "%.0f"), num(e.Lat, "%.5f"), num(e.Lon, "%.5f"),
					num(e.Speed, "%.1f"), num(e.SOC, "%.1f"), num(e.SOCDelta, "%+.1f"))
			}
			if sum := route.Summarize(view); sum != nil {
				fmt.Printf("\n  Center %.5f, %.5f  extent %.2f x %.2f km  zoom %d\n",
					sum.Center.Lat, sum.Center.Lon, sum.ExtentNS, sum.ExtentEW, sum.Zoom)
			}
			return nil
		},
	}
	addWindowFlags(cmd)
	return cmd
}

// exportCmd writes the session to a workbook, CSV or the snapshot database
func exportCmd() *cobra.Command {
	var format, out, audience string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the session (xlsx, csv or sqlite)",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadSession()
			if err != nil {
				return err
			}
			aud, err := models.ParseAudience(audience)
			if err != nil {
				return err
			}

			dc := cfg.DashboardConfig()
			dc.Audience = aud
			dc.Window = windowFlag(cmd, loaded.Table)
			start := time.Now()

			switch format {
			case "xlsx", "csv":
				if out == "" {
					return errors.New("--out is required")
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()

				if format == "xlsx" {
					d := pipeline.Build(loaded.Table, loaded.Session, dc, cfg.PipelineOptions())
					err = export.WriteXLSX(f, d)
				} else {
					err = export.WriteCSV(f, windowedView(cmd, loaded.Table))
				}
				if err != nil {
					return fmt.Errorf("export failed: %w", err)
				}
				fmt.Printf("✓ Wrote %s in %v\n", out, time.Since(start))

			case "sqlite":
				path := cfg.DBPath
				if out != "" {
					path = out
				}
				database, err := db.New(path)
				if err != nil {
					return fmt.Errorf("database error: %w", err)
				}
				defer database.Close()

				dc.Audience = models.AudienceExpert
				dc.Window = nil
				d := pipeline.Build(loaded.Table, loaded.Session, dc, cfg.PipelineOptions())
				snap := db.Snapshot{Session: loaded.Session, Table: loaded.Table, Stats: d.Stats}
				if d.Route != nil {
					snap.Events = d.Route.Events
				}
				count, err := database.SaveSnapshot(snap)
				if err != nil {
					return fmt.Errorf("snapshot failed: %w", err)
				}
				elapsed := time.Since(start)
				fmt.Printf("✓ Saved session %s: %d samples in %v (%.0f samples/sec)\n",
					loaded.Session.ID, count, elapsed, float64(count)/math.Max(elapsed.Seconds(), 1e-9))

			default:
				return fmt.Errorf("unknown format %q (use xlsx, csv or sqlite)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "Output format (xlsx, csv, sqlite)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (sqlite defaults to --db)")
	cmd.Flags().StringVar(&audience, "audience", string(models.AudienceExpert), "Audience for the workbook (public, expert)")
	addWindowFlags(cmd)
	return cmd
}

// sessionsCmd reads stored snapshots
func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored session snapshots",
	}

	openDB := func() (*db.Database, error) {
		database, err := db.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		return database, nil
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			sessions, err := database.ListSessions(limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No stored sessions.")
				return nil
			}

			fmt.Printf("%-36s %-20s %6s  %s\n", "ID", "LOADED", "ROWS", "SOURCE")
			fmt.Println(strings.Repeat("-", 90))
			for _, s := range sessions {
				fmt.Printf("%-36s %-20s %6d  %s\n", s.ID, s.LoadedAt.Format("2006-01-02 15:04:05"), s.Rows, s.Source)
			}
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list")

	showCmd := &cobra.Command{
		Use:   "show [session_id]",
		Short: "Show a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			s, err := database.GetSession(args[0])
			if err != nil {
				return err
			}
			table, err := database.LoadTable(s.ID)
			if err != nil {
				return err
			}
			stats, err := database.GetStats(s.ID)
			if err != nil {
				return err
			}
			events, err := database.GetEvents(s.ID, "")
			if err != nil {
				return err
			}
			h := analysis.Headline(table)

			fmt.Printf("📈 Session %s\n", s.ID)
			fmt.Println("==========================================")
			fmt.Printf("  Source:        %s\n", s.Source)
			fmt.Printf("  Loaded:        %s\n", s.LoadedAt.Format(time.RFC3339))
			fmt.Printf("  Rows:          %d\n", table.Len())
			fmt.Printf("  Columns:       %s\n", strings.Join(s.Columns, ", "))
			fmt.Printf("  Maximum Speed: %s km/h\n", num(h.MaxSpeed, "%.1f"))
			fmt.Printf("  Distance:      %s km\n", num(h.Distance, "%.2f"))
			fmt.Printf("  Mean SOC:      %s%%\n", num(h.MeanSOC, "%.1f"))

			if len(stats) > 0 {
				fmt.Println("\n  Statistics:")
				for _, st := range stats {
					fmt.Printf("    %-12s mean %s  std %s  [%s, %s]\n", st.Column,
						num(st.Mean, "%.3f"), num(st.StdDev, "%.3f"), num(st.Min, "%.3f"), num(st.Max, "%.3f"))
				}
			}
			if len(events) > 0 {
				fmt.Println("\n  Events:")
				for _, e := range events {
					fmt.Printf("    %-18s row %-6d speed %s  soc %s\n", e.Kind, e.Index, num(e.Speed, "%.1f"), num(e.SOC, "%.1f"))
				}
			}
			return nil
		},
	}

	var columns string
	var sampleLimit int
	samplesCmd := &cobra.Command{
		Use:   "samples [session_id]",
		Short: "Query stored samples of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			q := db.SampleQuery{SessionID: args[0], Limit: sampleLimit}
			if columns != "" {
				q.Columns = config.SplitList(columns)
			}
			if cmd.Flags().Changed("start") {
				v, _ := cmd.Flags().GetFloat64("start")
				q.Start = &v
			}
			if cmd.Flags().Changed("end") {
				v, _ := cmd.Flags().GetFloat64("end")
				q.End = &v
			}

			start := time.Now()
			points, err := database.QuerySamples(q)
			if err != nil {
				return fmt.Errorf("query error: %w", err)
			}
			fmt.Printf("Found %d samples (query: %v)\n\n", len(points), time.Since(start))
			for _, p := range points {
				fmt.Printf("%6d  %-14s %g\n", p.Row, p.Column, p.Value)
			}
			return nil
		},
	}
	samplesCmd.Flags().StringVar(&columns, "columns", "", "Comma separated columns")
	samplesCmd.Flags().IntVarP(&sampleLimit, "limit", "n", 100, "Maximum samples")
	addWindowFlags(samplesCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.DeleteSession(args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Deleted session %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, samplesCmd, deleteCmd)
	return cmd
}

// configCmd shows and edits the config file
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(b))
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a configuration key and save the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg, cfgFile); err != nil {
				return err
			}
			fmt.Printf("✓ %s = %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(showCmd, setCmd)
	return cmd
}
