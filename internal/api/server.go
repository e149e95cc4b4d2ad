package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ev-telemetry-dashboard/internal/cache"
	"ev-telemetry-dashboard/internal/db"
	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/parser"
	"ev-telemetry-dashboard/internal/pipeline"

	"github.com/gorilla/mux"
)

// Config wires a Server to its collaborators. DB is optional; without it the
// session snapshot endpoints answer 503.
type Config struct {
	// Resolve returns the telemetry file to serve. parser.ErrNoCSV yields
	// the empty "no data" state instead of an error.
	Resolve  func() (string, error)
	Cache    *cache.TableCache
	DB       *db.Database
	Defaults models.DashboardConfig
	Options  pipeline.Options
}

// Server represents the API server
type Server struct {
	resolve  func() (string, error)
	cache    *cache.TableCache
	db       *db.Database
	defaults models.DashboardConfig
	opts     pipeline.Options
	router   *mux.Router
}

// NewServer creates a new API server
func NewServer(cfg Config) *Server {
	if cfg.Cache == nil {
		cfg.Cache = cache.NewWithFormat("")
	}
	s := &Server{
		resolve:  cfg.Resolve,
		cache:    cfg.Cache,
		db:       cfg.DB,
		defaults: pipeline.Normalize(cfg.Defaults),
		opts:     cfg.Options,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Current session
	s.router.HandleFunc("/api/v1/session", s.handleSession).Methods("GET")
	s.router.HandleFunc("/api/v1/session/reload", s.handleReload).Methods("POST")
	s.router.HandleFunc("/api/v1/columns", s.handleColumns).Methods("GET")
	s.router.HandleFunc("/api/v1/dashboard", s.handleDashboard).Methods("GET")
	s.router.HandleFunc("/api/v1/samples", s.handleSamples).Methods("GET")
	s.router.HandleFunc("/api/v1/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/api/v1/correlation", s.handleCorrelation).Methods("GET")
	s.router.HandleFunc("/api/v1/histogram", s.handleHistogram).Methods("GET")
	s.router.HandleFunc("/api/v1/route", s.handleRoute).Methods("GET")
	s.router.HandleFunc("/api/v1/export.xlsx", s.handleExportXLSX).Methods("GET")
	s.router.HandleFunc("/api/v1/ws", s.handleWebSocket).Methods("GET")

	// Stored snapshots
	s.router.HandleFunc("/api/v1/sessions", s.handleListSessions).Methods("GET")
	s.router.HandleFunc("/api/v1/sessions", s.handleSaveSession).Methods("POST")
	s.router.HandleFunc("/api/v1/sessions/{id}", s.handleGetSession).Methods("GET")
	s.router.HandleFunc("/api/v1/sessions/{id}/stats", s.handleSessionStats).Methods("GET")
	s.router.HandleFunc("/api/v1/sessions/{id}/events", s.handleSessionEvents).Methods("GET")

	s.router.Use(loggingMiddleware)
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"duration", time.Since(start),
		)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *meta       `json:"meta,omitempty"`
}

type meta struct {
	Total   int    `json:"total,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
	QueryMs int64  `json:"query_ms,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data}); err != nil {
		slog.Error("failed to encode JSON response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		slog.Error("HTTP error", "status", status, "message", message)
	} else {
		slog.Warn("HTTP error", "status", status, "message", message)
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message}); err != nil {
		slog.Error("failed to encode error response", "err", err)
	}
}

func respondWithMeta(w http.ResponseWriter, data interface{}, m *meta) {
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data, Meta: m}); err != nil {
		slog.Error("failed to encode JSON response", "err", err)
	}
}

// current returns the cached entry for the configured file. A missing file
// is an entry with Missing set, never an error.
func (s *Server) current() (*cache.Entry, error) {
	path, err := s.resolve()
	if errors.Is(err, parser.ErrNoCSV) {
		return &cache.Entry{Missing: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.cache.Get(path)
}

func (s *Server) currentOrFail(w http.ResponseWriter) (*cache.Entry, bool) {
	entry, err := s.current()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return entry, true
}

// parseConfig overlays query parameters on the server defaults. The window
// is returned unresolved because open bounds depend on the loaded table.
func (s *Server) parseConfig(r *http.Request) (models.DashboardConfig, windowParams, error) {
	q := r.URL.Query()
	cfg := s.defaults
	cfg.SelectedColumns = append([]string(nil), s.defaults.SelectedColumns...)

	if v := q.Get("audience"); v != "" {
		a, err := models.ParseAudience(v)
		if err != nil {
			return cfg, windowParams{}, err
		}
		cfg.Audience = a
	}
	if v := q.Get("view"); v != "" {
		m, err := models.ParseViewMode(v)
		if err != nil {
			return cfg, windowParams{}, err
		}
		cfg.ViewMode = m
	}
	if v := q.Get("columns"); v != "" {
		cfg.SelectedColumns = splitList(v)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, windowParams{}, fmt.Errorf("invalid limit %q", v)
		}
		cfg.RowLimit = n
	}
	wp, err := parseWindow(r)
	if err != nil {
		return cfg, windowParams{}, err
	}
	return pipeline.Normalize(cfg), wp, nil
}

// windowParams holds the optional start/end query bounds.
type windowParams struct {
	start, end *float64
}

func parseWindow(r *http.Request) (windowParams, error) {
	var wp windowParams
	for _, p := range []struct {
		name string
		dst  **float64
	}{{"start", &wp.start}, {"end", &wp.end}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return wp, fmt.Errorf("invalid %s %q", p.name, raw)
		}
		*p.dst = &v
	}
	return wp, nil
}

// resolve fills an open bound from the table's observed range. It returns
// nil when neither bound was given.
func (wp windowParams) resolve(t *models.Table) *models.TimeWindow {
	if wp.start == nil && wp.end == nil {
		return nil
	}
	w, _ := pipeline.DefaultWindow(t)
	if wp.start != nil {
		w.Start = *wp.start
	}
	if wp.end != nil {
		w.End = *wp.end
	}
	return &w
}

// view applies the requested window to the cached table.
func (wp windowParams) view(t *models.Table) (*models.Table, models.TimeWindow) {
	if w := wp.resolve(t); w != nil {
		return pipeline.FilterWindow(t, *w), *w
	}
	w, ok := pipeline.DefaultWindow(t)
	if !ok {
		return t, w
	}
	return pipeline.FilterWindow(t, w), w
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
