package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ev-telemetry-dashboard/internal/analysis"
	"ev-telemetry-dashboard/internal/cache"
	"ev-telemetry-dashboard/internal/db"
	"ev-telemetry-dashboard/internal/export"
	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/pipeline"
	"ev-telemetry-dashboard/internal/route"
	"ev-telemetry-dashboard/internal/schema"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "healthy"}
	if entry := s.cache.Current(); entry != nil && !entry.Missing {
		body["session_id"] = entry.Session.ID
		body["rows"] = entry.Table.Len()
	}
	if s.db != nil {
		if counts, err := s.db.Counts(); err == nil {
			body["snapshots"] = counts
		}
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}
	if entry.Missing {
		respondWithMeta(w, &models.Session{Source: entry.Identity.Path, Missing: true},
			&meta{Message: pipeline.NoDataMessage})
		return
	}
	respondJSON(w, http.StatusOK, entry.Session)
}

// handleReload drops the cached table so the file is read again even when
// its identity is unchanged.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.cache.Invalidate()
	s.handleSession(w, r)
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}
	body := map[string][]string{"known": {}, "columns": {}, "capabilities": {}}
	if !entry.Missing {
		body["known"] = entry.Session.Known
		body["columns"] = entry.Table.Columns
		body["capabilities"] = entry.Session.Capabilities
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cfg, wp, err := s.parseConfig(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}

	d := s.build(entry, cfg, wp)
	respondWithMeta(w, d, &meta{Total: d.Rows, QueryMs: time.Since(start).Milliseconds(), Message: d.Message})
}

func (s *Server) build(entry *cache.Entry, cfg models.DashboardConfig, wp windowParams) *models.Dashboard {
	if entry.Missing {
		return pipeline.Build(nil, nil, cfg, s.opts)
	}
	cfg.Window = wp.resolve(entry.Table)
	return pipeline.Build(entry.Table, entry.Session, cfg, s.opts)
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	wp, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}

	limit := intParam(r, "limit", 100)
	offset := intParam(r, "offset", 0)
	if entry.Missing {
		respondWithMeta(w, []models.Row{}, &meta{Limit: limit, Offset: offset, Message: pipeline.NoDataMessage})
		return
	}

	view, _ := wp.view(entry.Table)
	rows := view.Rows(offset, limit)
	respondWithMeta(w, rows, &meta{
		Total:   view.Len(),
		Limit:   limit,
		Offset:  offset,
		QueryMs: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	wp, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}
	if entry.Missing {
		respondWithMeta(w, []models.StatSummary{}, &meta{Message: pipeline.NoDataMessage})
		return
	}

	columns := s.statColumns(r)
	view, _ := wp.view(entry.Table)
	stats := analysis.DescribeOrdered(view, columns)
	respondWithMeta(w, stats, &meta{Total: view.Len(), QueryMs: time.Since(start).Milliseconds()})
}

func (s *Server) statColumns(r *http.Request) []string {
	if v := r.URL.Query().Get("columns"); v != "" {
		return splitList(v)
	}
	if len(s.opts.StatColumns) > 0 {
		return s.opts.StatColumns
	}
	return analysis.StatColumns
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	wp, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}

	opt := s.opts.Analysis
	opt.TopN = intParam(r, "top", opt.TopN)
	if entry.Missing {
		res := models.CorrelationResult{Status: models.CorrelationInsufficientData, Reason: pipeline.NoDataMessage}
		respondWithMeta(w, res, &meta{Message: pipeline.NoDataMessage})
		return
	}

	view, _ := wp.view(entry.Table)
	res := analysis.Correlate(view, s.statColumns(r), opt)
	respondWithMeta(w, res, &meta{Total: view.Len(), QueryMs: time.Since(start).Milliseconds()})
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	column := r.URL.Query().Get("column")
	if column == "" {
		respondError(w, http.StatusBadRequest, "column is required")
		return
	}
	wp, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}
	if entry.Missing {
		respondWithMeta(w, nil, &meta{Message: pipeline.NoDataMessage})
		return
	}

	bins := intParam(r, "bins", s.opts.HistogramBins)
	view, _ := wp.view(entry.Table)
	h, ok := analysis.Histogram(view, column, bins)
	if !ok {
		// A known column that this file lacks is a degraded view, not a bad request.
		if !schema.IsKnown(column) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown column %q", column))
			return
		}
		respondWithMeta(w, nil, &meta{Message: analysis.ReasonAbsent})
		return
	}
	respondWithMeta(w, h, &meta{Total: h.Count, QueryMs: time.Since(start).Milliseconds()})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	wp, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}
	if entry.Missing {
		respondWithMeta(w, nil, &meta{Message: pipeline.NoDataMessage})
		return
	}

	view, _ := wp.view(entry.Table)
	rt := route.Build(view, s.opts.Route)
	if rt == nil {
		respondWithMeta(w, nil, &meta{Message: "no GPS columns"})
		return
	}
	respondWithMeta(w, rt, &meta{Total: len(rt.Events)})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	cfg, wp, err := s.parseConfig(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.URL.Query().Get("audience") == "" {
		cfg.Audience = models.AudienceExpert
	}
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, s.build(entry, cfg, wp)); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ev-telemetry.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Stored snapshots

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		respondError(w, http.StatusServiceUnavailable, "snapshot database not configured")
		return false
	}
	return true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	limit := intParam(r, "limit", 50)
	sessions, err := s.db.ListSessions(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	respondWithMeta(w, sessions, &meta{Total: len(sessions), Limit: limit})
}

// handleSaveSession snapshots the current session with full expert output.
func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	entry, ok := s.currentOrFail(w)
	if !ok {
		return
	}
	if entry.Missing {
		respondError(w, http.StatusNotFound, pipeline.NoDataMessage)
		return
	}

	cfg := s.defaults
	cfg.Audience = models.AudienceExpert
	d := pipeline.Build(entry.Table, entry.Session, cfg, s.opts)

	snap := db.Snapshot{Session: entry.Session, Table: entry.Table, Stats: d.Stats}
	if d.Route != nil {
		snap.Events = d.Route.Events
	}
	count, err := s.db.SaveSnapshot(snap)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"session_id": entry.Session.ID, "samples": count})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	session, err := s.db.GetSession(mux.Vars(r)["id"])
	if err != nil {
		s.respondDBError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := s.db.GetSession(id); err != nil {
		s.respondDBError(w, err)
		return
	}
	stats, err := s.db.GetStats(id)
	if err != nil {
		s.respondDBError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id := mux.Vars(r)["id"]
	if _, err := s.db.GetSession(id); err != nil {
		s.respondDBError(w, err)
		return
	}
	events, err := s.db.GetEvents(id, models.EventKind(r.URL.Query().Get("kind")))
	if err != nil {
		s.respondDBError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (s *Server) respondDBError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

// decodeConfig parses a DashboardConfig message body, rejecting unknown modes.
func decodeConfig(raw json.RawMessage, defaults models.DashboardConfig) (models.DashboardConfig, error) {
	cfg := defaults
	cfg.SelectedColumns = append([]string(nil), defaults.SelectedColumns...)
	if len(raw) > 0 {
		var in models.DashboardConfig
		if err := json.Unmarshal(raw, &in); err != nil {
			return cfg, err
		}
		if in.Audience != "" {
			a, err := models.ParseAudience(string(in.Audience))
			if err != nil {
				return cfg, err
			}
			cfg.Audience = a
		}
		if in.ViewMode != "" {
			m, err := models.ParseViewMode(string(in.ViewMode))
			if err != nil {
				return cfg, err
			}
			cfg.ViewMode = m
		}
		if len(in.SelectedColumns) > 0 {
			cfg.SelectedColumns = in.SelectedColumns
		}
		if in.RowLimit > 0 {
			cfg.RowLimit = in.RowLimit
		}
		cfg.Window = in.Window
	}
	return pipeline.Normalize(cfg), nil
}
