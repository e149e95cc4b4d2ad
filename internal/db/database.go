package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ev-telemetry-dashboard/internal/models"
	"ev-telemetry-dashboard/internal/schema"

	_ "github.com/mattn/go-sqlite3"
)

// ErrSessionNotFound is returned when no snapshot matches a session ID.
var ErrSessionNotFound = errors.New("session not found")

// Database wraps the SQLite connection
type Database struct {
	conn *sql.DB
}

// New opens (and creates if needed) the snapshot database
func New(dbPath string) (*Database, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_foreign_keys=on", dbPath)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &Database{conn: conn}

	if err := db.initialize(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

func (db *Database) initialize() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		format TEXT NOT NULL,
		mod_time DATETIME NOT NULL,
		loaded_at DATETIME NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		row_count INTEGER NOT NULL,
		source_rows INTEGER NOT NULL,
		dropped_zero_gps INTEGER NOT NULL,
		columns TEXT NOT NULL,
		known_columns TEXT NOT NULL,
		capabilities TEXT NOT NULL,
		malformed TEXT,
		warnings TEXT,
		window_start REAL,
		window_end REAL
	);

	CREATE TABLE IF NOT EXISTS samples (
		session_id TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		column_name TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (session_id, row_index, column_name),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS stats (
		session_id TEXT NOT NULL,
		column_name TEXT NOT NULL,
		position INTEGER NOT NULL,
		count INTEGER NOT NULL,
		mean REAL, median REAL, std_dev REAL, min REAL, max REAL,
		q1 REAL, q3 REAL, variance REAL,
		PRIMARY KEY (session_id, column_name),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS events (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		row_index INTEGER NOT NULL,
		time REAL, lat REAL, lon REAL, speed REAL, soc REAL, temp REAL, soc_delta REAL,
		PRIMARY KEY (session_id, position),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_samples_session_column ON samples(session_id, column_name);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(session_id, kind);
	`

	_, err := db.conn.Exec(ddl)
	return err
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.conn.Close()
}

// Snapshot is everything persisted for one session.
type Snapshot struct {
	Session *models.Session
	Table   *models.Table
	Stats   []models.StatSummary
	Events  []models.RouteEvent
}

// SaveSnapshot stores a session with its samples, statistics and events in a
// single transaction, replacing any earlier snapshot of the same session.
// It returns the number of sample cells written; missing cells are skipped.
func (db *Database) SaveSnapshot(s Snapshot) (int64, error) {
	if s.Session == nil || s.Table == nil {
		return 0, errors.New("snapshot needs a session and a table")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, s.Session.ID); err != nil {
		return 0, fmt.Errorf("failed to replace session: %w", err)
	}
	if err := insertSession(tx, s.Session, s.Table.Len()); err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO samples (session_id, row_index, column_name, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int64
	for _, col := range s.Table.Columns {
		for i, v := range s.Table.Values[col] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if _, err := stmt.Exec(s.Session.ID, i, col, v); err != nil {
				return count, fmt.Errorf("failed to insert sample %s[%d]: %w", col, i, err)
			}
			count++
		}
	}

	if err := insertStats(tx, s.Session.ID, s.Stats); err != nil {
		return count, err
	}
	if err := insertEvents(tx, s.Session.ID, s.Events); err != nil {
		return count, err
	}

	return count, tx.Commit()
}

func insertSession(tx *sql.Tx, s *models.Session, rows int) error {
	columns, _ := json.Marshal(s.Columns)
	known, _ := json.Marshal(s.Known)
	caps, _ := json.Marshal(s.Capabilities)
	malformed, _ := json.Marshal(s.Malformed)
	warnings, _ := json.Marshal(s.Warnings)

	var start, end sql.NullFloat64
	if s.Window != nil {
		start = sql.NullFloat64{Float64: s.Window.Start, Valid: true}
		end = sql.NullFloat64{Float64: s.Window.End, Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO sessions
		(id, source, format, mod_time, loaded_at, row_count, source_rows, dropped_zero_gps,
		 columns, known_columns, capabilities, malformed, warnings, window_start, window_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.Format, s.ModTime.UTC(), s.LoadedAt.UTC(), rows, s.SourceRows, s.DroppedZeroGPS,
		string(columns), string(known), string(caps), string(malformed), string(warnings), start, end,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func insertStats(tx *sql.Tx, sessionID string, stats []models.StatSummary) error {
	stmt, err := tx.Prepare(`
		INSERT INTO stats
		(session_id, column_name, position, count, mean, median, std_dev, min, max, q1, q3, variance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range stats {
		_, err := stmt.Exec(sessionID, s.Column, i, s.Count,
			nullable(s.Mean), nullable(s.Median), nullable(s.StdDev), nullable(s.Min),
			nullable(s.Max), nullable(s.Q1), nullable(s.Q3), nullable(s.Variance),
		)
		if err != nil {
			return fmt.Errorf("failed to insert stats for %s: %w", s.Column, err)
		}
	}
	return nil
}

func insertEvents(tx *sql.Tx, sessionID string, events []models.RouteEvent) error {
	stmt, err := tx.Prepare(`
		INSERT INTO events
		(session_id, position, kind, row_index, time, lat, lon, speed, soc, temp, soc_delta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range events {
		_, err := stmt.Exec(sessionID, i, string(e.Kind), e.Index,
			nullable(e.Time), nullable(e.Lat), nullable(e.Lon), nullable(e.Speed),
			nullable(e.SOC), nullable(e.Temp), nullable(e.SOCDelta),
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s event: %w", e.Kind, err)
		}
	}
	return nil
}

func nullable(n models.Number) sql.NullFloat64 {
	if !n.Defined() {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(n), Valid: true}
}

func number(n sql.NullFloat64) models.Number {
	if !n.Valid {
		return models.NaN()
	}
	return models.Number(n.Float64)
}

const sessionColumns = `id, source, format, mod_time, loaded_at, row_count, source_rows, dropped_zero_gps,
	columns, known_columns, capabilities, malformed, warnings, window_start, window_end`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var s models.Session
	var columns, known, caps string
	var malformed, warnings sql.NullString
	var start, end sql.NullFloat64

	err := row.Scan(&s.ID, &s.Source, &s.Format, &s.ModTime, &s.LoadedAt, &s.Rows, &s.SourceRows,
		&s.DroppedZeroGPS, &columns, &known, &caps, &malformed, &warnings, &start, &end)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(columns), &s.Columns); err != nil {
		return nil, fmt.Errorf("decoding columns of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(known), &s.Known); err != nil {
		return nil, fmt.Errorf("decoding known columns of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(caps), &s.Capabilities); err != nil {
		return nil, fmt.Errorf("decoding capabilities of %s: %w", s.ID, err)
	}
	if malformed.Valid {
		_ = json.Unmarshal([]byte(malformed.String), &s.Malformed)
	}
	if warnings.Valid {
		_ = json.Unmarshal([]byte(warnings.String), &s.Warnings)
	}
	if start.Valid && end.Valid {
		s.Window = &models.TimeWindow{Start: start.Float64, End: end.Float64}
	}
	return &s, nil
}

// GetSession returns one stored session.
func (db *Database) GetSession(id string) (*models.Session, error) {
	row := db.conn.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, err
}

// ListSessions returns stored sessions, most recently loaded first.
func (db *Database) ListSessions(limit int) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY loaded_at DESC, id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// GetStats returns the stored statistics of a session in their saved order.
func (db *Database) GetStats(sessionID string) ([]models.StatSummary, error) {
	rows, err := db.conn.Query(`
		SELECT column_name, count, mean, median, std_dev, min, max, q1, q3, variance
		FROM stats WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StatSummary
	for rows.Next() {
		var s models.StatSummary
		var mean, median, std, min, max, q1, q3, variance sql.NullFloat64
		if err := rows.Scan(&s.Column, &s.Count, &mean, &median, &std, &min, &max, &q1, &q3, &variance); err != nil {
			return nil, err
		}
		s.Mean, s.Median, s.StdDev = number(mean), number(median), number(std)
		s.Min, s.Max, s.Q1, s.Q3 = number(min), number(max), number(q1), number(q3)
		s.Variance = number(variance)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetEvents returns the stored route events of a session, optionally of one kind.
func (db *Database) GetEvents(sessionID string, kind models.EventKind) ([]models.RouteEvent, error) {
	query := `
		SELECT kind, row_index, time, lat, lon, speed, soc, temp, soc_delta
		FROM events WHERE session_id = ?`
	args := []interface{}{sessionID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY position"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RouteEvent
	for rows.Next() {
		var e models.RouteEvent
		var kind string
		var tm, lat, lon, speed, soc, temp, delta sql.NullFloat64
		if err := rows.Scan(&kind, &e.Index, &tm, &lat, &lon, &speed, &soc, &temp, &delta); err != nil {
			return nil, err
		}
		e.Kind = models.EventKind(kind)
		e.Time, e.Lat, e.Lon = number(tm), number(lat), number(lon)
		e.Speed, e.SOC, e.Temp, e.SOCDelta = number(speed), number(soc), number(temp), number(delta)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SampleQuery selects stored cells of one session.
type SampleQuery struct {
	SessionID string
	Columns   []string
	Start     *float64 // inclusive bounds on the Time column
	End       *float64
	Limit     int
	Offset    int
}

// SamplePoint is one stored cell.
type SamplePoint struct {
	Row    int     `json:"row"`
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

// QuerySamples retrieves stored cells ordered by row then column.
func (db *Database) QuerySamples(q SampleQuery) ([]SamplePoint, error) {
	conditions := []string{"s.session_id = ?"}
	args := []interface{}{q.SessionID}

	baseQuery := `SELECT s.row_index, s.column_name, s.value FROM samples s`

	if q.Start != nil || q.End != nil {
		baseQuery += ` JOIN samples t ON t.session_id = s.session_id AND t.row_index = s.row_index AND t.column_name = ?`
		args = append([]interface{}{schema.Time}, args...)
		if q.Start != nil {
			conditions = append(conditions, "t.value >= ?")
			args = append(args, *q.Start)
		}
		if q.End != nil {
			conditions = append(conditions, "t.value <= ?")
			args = append(args, *q.End)
		}
	}
	if len(q.Columns) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(q.Columns)), ",")
		conditions = append(conditions, "s.column_name IN ("+marks+")")
		for _, c := range q.Columns {
			args = append(args, c)
		}
	}

	baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	baseQuery += " ORDER BY s.row_index, s.column_name"

	if q.Limit > 0 {
		baseQuery += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			baseQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}

	rows, err := db.conn.Query(baseQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SamplePoint
	for rows.Next() {
		var p SamplePoint
		if err := rows.Scan(&p.Row, &p.Column, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadTable rebuilds a session's table from its stored samples. Cells that
// were missing at save time come back as missing.
func (db *Database) LoadTable(sessionID string) (*models.Table, error) {
	s, err := db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	t := models.NewTable(s.Columns)
	for _, c := range t.Columns {
		col := make([]float64, s.Rows)
		for i := range col {
			col[i] = math.NaN()
		}
		t.Values[c] = col
	}

	points, err := db.QuerySamples(SampleQuery{SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		col, ok := t.Values[p.Column]
		if !ok || p.Row < 0 || p.Row >= len(col) {
			continue
		}
		col[p.Row] = p.Value
	}

	t.Anchor = s.LoadedAt
	if times, ok := t.Column(schema.Time); ok {
		t.Timestamps = make([]time.Time, len(times))
		for i, sec := range times {
			if !math.IsNaN(sec) {
				t.Timestamps[i] = t.Anchor.Add(time.Duration(sec * float64(time.Second)))
			}
		}
	}
	return t, nil
}

// DeleteSession removes a snapshot and everything attached to it.
func (db *Database) DeleteSession(id string) error {
	res, err := db.conn.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// Counts returns the row count of each snapshot table.
func (db *Database) Counts() (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, table := range []string{"sessions", "samples", "events"} {
		var n int64
		if err := db.conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
