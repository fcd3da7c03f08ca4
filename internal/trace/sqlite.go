package trace

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tbcsched/internal/sched"

	_ "modernc.org/sqlite"
)

// timeLayout is RFC3339 with a fixed nine-digit fraction, so stored
// timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		label      TEXT NOT NULL,
		started_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		seq     INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id  TEXT NOT NULL REFERENCES runs(id),
		at      TEXT NOT NULL,
		tick    INTEGER NOT NULL,
		pass    INTEGER NOT NULL,
		kind    TEXT NOT NULL,
		task_id INTEGER,
		task    TEXT,
		from_st TEXT,
		to_st   TEXT,
		error   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq)`,
}

// Row is one stored event.
type Row struct {
	Seq    int64
	At     time.Time
	Tick   int64
	Pass   int64
	Kind   string
	TaskID *int64
	Task   string
	From   string
	To     string
	Error  string
}

// Run is one recorded scheduler run.
type Run struct {
	ID        string
	Label     string
	StartedAt time.Time
	Events    int64
}

// SQLite stores events in a SQLite database, one run per sink.
type SQLite struct {
	db     *sql.DB
	runID  string
	logger *slog.Logger
}

// OpenSQLite opens (or creates) the database at path and migrates it.
// Use ":memory:" in tests.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &SQLite{db: db, logger: logger.With("component", "trace")}, nil
}

// BeginRun registers a new run and makes Record write to it.
func (s *SQLite) BeginRun(ctx context.Context, label string) (string, error) {
	id := "run_" + uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, label, started_at) VALUES (?, ?, ?)`,
		id, label, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	s.runID = id
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", id)
	return id, nil
}

// Record implements sched.Sink. Ticks are not stored.
func (s *SQLite) Record(ev sched.Event) error {
	if ev.Kind == sched.EventTick {
		return nil
	}
	if s.runID == "" {
		return fmt.Errorf("sqlite trace: no run started")
	}
	var taskID any
	var task, from, to, errText any
	if ev.HasTask() {
		taskID, task = int64(ev.TaskID), ev.Name
	}
	if ev.Transition() {
		from, to = ev.From.String(), ev.To.String()
	}
	if ev.Err != nil {
		errText = ev.Err.Error()
	}
	_, err := s.db.Exec(
		`INSERT INTO events (run_id, at, tick, pass, kind, task_id, task, from_st, to_st, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, ev.Time.UTC().Format(timeLayout), ev.Tick, ev.Pass, ev.Kind.String(),
		taskID, task, from, to, errText,
	)
	return err
}

// Runs lists recorded runs, newest first.
func (s *SQLite) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.label, r.started_at, COUNT(e.seq)
		 FROM runs r LEFT JOIN events e ON e.run_id = r.id
		 GROUP BY r.id ORDER BY r.rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &r.Label, &started, &r.Events); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Events returns the events of runID in order.
func (s *SQLite) Events(ctx context.Context, runID string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, at, tick, pass, kind, task_id, COALESCE(task, ''), COALESCE(from_st, ''), COALESCE(to_st, ''), COALESCE(error, '')
		 FROM events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var at string
		var taskID sql.NullInt64
		if err := rows.Scan(&r.Seq, &at, &r.Tick, &r.Pass, &r.Kind, &taskID, &r.Task, &r.From, &r.To, &r.Error); err != nil {
			return nil, err
		}
		r.At, _ = time.Parse(time.RFC3339Nano, at)
		if taskID.Valid {
			v := taskID.Int64
			r.TaskID = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
