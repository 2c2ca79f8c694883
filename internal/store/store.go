// Package store keeps a SQLite ledger of generation runs and per-user
// outcomes.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/google/uuid"

	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/logger"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Outcome statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one invocation of the batch generator.
type Run struct {
	ID         string
	Variant    string
	Input      string
	Backend    string
	OutputDir  string
	Succeeded  int
	Failed     int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Outcome is the result of processing one user within a run.
type Outcome struct {
	RunID     string
	Seq       int
	UserID    string
	Status    string
	Mood      string
	Prompt    string
	Title     string
	Dir       string
	Error     string
	CreatedAt time.Time
}

// Store is the SQLite-backed run ledger.
type Store struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

// Open creates or opens the ledger at path and applies the schema.
func Open(path string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Discard()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.FileSystem(err, "open sqlite %s", path)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.FileSystem(err, "exec pragma %q", pragma)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.FileSystem(err, "exec schema")
	}

	return &Store{db: db, log: log, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a new run with a fresh id and returns it.
func (s *Store) StartRun(ctx context.Context, variant, input, backend, outputDir string) (*Run, error) {
	r := &Run{
		ID:        uuid.NewString(),
		Variant:   variant,
		Input:     input,
		Backend:   backend,
		OutputDir: outputDir,
		StartedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, variant, input, backend, output_dir, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Variant, r.Input, r.Backend, r.OutputDir, formatTime(r.StartedAt))
	if err != nil {
		return nil, errors.FileSystem(err, "insert run")
	}
	s.log.Debug("Run started", "run", r.ID)
	return r, nil
}

// Record appends an outcome to its run and bumps the run's counters.
func (s *Store) Record(ctx context.Context, o Outcome) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.FileSystem(err, "begin tx")
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM outcomes WHERE run_id = ?`, o.RunID).Scan(&seq); err != nil {
		return errors.FileSystem(err, "next seq")
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO outcomes (run_id, seq, user_id, status, mood, prompt, title, dir, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, seq, o.UserID, o.Status, o.Mood, o.Prompt, o.Title, o.Dir, o.Error, formatTime(o.CreatedAt)); err != nil {
		return errors.FileSystem(err, "insert outcome")
	}

	col := "succeeded"
	if o.Status != StatusOK {
		col = "failed"
	}
	res, err := tx.ExecContext(ctx, `UPDATE runs SET `+col+` = `+col+` + 1 WHERE id = ?`, o.RunID)
	if err != nil {
		return errors.FileSystem(err, "update run")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Validation("unknown run %s", o.RunID)
	}

	if err := tx.Commit(); err != nil {
		return errors.FileSystem(err, "commit outcome")
	}
	return nil
}

// FinishRun stamps the run's finish time.
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`,
		formatTime(s.now().UTC()), runID)
	if err != nil {
		return errors.FileSystem(err, "finish run")
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, variant, input, backend, output_dir, succeeded, failed, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.FileSystem(err, "query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Variant, &r.Input, &r.Backend, &r.OutputDir,
			&r.Succeeded, &r.Failed, &started, &finished); err != nil {
			return nil, errors.FileSystem(err, "scan run")
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, errors.Wrap(err, errors.CodeData, "parse started_at")
		}
		if r.FinishedAt, err = parseNullableTime(finished); err != nil {
			return nil, errors.Wrap(err, errors.CodeData, "parse finished_at")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.FileSystem(err, "iterate runs")
	}
	return runs, nil
}

// Outcomes returns a run's outcomes in processing order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, user_id, status, mood, prompt, title, dir, error, created_at
		FROM outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, errors.FileSystem(err, "query outcomes")
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o       Outcome
			created string
		)
		if err := rows.Scan(&o.RunID, &o.Seq, &o.UserID, &o.Status, &o.Mood, &o.Prompt,
			&o.Title, &o.Dir, &o.Error, &created); err != nil {
			return nil, errors.FileSystem(err, "scan outcome")
		}
		if o.CreatedAt, err = parseTime(created); err != nil {
			return nil, errors.Wrap(err, errors.CodeData, "parse created_at")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.FileSystem(err, "iterate outcomes")
	}
	return out, nil
}

// timeFormat keeps a fixed-width fraction so stored times sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
