// Package checkpoint persists runs and their task outputs in SQLite so an
// interrupted or failed run can be resumed without redoing finished tasks.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/logger"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// fixed width so lexical order matches time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var schema = []string{`
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	topic      TEXT NOT NULL,
	provider   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS task_outputs (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	task_id    TEXT NOT NULL,
	output     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (run_id, task_id)
)`}

// Run is a checkpointed pipeline run.
type Run struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Tasks     int       `json:"tasks"` // number of saved task outputs
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a SQLite-backed checkpoint store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, openError(path, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, openError(path, err)
	}
	// single writer keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, openError(path, err)
		}
	}

	logger.Op.WithFields(map[string]interface{}{"path": path}).Debug("Checkpoint store opened")
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun registers a new run and returns its ID.
func (s *Store) CreateRun(ctx context.Context, topic, provider string) (string, error) {
	id := uuid.NewString()
	now := timestamp(time.Now())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, topic, provider, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, topic, provider, StatusRunning, now, now)
	if err != nil {
		return "", writeError("create run", err)
	}
	return id, nil
}

// SaveOutput stores or replaces the output of one task.
func (s *Store) SaveOutput(ctx context.Context, runID, taskID, output string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_outputs (run_id, task_id, output, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_id, task_id) DO UPDATE SET output = excluded.output, created_at = excluded.created_at`,
		runID, taskID, output, timestamp(time.Now()))
	if err != nil {
		return writeError("save task output", err).WithContext("task", taskID)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE runs SET updated_at = ? WHERE id = ?`, timestamp(time.Now()), runID)
	if err != nil {
		return writeError("touch run", err)
	}
	return nil
}

// LoadOutputs returns the saved outputs of a run keyed by task ID.
func (s *Store) LoadOutputs(ctx context.Context, runID string) (map[string]string, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT task_id, output FROM task_outputs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, readError("load outputs", err)
	}
	defer rows.Close()

	outputs := make(map[string]string)
	for rows.Next() {
		var taskID, output string
		if err := rows.Scan(&taskID, &output); err != nil {
			return nil, readError("scan output", err)
		}
		outputs[taskID] = output
	}
	if err := rows.Err(); err != nil {
		return nil, readError("load outputs", err)
	}
	return outputs, nil
}

// MarkRun records the final status of a run. errMsg is stored for failed runs.
func (s *Store) MarkRun(ctx context.Context, runID, status, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, timestamp(time.Now()), runID)
	if err != nil {
		return writeError("mark run", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun returns a single run.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, runQuery+` WHERE r.id = ? GROUP BY r.id`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, readError("get run", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := runQuery + ` GROUP BY r.id ORDER BY r.created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, readError("list runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, readError("scan run", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, readError("list runs", err)
	}
	return runs, nil
}

const runQuery = `SELECT r.id, r.topic, r.provider, r.status, r.error, r.created_at, r.updated_at, COUNT(o.task_id)
FROM runs r LEFT JOIN task_outputs o ON o.run_id = r.id`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                  Run
		createdAt, updatedAt string
	)
	if err := row.Scan(&run.ID, &run.Topic, &run.Provider, &run.Status, &run.Error, &createdAt, &updatedAt, &run.Tasks); err != nil {
		return nil, err
	}
	run.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	run.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &run, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func openError(path string, err error) error {
	return apperrors.NewCheckpointError(apperrors.CodeCheckpointOpen,
		fmt.Sprintf("Cannot open checkpoint store at %s", path),
		"Checkpoint store").
		WithOriginalError(err).
		WithTroubleshooting(
			"Check that the directory for --store is writable",
			"Pass a different path with --store",
		)
}

func writeError(op string, err error) *apperrors.PipelineError {
	return apperrors.NewCheckpointError(apperrors.CodeCheckpointWrite,
		fmt.Sprintf("Checkpoint write failed: %s", op),
		"Checkpoint store").
		WithOriginalError(err)
}

func readError(op string, err error) error {
	return apperrors.NewCheckpointError(apperrors.CodeCheckpointRead,
		fmt.Sprintf("Checkpoint read failed: %s", op),
		"Checkpoint store").
		WithOriginalError(err)
}
