package uptodate

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/node"
)

//go:embed schema.sql
var schemaSQL string

// FileStore is a Checker backed by a SQLite database of task fingerprints.
type FileStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the state database at path.
func Open(path string) (*FileStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to state database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &FileStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *FileStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IsUpToDate implements Checker. A task without declared outputs is never up
// to date, and neither is one with a missing output.
func (s *FileStore) IsUpToDate(ctx context.Context, n *node.TaskNode) (bool, error) {
	if n.Spec == nil || len(n.Spec.Outputs) == 0 {
		return false, nil
	}
	fp, err := Fingerprint(n.Spec)
	if err != nil {
		if errors.Is(err, errMissingOutput) {
			return false, nil
		}
		return false, fmt.Errorf("fingerprint %s: %w", n.ID, err)
	}

	var stored string
	err = s.db.QueryRowContext(ctx, `SELECT fingerprint FROM task_state WHERE task_id = ?`, n.ID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read state of %s: %w", n.ID, err)
	}

	upToDate := stored == fp
	ctxlog.FromContext(ctx).Debug("Compared task fingerprint.", "task", n.ID, "up_to_date", upToDate)
	return upToDate, nil
}

// RecordOutputs implements Checker.
func (s *FileStore) RecordOutputs(ctx context.Context, n *node.TaskNode) error {
	if n.Spec == nil || len(n.Spec.Outputs) == 0 {
		return nil
	}
	fp, err := Fingerprint(n.Spec)
	if errors.Is(err, errMissingOutput) {
		// The task did not produce what it declared, so the next build runs it again.
		return s.Forget(ctx, n.ID)
	}
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", n.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_state (task_id, fingerprint, recorded_at)
		VALUES (?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET fingerprint = excluded.fingerprint, recorded_at = excluded.recorded_at
	`, n.ID, fp, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record state of %s: %w", n.ID, err)
	}
	return nil
}

// Forget removes the recorded state of a task. RecordOutputs calls it when a
// task finishes without producing its declared outputs.
func (s *FileStore) Forget(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM task_state WHERE task_id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("forget state of %s: %w", taskID, err)
	}
	return nil
}
