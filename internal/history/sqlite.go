// Package history implements the operation ledger on SQLite.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"archivist/internal/archivist"
	"archivist/internal/history/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const statusRunning = "running"

// SQLiteHistory records operations in a SQLite database.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the ledger at path and migrates it to the
// latest schema. path can be ":memory:".
func Open(path string) (*SQLiteHistory, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	return &SQLiteHistory{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// Path returns the database location.
func (h *SQLiteHistory) Path() string {
	return h.path
}

// Start inserts a running operation and returns its ID.
func (h *SQLiteHistory) Start(runID, operation, parameters string, startedAt time.Time) (int64, error) {
	res, err := h.db.Exec(
		"INSERT INTO operations (run_id, operation, parameters, started_at, status) VALUES (?, ?, ?, ?, ?)",
		runID, operation, parameters, formatTime(startedAt), statusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inserting operation: %w", err)
	}
	return id, nil
}

// Finish records an operation's outcome.
func (h *SQLiteHistory) Finish(id int64, status, summary string, finishedAt time.Time) error {
	res, err := h.db.Exec(
		"UPDATE operations SET status = ?, summary = ?, finished_at = ? WHERE id = ?",
		status, summary, formatTime(finishedAt), id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing operation %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("operation %d: %w", id, archivist.ErrNotFound)
	}
	return nil
}

// Recent returns up to limit operations, newest first.
func (h *SQLiteHistory) Recent(limit int) ([]archivist.OperationRecord, error) {
	rows, err := h.db.Query(
		`SELECT id, run_id, operation, parameters, started_at, finished_at, status, summary
		 FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var out []archivist.OperationRecord
	for rows.Next() {
		var (
			rec      archivist.OperationRecord
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Operation, &rec.Parameters, &started, &finished, &rec.Status, &rec.Summary); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("operation %d: invalid started_at %q", rec.ID, started)
		}
		if finished.Valid {
			t, err := time.Parse(time.RFC3339Nano, finished.String)
			if err != nil {
				return nil, fmt.Errorf("operation %d: invalid finished_at %q", rec.ID, finished.String)
			}
			rec.FinishedAt = &t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Compile-time check that SQLiteHistory implements archivist.History
var _ archivist.History = (*SQLiteHistory)(nil)
