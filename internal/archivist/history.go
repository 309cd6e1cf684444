package archivist

import "time"

// Operation statuses recorded in the history ledger.
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusInterrupted = "interrupted"
)

// OperationRecord is one recorded CLI operation.
type OperationRecord struct {
	ID         int64
	RunID      string
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Summary    string
}

// History records mutating operations for later inspection.
type History interface {
	// Start records an operation as begun and returns its ID.
	Start(runID, operation, parameters string, startedAt time.Time) (int64, error)

	// Finish records the outcome of a started operation.
	Finish(id int64, status, summary string, finishedAt time.Time) error

	// Recent returns the most recent operations, newest first.
	Recent(limit int) ([]OperationRecord, error)

	Close() error
}
