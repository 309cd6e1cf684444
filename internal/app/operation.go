package app

import (
	"context"
	"errors"

	"archivist/internal/archivist"
)

// Operation tracks a CLI command. Operations are created in memory with ID=0;
// only catalog-mutating commands persist them to the history ledger.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string // "success", "error" or "interrupted"
	Summary    string
}

// NewOperation creates a new in-memory operation.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Status:     archivist.StatusSuccess,
	}
}

// Persisted returns true if this operation has been recorded in the ledger.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Complete sets the outcome from the command's error and a summary line.
func (op *Operation) Complete(err error, interrupted bool, summary string) {
	op.Summary = summary
	switch {
	case interrupted || errors.Is(err, context.Canceled):
		op.Status = archivist.StatusInterrupted
	case err != nil:
		op.Status = archivist.StatusError
		if summary == "" {
			op.Summary = err.Error()
		}
	default:
		op.Status = archivist.StatusSuccess
	}
}
