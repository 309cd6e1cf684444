package archivist

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for a missing catalog file or an unknown entry ID.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateURL is returned when an added entry's URL is already in the catalog.
	ErrDuplicateURL = errors.New("duplicate url")

	// ErrReservedField is returned when a caller supplies an entry ID on creation.
	ErrReservedField = errors.New("reserved field")

	// ErrMissingURL is returned when an added entry has no URL.
	ErrMissingURL = errors.New("url is required")

	// ErrTransport marks a network-level failure with no HTTP response.
	ErrTransport = errors.New("transport failure")

	// ErrRemote marks a response with a non-success status.
	ErrRemote = errors.New("remote error")

	// ErrPersistence marks a snapshot, metadata or content file that could not be written.
	ErrPersistence = errors.New("persistence failure")

	// ErrNoSourceTable is returned when no table in the source database has the slug column.
	ErrNoSourceTable = errors.New("no suitable source table")

	// ErrAmbiguousSourceTable is returned when more than one table could be the source.
	ErrAmbiguousSourceTable = errors.New("ambiguous source table")
)

// RemoteError reports a fetch that returned a non-success status.
type RemoteError struct {
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: status %d", e.StatusCode)
}

func (e *RemoteError) Unwrap() error { return ErrRemote }
