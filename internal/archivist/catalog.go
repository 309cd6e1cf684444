package archivist

import "archivist/internal/model"

// Catalog is the authoritative ledger of tracked entries.
// Implementations are not required to be safe for concurrent mutation;
// the service layer mutates from a single goroutine.
type Catalog interface {
	// Add assigns the next ID to a new entry and returns it.
	// Fails with ErrMissingURL, ErrDuplicateURL or ErrReservedField.
	Add(fields model.NewEntry) (model.Entry, error)

	// Get returns the entry with the given ID.
	Get(id int) (model.Entry, bool)

	// GetByURL returns the entry with the given URL.
	GetByURL(url string) (model.Entry, bool)

	// Update replaces the supplied fields of an existing entry.
	// Fails with ErrNotFound if the ID is unknown.
	Update(id int, update model.EntryUpdate) (model.Entry, error)

	// Entries returns a copy of all entries ordered by ID.
	Entries() []model.Entry

	// Len returns the number of entries.
	Len() int

	// Save atomically replaces the persisted snapshot with the current entries.
	Save() error
}
