// Package catalog implements the entry ledger persisted as a CSV snapshot.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"archivist/internal/archivist"
	"archivist/internal/model"
)

// DefaultFileName is the snapshot file name inside a catalog directory.
const DefaultFileName = "index.csv"

// CSVCatalog holds all entries in memory and persists them as a full CSV
// snapshot. The URL index is rebuilt lazily after the entry set changes.
// This implementation is safe for concurrent use.
type CSVCatalog struct {
	path string

	mu      sync.Mutex
	entries map[int]model.Entry
	maxID   int
	byURL   map[string]int
	stale   bool
}

// Open loads the snapshot at path. If the file is absent it fails with
// archivist.ErrNotFound unless createIfMissing is set, in which case an empty
// snapshot with the full header is written first.
func Open(path string, createIfMissing bool) (*CSVCatalog, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking catalog %s: %w", path, err)
		}
		if !createIfMissing {
			return nil, fmt.Errorf("catalog %s: %w", path, archivist.ErrNotFound)
		}
		if err := Create(path); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	entries, err := readSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	c := newCatalog(path)
	for _, e := range entries {
		if _, dup := c.entries[e.ID]; dup {
			return nil, fmt.Errorf("reading catalog %s: duplicate text_id %d", path, e.ID)
		}
		c.entries[e.ID] = e
		if e.ID > c.maxID {
			c.maxID = e.ID
		}
	}
	c.reindex()
	if len(c.byURL) != len(c.entries) {
		return nil, fmt.Errorf("reading catalog %s: %w", path, archivist.ErrDuplicateURL)
	}
	return c, nil
}

// Create writes an empty snapshot at path. It fails if the file already exists.
func Create(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("catalog already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}
	return newCatalog(path).Save()
}

// NewMemory returns an empty catalog that is only written when Save is called.
func NewMemory(path string) *CSVCatalog {
	return newCatalog(path)
}

func newCatalog(path string) *CSVCatalog {
	return &CSVCatalog{
		path:    path,
		entries: make(map[int]model.Entry),
		byURL:   make(map[string]int),
	}
}

// Path returns the snapshot location.
func (c *CSVCatalog) Path() string {
	return c.path
}

// Add assigns the next ID (highest ID + 1, or 1 for an empty catalog) to a new entry.
func (c *CSVCatalog) Add(fields model.NewEntry) (model.Entry, error) {
	if fields.ID != 0 {
		return model.Entry{}, fmt.Errorf("text_id %d supplied: %w", fields.ID, archivist.ErrReservedField)
	}
	if strings.TrimSpace(fields.URL) == "" {
		return model.Entry{}, archivist.ErrMissingURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reindex()
	if id, ok := c.byURL[fields.URL]; ok {
		return model.Entry{}, fmt.Errorf("%s already stored as %d: %w", fields.URL, id, archivist.ErrDuplicateURL)
	}

	entry := model.Entry{
		ID:           c.maxID + 1,
		URL:          fields.URL,
		SourceSlug:   fields.SourceSlug,
		OriginalSlug: fields.OriginalSlug,
		Skip:         fields.Skip,
		Comments:     fields.Comments,
	}
	c.entries[entry.ID] = entry
	c.maxID = entry.ID
	c.stale = true
	return entry, nil
}

// Get returns the entry with the given ID.
func (c *CSVCatalog) Get(id int) (model.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e, ok
}

// GetByURL returns the entry with the given URL.
func (c *CSVCatalog) GetByURL(url string) (model.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reindex()
	id, ok := c.byURL[url]
	if !ok {
		return model.Entry{}, false
	}
	return c.entries[id], true
}

// Update stores a new value for the entry built from the existing one and the
// supplied fields.
func (c *CSVCatalog) Update(id int, update model.EntryUpdate) (model.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.entries[id]
	if !ok {
		return model.Entry{}, fmt.Errorf("entry %d: %w", id, archivist.ErrNotFound)
	}
	updated := update.Apply(existing)
	c.entries[id] = updated
	c.stale = true
	return updated, nil
}

// Entries returns a copy of all entries ordered by ID.
func (c *CSVCatalog) Entries() []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sorted()
}

// Len returns the number of entries.
func (c *CSVCatalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Save replaces the snapshot file with the current entries, sorted by ID.
// The file is written to a temporary name in the same directory and renamed
// into place, so readers see either the old or the new snapshot.
func (c *CSVCatalog) Save() error {
	c.mu.Lock()
	entries := c.sorted()
	c.mu.Unlock()

	if err := writeFileAtomic(c.path, func(f *os.File) error {
		return writeSnapshot(f, entries)
	}); err != nil {
		return fmt.Errorf("saving catalog %s: %w: %w", c.path, archivist.ErrPersistence, err)
	}
	return nil
}

// sorted must be called with mu held.
func (c *CSVCatalog) sorted() []model.Entry {
	out := make([]model.Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// reindex rebuilds the URL index if the entry set changed. Must be called with mu held.
func (c *CSVCatalog) reindex() {
	if !c.stale && len(c.byURL) == len(c.entries) {
		return
	}
	c.byURL = make(map[string]int, len(c.entries))
	for id, e := range c.entries {
		c.byURL[e.URL] = id
	}
	c.stale = false
}

// writeFileAtomic writes via a temp file in the destination directory and renames it into place.
func writeFileAtomic(destPath string, write func(*os.File) error) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmpFile); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that CSVCatalog implements archivist.Catalog
var _ archivist.Catalog = (*CSVCatalog)(nil)
