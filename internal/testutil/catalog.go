package testutil

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"archivist/internal/archivist"
	"archivist/internal/catalog"
	"archivist/internal/model"
)

// ErrSaveFailed is returned by a FlakyCatalog save that was told to fail.
var ErrSaveFailed = errors.New("scripted save failure")

// NewTestCatalog creates an empty catalog in a temporary directory.
func NewTestCatalog(t *testing.T) *catalog.CSVCatalog {
	t.Helper()
	c, err := catalog.Open(filepath.Join(t.TempDir(), catalog.DefaultFileName), true)
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	return c
}

// AddEntries adds one entry per URL and fails the test on error.
func AddEntries(t *testing.T, c archivist.Catalog, urls ...string) []model.Entry {
	t.Helper()
	var out []model.Entry
	for _, url := range urls {
		e, err := c.Add(model.NewEntry{URL: url, SourceSlug: "primary:" + url})
		if err != nil {
			t.Fatalf("failed to add %s: %v", url, err)
		}
		out = append(out, e)
	}
	return out
}

// FlakyCatalog wraps a Catalog and counts saves. Saves whose 1-based number
// is in FailSaves return ErrSaveFailed without touching the snapshot.
type FlakyCatalog struct {
	archivist.Catalog

	mu        sync.Mutex
	saves     int
	FailSaves map[int]bool
	// Snapshots holds a copy of the entries at each successful save.
	Snapshots [][]model.Entry
}

func NewFlakyCatalog(inner archivist.Catalog) *FlakyCatalog {
	return &FlakyCatalog{Catalog: inner, FailSaves: make(map[int]bool)}
}

func (c *FlakyCatalog) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.FailSaves[c.saves] {
		return ErrSaveFailed
	}
	if err := c.Catalog.Save(); err != nil {
		return err
	}
	c.Snapshots = append(c.Snapshots, c.Catalog.Entries())
	return nil
}

// Saves returns the number of save attempts.
func (c *FlakyCatalog) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}
