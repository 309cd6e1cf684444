package archive

import (
	"fmt"
	"sync"

	"archivist/internal/archivist"
	"archivist/internal/model"
)

// MemoryStore keeps archive files in memory, keyed by their relative path.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	files map[string][]byte // "0100-0200/0142/content.html" -> data
	mu    sync.RWMutex

	// FailContent makes SaveContent fail, for exercising persistence errors.
	FailContent bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (m *MemoryStore) put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = append([]byte(nil), data...)
}

func (m *MemoryStore) get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// File returns a stored file by entry and file name. Useful in tests.
func (m *MemoryStore) File(id int, file string) ([]byte, bool) {
	return m.get(objectPath(id, file))
}

// LoadMetadata decodes the stored metadata, or returns nil, nil if none exists.
func (m *MemoryStore) LoadMetadata(id int) (*model.FetchMetadata, error) {
	data, ok := m.get(objectPath(id, archivist.MetadataFile))
	if !ok {
		return nil, nil
	}
	meta, err := decodeMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", id, err)
	}
	return meta, nil
}

// SaveMetadata encodes and stores metadata.
func (m *MemoryStore) SaveMetadata(id int, meta *model.FetchMetadata) error {
	data, err := encodeMetadata(meta)
	if err != nil {
		return err
	}
	m.put(objectPath(id, archivist.MetadataFile), data)
	return nil
}

// SaveContent stores content.
func (m *MemoryStore) SaveContent(id int, content []byte) error {
	if m.FailContent {
		return fmt.Errorf("content of entry %d: %w", id, archivist.ErrPersistence)
	}
	m.put(objectPath(id, archivist.ContentFile), content)
	return nil
}

// LoadContent returns stored content.
func (m *MemoryStore) LoadContent(id int) ([]byte, error) {
	data, ok := m.get(objectPath(id, archivist.ContentFile))
	if !ok {
		return nil, fmt.Errorf("content of entry %d: %w", id, archivist.ErrNotFound)
	}
	return data, nil
}

// HasContent reports whether content was stored.
func (m *MemoryStore) HasContent(id int) (bool, error) {
	_, ok := m.get(objectPath(id, archivist.ContentFile))
	return ok, nil
}

// SaveRendition stores a rendition.
func (m *MemoryStore) SaveRendition(id int, format string, data []byte) error {
	m.put(objectPath(id, archivist.RenditionFile(format)), data)
	return nil
}

// Describe returns the entry's relative location.
func (m *MemoryStore) Describe(id int) string {
	return "memory:" + archivist.Location(id)
}

// Compile-time check that MemoryStore implements archivist.ArchiveStore
var _ archivist.ArchiveStore = (*MemoryStore)(nil)
