package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"archivist/internal/archivist"
	"archivist/internal/model"
)

// FileSystemStore keeps each entry's files in a bucketed directory tree:
//
//	<root>/
//	  0100-0200/
//	    0142/
//	      metadata.yml
//	      content.html
//	      content.txt   (optional rendition)
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a store rooted at the given directory.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// Root returns the directory the store writes under.
func (s *FileSystemStore) Root() string {
	return s.root
}

func (s *FileSystemStore) path(id int, file string) string {
	return filepath.Join(s.root, filepath.FromSlash(archivist.Location(id)), file)
}

// LoadMetadata reads metadata.yml. Returns nil, nil when the file does not exist.
func (s *FileSystemStore) LoadMetadata(id int) (*model.FetchMetadata, error) {
	data, err := os.ReadFile(s.path(id, archivist.MetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading metadata of entry %d: %w", id, err)
	}
	meta, err := decodeMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", id, err)
	}
	return meta, nil
}

// SaveMetadata replaces metadata.yml.
func (s *FileSystemStore) SaveMetadata(id int, meta *model.FetchMetadata) error {
	data, err := encodeMetadata(meta)
	if err != nil {
		return err
	}
	return s.writeFile(s.path(id, archivist.MetadataFile), data)
}

// SaveContent replaces content.html.
func (s *FileSystemStore) SaveContent(id int, content []byte) error {
	return s.writeFile(s.path(id, archivist.ContentFile), content)
}

// LoadContent reads content.html.
func (s *FileSystemStore) LoadContent(id int) ([]byte, error) {
	data, err := os.ReadFile(s.path(id, archivist.ContentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content of entry %d: %w", id, archivist.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return data, nil
}

// HasContent reports whether content.html exists.
func (s *FileSystemStore) HasContent(id int) (bool, error) {
	_, err := os.Stat(s.path(id, archivist.ContentFile))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking content of entry %d: %w", id, err)
}

// SaveRendition writes content.<format>.
func (s *FileSystemStore) SaveRendition(id int, format string, data []byte) error {
	return s.writeFile(s.path(id, archivist.RenditionFile(format)), data)
}

// Describe returns the entry's directory on disk.
func (s *FileSystemStore) Describe(id int) string {
	return filepath.Join(s.root, filepath.FromSlash(archivist.Location(id)))
}

// writeFile writes data to destPath using atomic write (temp file + rename).
func (s *FileSystemStore) writeFile(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create entry directory: %w", err)
	}

	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
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

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
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

// Compile-time check that FileSystemStore implements archivist.ArchiveStore
var _ archivist.ArchiveStore = (*FileSystemStore)(nil)
