package archivist

import (
	"fmt"
	"path"

	"archivist/internal/model"
)

// Archive file names within an entry's location.
const (
	MetadataFile = "metadata.yml"
	ContentFile  = "content.html"
)

// ArchiveStore owns the physical layout of fetched content and fetch metadata.
// Every method is addressed by entry ID only.
type ArchiveStore interface {
	// LoadMetadata returns the stored metadata, or nil if none was ever saved.
	LoadMetadata(id int) (*model.FetchMetadata, error)

	// SaveMetadata atomically replaces the entry's metadata.
	SaveMetadata(id int, meta *model.FetchMetadata) error

	// SaveContent atomically replaces the entry's archived content.
	SaveContent(id int, content []byte) error

	// LoadContent returns the archived content. Fails with ErrNotFound if absent.
	LoadContent(id int) ([]byte, error)

	// HasContent reports whether archived content exists for the entry.
	HasContent(id int) (bool, error)

	// SaveRendition stores a derived text rendition (e.g. "txt", "md") next to the content.
	SaveRendition(id int, format string, data []byte) error

	// Describe returns a human-readable address of the entry's location.
	Describe(id int) string
}

// Location returns the relative directory that holds an entry's files.
// Entries are grouped in buckets of one hundred: ID 142 lives in "0100-0200/0142".
func Location(id int) string {
	lo := (id / 100) * 100
	return path.Join(fmt.Sprintf("%04d-%04d", lo, lo+100), fmt.Sprintf("%04d", id))
}

// RenditionFile returns the file name of a rendition format.
func RenditionFile(format string) string {
	return "content." + format
}
