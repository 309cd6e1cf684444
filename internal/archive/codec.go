// Package archive provides ArchiveStore backends: a directory tree on disk,
// an S3 bucket, and an in-memory store for tests.
package archive

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"archivist/internal/archivist"
	"archivist/internal/model"
)

func encodeMetadata(meta *model.FetchMetadata) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeMetadata(data []byte) (*model.FetchMetadata, error) {
	var meta model.FetchMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return &meta, nil
}

// objectPath joins an entry location and a file name with forward slashes.
func objectPath(id int, file string) string {
	return archivist.Location(id) + "/" + file
}
