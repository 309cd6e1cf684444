package archive

import (
	"context"
	"fmt"

	"archivist/internal/archivist"
	"archivist/internal/config"
)

// NewArchiveStoreFromConfig creates an ArchiveStore based on the archive config type.
func NewArchiveStoreFromConfig(ctx context.Context, cfg *config.Config) (archivist.ArchiveStore, error) {
	a := cfg.Archive
	switch a.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          a.S3Bucket,
			Prefix:          a.S3Prefix,
			Region:          a.S3Region,
			Endpoint:        a.S3Endpoint,
			UsePathStyle:    a.S3UsePathStyle,
			AccessKeyID:     a.S3AccessKeyID,
			SecretAccessKey: a.S3SecretAccessKey,
		})
	case "filesystem", "":
		root := cfg.ArchiveRoot()
		if root == "" {
			return nil, fmt.Errorf("filesystem archive requires a root or catalog directory")
		}
		return NewFileSystemStore(root)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", a.Type)
	}
}
