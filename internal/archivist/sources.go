package archivist

import (
	"context"

	"archivist/internal/model"
)

// SlugSource yields raw slugs from the relational extract.
type SlugSource interface {
	// Slugs returns every non-null slug value.
	Slugs(ctx context.Context) ([]string, error)

	// Rows returns the export columns of every row with a non-null slug,
	// in the source's deterministic order.
	Rows(ctx context.Context, columns []string, orderBy string) ([]model.SourceRow, error)
}

// CorrectionBatch is a parsed slug corrections file.
type CorrectionBatch struct {
	Name        string // Human-readable batch name; becomes the provenance prefix
	Fingerprint string // Short content-derived identifier of the source file
	Corrections []model.Correction
}
