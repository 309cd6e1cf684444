package archivist

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"archivist/internal/model"
)

// ExportReport summarizes an export.
type ExportReport struct {
	Rows    int
	Matched int
}

// Lookup resolves Source A slugs to catalog entries that were fetched successfully.
type Lookup struct {
	bySource   map[string]model.Entry
	byOriginal map[string][]model.Entry
	primaryTag func(string) string
}

// NewLookup indexes the current catalog by provenance.
func (s *Service) NewLookup() *Lookup {
	l := &Lookup{
		bySource:   make(map[string]model.Entry),
		byOriginal: make(map[string][]model.Entry),
		primaryTag: s.primaryTag,
	}
	for _, entry := range s.catalog.Entries() {
		l.bySource[entry.SourceSlug] = entry
		if entry.OriginalSlug != "" {
			l.byOriginal[entry.OriginalSlug] = append(l.byOriginal[entry.OriginalSlug], entry)
		}
	}
	return l
}

// Find returns the entry for a slug: the primary entry if it was fetched
// successfully, otherwise the first successfully fetched correction of it.
func (l *Lookup) Find(slug string) (model.Entry, bool) {
	tag := l.primaryTag(slug)
	if entry, ok := l.bySource[tag]; ok && entry.LastStatus == http.StatusOK {
		return entry, true
	}
	for _, entry := range l.byOriginal[tag] {
		if entry.LastStatus == http.StatusOK {
			return entry, true
		}
	}
	return model.Entry{}, false
}

// Export joins the relational extract with the catalog and writes matching
// rows as CSV. The header is the first column, then text_id, then the rest.
func (s *Service) Export(ctx context.Context, src SlugSource, columns []string, orderBy string, w io.Writer) (*ExportReport, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("export needs at least one column")
	}

	rows, err := src.Rows(ctx, columns, orderBy)
	if err != nil {
		return nil, fmt.Errorf("reading source rows: %w", err)
	}

	lookup := s.NewLookup()
	header := append([]string{columns[0], "text_id"}, columns[1:]...)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	report := &ExportReport{Rows: len(rows)}
	for _, row := range rows {
		entry, ok := lookup.Find(row.Slug)
		if !ok {
			continue
		}
		record := make([]string, 0, len(header))
		record = append(record, row.Values[columns[0]], strconv.Itoa(entry.ID))
		for _, col := range columns[1:] {
			record = append(record, row.Values[col])
		}
		if err := cw.Write(record); err != nil {
			return report, fmt.Errorf("writing row: %w", err)
		}
		report.Matched++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return report, fmt.Errorf("flushing export: %w", err)
	}
	s.logger.Info("export finished", "rows", report.Rows, "matched", report.Matched)
	return report, nil
}
