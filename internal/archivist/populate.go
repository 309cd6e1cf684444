package archivist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"archivist/internal/model"
)

// PopulateNotice describes a source row that did not produce a new entry.
type PopulateNotice struct {
	Slug     string
	URL      string
	Reason   string
	Conflict bool // another provenance source already claims the URL
}

// PopulateReport summarizes a population run.
type PopulateReport struct {
	Added     int
	Updated   int
	Unchanged int
	Notices   []PopulateNotice
}

// Conflicts returns the number of rows skipped because of a provenance conflict.
func (r *PopulateReport) Conflicts() int {
	n := 0
	for _, notice := range r.Notices {
		if notice.Conflict {
			n++
		}
	}
	return n
}

func (r *PopulateReport) skip(slug, url, reason string, conflict bool) {
	r.Notices = append(r.Notices, PopulateNotice{Slug: slug, URL: url, Reason: reason, Conflict: conflict})
}

// PopulatePrimary adds an entry for every distinct slug of the relational extract
// whose canonical URL is not yet in the catalog. Slugs are processed in ascending
// lexicographic order. The catalog is saved once at the end.
func (s *Service) PopulatePrimary(ctx context.Context, src SlugSource) (*PopulateReport, error) {
	raw, err := src.Slugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading slugs: %w", err)
	}
	slugs := distinctSorted(raw)

	report := &PopulateReport{}
	for _, slug := range slugs {
		if ctx.Err() != nil {
			break
		}
		if strings.TrimSpace(slug) == "" {
			report.skip(slug, "", "empty slug", false)
			s.logger.Warn("skipping empty slug")
			continue
		}

		url, err := CanonicalURL(s.opts.RootURL, slug)
		if err != nil {
			report.skip(slug, "", err.Error(), false)
			s.logger.Warn("skipping unresolvable slug", "slug", slug, "error", err)
			continue
		}

		if existing, ok := s.catalog.GetByURL(url); ok {
			report.skip(slug, url, fmt.Sprintf("already in catalog as %d", existing.ID), false)
			s.logger.Info("skipping existing url", "url", url, "id", existing.ID)
			continue
		}

		entry, err := s.catalog.Add(model.NewEntry{URL: url, SourceSlug: s.primaryTag(slug)})
		if err != nil {
			return report, fmt.Errorf("adding %s: %w", url, err)
		}
		report.Added++
		s.logger.Info("entry added", "id", entry.ID, "url", entry.URL, "source", entry.SourceSlug)
	}

	if err := s.catalog.Save(); err != nil {
		return report, fmt.Errorf("saving catalog: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// PopulateCorrections merges a slug corrections batch into the catalog.
//
// A new URL becomes a new entry tagged "<batch>:<corrected slug>". A URL already
// owned by the same tag is refreshed in place, so re-running a batch is
// idempotent. A URL owned by any other tag is reported as a conflict and left alone.
func (s *Service) PopulateCorrections(ctx context.Context, batch CorrectionBatch) (*PopulateReport, error) {
	report := &PopulateReport{}
	for _, c := range batch.Corrections {
		if ctx.Err() != nil {
			break
		}
		if strings.TrimSpace(c.CorrectedSlug) == "" {
			report.skip(c.OriginalSlug, "", "no corrected slug", false)
			s.logger.Warn("skipping row without corrected slug", "slug", c.OriginalSlug)
			continue
		}

		url, err := CanonicalURL(s.opts.RootURL, c.CorrectedSlug)
		if err != nil {
			report.skip(c.CorrectedSlug, "", err.Error(), false)
			s.logger.Warn("skipping unresolvable slug", "slug", c.CorrectedSlug, "error", err)
			continue
		}

		tag := batch.Name + ":" + c.CorrectedSlug
		original := s.primaryTag(c.OriginalSlug)
		comments := fmt.Sprintf("Corrected in batch %s (%s); original slug: %s", batch.Name, batch.Fingerprint, c.OriginalSlug)

		existing, ok := s.catalog.GetByURL(url)
		if !ok {
			entry, err := s.catalog.Add(model.NewEntry{
				URL:          url,
				SourceSlug:   tag,
				OriginalSlug: original,
				Comments:     comments,
			})
			if err != nil {
				return report, fmt.Errorf("adding %s: %w", url, err)
			}
			report.Added++
			s.logger.Info("entry added", "id", entry.ID, "url", entry.URL, "source", entry.SourceSlug)
			continue
		}

		if existing.SourceSlug != tag {
			report.skip(c.CorrectedSlug, url, fmt.Sprintf("url claimed by %s (entry %d)", existing.SourceSlug, existing.ID), true)
			s.logger.Warn("provenance conflict", "url", url, "existing_source", existing.SourceSlug, "new_source", tag)
			continue
		}

		if existing.OriginalSlug == original && existing.Comments == comments {
			report.Unchanged++
			continue
		}
		if _, err := s.catalog.Update(existing.ID, model.EntryUpdate{
			SourceSlug:   &tag,
			OriginalSlug: &original,
			Comments:     &comments,
		}); err != nil {
			return report, fmt.Errorf("updating entry %d: %w", existing.ID, err)
		}
		report.Updated++
		s.logger.Info("entry refreshed", "id", existing.ID, "url", url)
	}

	if err := s.catalog.Save(); err != nil {
		return report, fmt.Errorf("saving catalog: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func distinctSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
