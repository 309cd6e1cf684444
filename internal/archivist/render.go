package archivist

import (
	"context"
	"fmt"

	"archivist/internal/model"
)

// Renderer converts archived HTML into a text rendition.
type Renderer interface {
	// Format names the rendition, e.g. "txt" or "md".
	Format() string

	// Render converts one entry's archived content.
	Render(ctx context.Context, entry model.Entry, content []byte) ([]byte, error)
}

// RenderReport summarizes a render pass.
type RenderReport struct {
	Rendered int
	Failed   int
}

// Render produces a rendition for each given entry, or for every entry with
// archived content when ids is empty. A failed rendition is logged and counted.
func (s *Service) Render(ctx context.Context, r Renderer, ids []int) (*RenderReport, error) {
	var entries []model.Entry
	if len(ids) > 0 {
		for _, id := range ids {
			entry, ok := s.catalog.Get(id)
			if !ok {
				return nil, fmt.Errorf("entry %d: %w", id, ErrNotFound)
			}
			entries = append(entries, entry)
		}
	} else {
		for _, entry := range s.catalog.Entries() {
			has, err := s.store.HasContent(entry.ID)
			if err != nil {
				return nil, fmt.Errorf("checking content of entry %d: %w", entry.ID, err)
			}
			if has {
				entries = append(entries, entry)
			}
		}
	}

	report := &RenderReport{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.renderEntry(ctx, r, entry); err != nil {
			report.Failed++
			s.logger.Warn("render failed", "id", entry.ID, "format", r.Format(), "error", err)
			continue
		}
		report.Rendered++
	}

	s.logger.Info("render finished", "rendered", report.Rendered, "failed", report.Failed)
	return report, nil
}

func (s *Service) renderEntry(ctx context.Context, r Renderer, entry model.Entry) error {
	content, err := s.store.LoadContent(entry.ID)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}
	text, err := r.Render(ctx, entry, content)
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	if err := s.store.SaveRendition(entry.ID, r.Format(), text); err != nil {
		return fmt.Errorf("storing rendition: %w", err)
	}
	s.logger.Debug("entry rendered", "id", entry.ID, "format", r.Format())
	return nil
}
