package archivist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"archivist/internal/model"
)

// SyncOptions configures a sync pass.
type SyncOptions struct {
	// MinInterval skips entries checked more recently than this. Zero disables the filter.
	MinInterval time.Duration
}

// SyncReport summarizes a sync pass.
type SyncReport struct {
	Total            int
	Updated          int // full fetch stored new content
	Unchanged        int // validator matched, content left alone
	Failed           int
	SkippedMarked    int
	SkippedRecent    int
	Checkpoints      int
	CheckpointErrors int
	Interrupted      bool
}

// Processed returns the number of entries that made a network attempt.
func (r *SyncReport) Processed() int {
	return r.Updated + r.Unchanged + r.Failed
}

// errInterrupted reports that the pass context ended during an entry's request.
var errInterrupted = errors.New("sync interrupted")

// entryResult is the outcome of one entry's fetch attempt.
type entryResult struct {
	outcome string
	status  int
	record  bool // propagate status into the catalog
}

// Sync drives a conditional fetch of every eligible catalog entry.
//
// Entries are processed one at a time. After every CheckpointInterval catalog
// writes the snapshot is saved; a failed mid-pass save is reported but does not
// stop the pass. When ctx ends the remaining entries are abandoned. In every
// case a final snapshot save runs before Sync returns, and only a failure of
// that save is returned as an error.
func (s *Service) Sync(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	entries := s.catalog.Entries()
	report := &SyncReport{Total: len(entries)}
	sinceCheckpoint := 0

	s.logger.Info("sync started", "entries", len(entries), "min_interval", opts.MinInterval.String())

	for _, listed := range entries {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}

		entry, ok := s.catalog.Get(listed.ID)
		if !ok {
			continue
		}

		if entry.Skipped() {
			report.SkippedMarked++
			s.opts.Metrics.RecordOutcome(OutcomeSkippedMarked)
			s.logger.Debug("entry marked as skipped", "id", entry.ID, "reason", entry.Skip)
			continue
		}

		if opts.MinInterval > 0 && entry.Checked() && s.clock.Now().Sub(entry.LastChecked) < opts.MinInterval {
			report.SkippedRecent++
			s.opts.Metrics.RecordOutcome(OutcomeSkippedRecent)
			s.logger.Debug("entry checked recently", "id", entry.ID, "last_checked", entry.LastChecked)
			continue
		}

		result, err := s.syncEntry(ctx, entry)
		if errors.Is(err, errInterrupted) {
			report.Interrupted = true
			break
		}

		switch result.outcome {
		case OutcomeUpdated:
			report.Updated++
		case OutcomeUnchanged:
			report.Unchanged++
		default:
			report.Failed++
		}
		s.opts.Metrics.RecordOutcome(result.outcome)

		if !result.record {
			continue
		}
		if _, err := s.catalog.Update(entry.ID, model.StatusUpdate(result.status, s.clock.Now())); err != nil {
			return report, s.finish(report, fmt.Errorf("recording status of entry %d: %w", entry.ID, err))
		}

		sinceCheckpoint++
		if sinceCheckpoint >= s.opts.CheckpointInterval {
			s.checkpoint(report)
			sinceCheckpoint = 0
		}
	}

	return report, s.finish(report, nil)
}

// finish performs the final snapshot save of a pass. The save always runs;
// cause, if any, takes precedence over a save failure.
func (s *Service) finish(report *SyncReport, cause error) error {
	saveErr := s.catalog.Save()
	s.opts.Metrics.RecordCheckpoint(saveErr)

	s.logger.Info("sync finished",
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"failed", report.Failed,
		"skipped_marked", report.SkippedMarked,
		"skipped_recent", report.SkippedRecent,
		"interrupted", report.Interrupted,
	)

	if cause != nil {
		return cause
	}
	if saveErr != nil {
		s.logger.Error("final checkpoint failed", "error", saveErr)
		return fmt.Errorf("final checkpoint: %w", saveErr)
	}
	return nil
}

// checkpoint saves the catalog mid-pass. Failures are counted, not returned.
func (s *Service) checkpoint(report *SyncReport) {
	err := s.catalog.Save()
	s.opts.Metrics.RecordCheckpoint(err)
	if err != nil {
		report.CheckpointErrors++
		s.logger.Error("checkpoint failed", "error", err)
		return
	}
	report.Checkpoints++
	s.logger.Debug("checkpoint saved", "entries", s.catalog.Len())
}

// syncEntry runs the validator probe and full fetch for a single entry.
// Content is written before metadata, so metadata never describes content
// that was not stored. If the content cannot be stored, the attempt is still
// recorded against the previous validators and digest.
func (s *Service) syncEntry(ctx context.Context, entry model.Entry) (entryResult, error) {
	meta, err := s.store.LoadMetadata(entry.ID)
	if err != nil {
		s.logger.Warn("unreadable fetch metadata, fetching in full", "id", entry.ID, "error", err)
		meta = nil
	}
	if meta == nil {
		meta = &model.FetchMetadata{}
	}
	meta.LastAttempt = s.clock.Now()

	if meta.ETag != "" {
		resp, err := s.request(ctx, s.fetcher.Head, entry.URL)
		if err != nil {
			if ctx.Err() != nil {
				return entryResult{}, errInterrupted
			}
			return s.recordFailure(entry, meta, model.StatusTransportError, err), nil
		}
		if !resp.Success() {
			return s.recordFailure(entry, meta, resp.StatusCode, &RemoteError{StatusCode: resp.StatusCode}), nil
		}
		if resp.ETag == meta.ETag {
			meta.LastStatus = resp.StatusCode
			s.saveMetadata(entry.ID, meta)
			s.logger.Info("entry up to date", "id", entry.ID, "url", entry.URL)
			return entryResult{outcome: OutcomeUnchanged, status: resp.StatusCode, record: true}, nil
		}
	}

	resp, err := s.request(ctx, s.fetcher.Get, entry.URL)
	if err != nil {
		if ctx.Err() != nil {
			return entryResult{}, errInterrupted
		}
		return s.recordFailure(entry, meta, model.StatusTransportError, err), nil
	}
	if !resp.Success() {
		return s.recordFailure(entry, meta, resp.StatusCode, &RemoteError{StatusCode: resp.StatusCode}), nil
	}

	// prior keeps the last good validators in case the new content cannot be stored.
	prior := *meta
	prior.LastStatus = resp.StatusCode

	meta.LastStatus = resp.StatusCode
	meta.ETag = resp.ETag
	meta.LastModified = resp.LastModified
	meta.ContentLength = resp.ContentLength
	if meta.ContentLength < 0 {
		meta.ContentLength = int64(len(resp.Body))
	}
	sum := sha256.Sum256(resp.Body)
	meta.Digest = hex.EncodeToString(sum[:])

	if err := s.store.SaveContent(entry.ID, resp.Body); err != nil {
		s.logger.Error("storing content failed", "id", entry.ID, "error", err)
		s.saveMetadata(entry.ID, &prior)
		return entryResult{outcome: OutcomeFailed, status: resp.StatusCode, record: true}, nil
	}
	if err := s.store.SaveMetadata(entry.ID, meta); err != nil {
		s.logger.Error("storing fetch metadata failed", "id", entry.ID, "error", err)
		return entryResult{outcome: OutcomeFailed, status: resp.StatusCode, record: true}, nil
	}

	s.logger.Info("entry updated", "id", entry.ID, "url", entry.URL, "bytes", len(resp.Body))
	return entryResult{outcome: OutcomeUpdated, status: resp.StatusCode, record: true}, nil
}

// recordFailure stores a failed attempt. Validators and content are left as they were.
func (s *Service) recordFailure(entry model.Entry, meta *model.FetchMetadata, status int, cause error) entryResult {
	meta.LastStatus = status
	s.saveMetadata(entry.ID, meta)
	s.logger.Warn("fetch failed", "id", entry.ID, "url", entry.URL, "status", status, "error", cause)
	return entryResult{outcome: OutcomeFailed, status: status, record: true}
}

func (s *Service) saveMetadata(id int, meta *model.FetchMetadata) {
	if err := s.store.SaveMetadata(id, meta); err != nil {
		s.logger.Error("storing fetch metadata failed", "id", id, "error", err)
	}
}

// request performs one network call and records its latency and status.
func (s *Service) request(ctx context.Context, do func(context.Context, string) (*Response, error), url string) (*Response, error) {
	start := time.Now()
	resp, err := do(ctx, url)
	s.opts.Metrics.RecordFetchLatency(time.Since(start))
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.RecordHTTPStatus(resp.StatusCode)
	return resp, nil
}
