package archivist

import "time"

// Entry outcomes reported by the sync engine.
const (
	OutcomeUpdated       = "updated"
	OutcomeUnchanged     = "unchanged"
	OutcomeFailed        = "failed"
	OutcomeSkippedMarked = "skipped_marked"
	OutcomeSkippedRecent = "skipped_recent"
)

// Metrics receives sync pass observations.
type Metrics interface {
	RecordOutcome(outcome string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(d time.Duration)
	RecordCheckpoint(err error)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordOutcome(string)             {}
func (NopMetrics) RecordHTTPStatus(int)             {}
func (NopMetrics) RecordFetchLatency(time.Duration) {}
func (NopMetrics) RecordCheckpoint(error)           {}
