package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"archivist/internal/archivist"
)

func TestCollectorRecords(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	c.RecordOutcome(archivist.OutcomeUpdated)
	c.RecordOutcome(archivist.OutcomeUpdated)
	c.RecordOutcome(archivist.OutcomeSkippedMarked)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)
	c.RecordFetchLatency(150 * time.Millisecond)
	c.RecordCheckpoint(nil)
	c.RecordCheckpoint(errors.New("disk full"))

	require.Equal(t, 2.0, testutil.ToFloat64(c.entries.WithLabelValues(archivist.OutcomeUpdated)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.entries.WithLabelValues(archivist.OutcomeSkippedMarked)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.httpStatus.WithLabelValues("404")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.checkpoints.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.checkpoints.WithLabelValues("error")))
	require.Equal(t, 1, testutil.CollectAndCount(c.latency, "archivist_fetch_duration_seconds"))
}

func TestCollectorWriteTextfile(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	c.RecordOutcome(archivist.OutcomeUnchanged)

	path := filepath.Join(t.TempDir(), "archivist.prom")
	finished := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, c.WriteTextfile(path, finished))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `archivist_sync_entries_total{outcome="unchanged"} 1`)
	require.Contains(t, string(data), "archivist_sync_last_run_timestamp_seconds 1.7053146e+09\n")
}
