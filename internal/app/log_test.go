package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "run-123",
			level:   slog.LevelInfo,
			message: "entry updated",
			want:    "2024-06-15T14:30:45Z\tINFO\trun-123\tentry updated\n",
		},
		{
			name:    "warn level",
			runID:   "run-456",
			level:   slog.LevelWarn,
			message: "fetch failed",
			want:    "2024-06-15T14:30:45Z\tWARN\trun-456\tfetch failed\n",
		},
		{
			name:    "with record attrs",
			runID:   "run-789",
			level:   slog.LevelInfo,
			message: "entry added",
			attrs:   []slog.Attr{slog.Int("id", 42), slog.String("url", "https://example.org/a.html"), slog.Any("error", errors.New("boom"))},
			want:    "2024-06-15T14:30:45Z\tINFO\trun-789\tentry added\tid=42\turl=https://example.org/a.html\terror=boom\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &logHandler{w: &buf, runID: tt.runID, level: slog.LevelDebug}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			require.NoError(t, h.Handle(context.Background(), r))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestLogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &logHandler{w: &buf, runID: "run-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "sync")}).(*logHandler)
	assert.Len(t, h.attrs, 1, "original handler attrs modified")
	assert.Len(t, h2.attrs, 2)

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "checkpoint saved", 0)
	r.AddAttrs(slog.Int("entries", 50))
	require.NoError(t, h2.Handle(context.Background(), r))

	got := buf.String()
	assert.Contains(t, got, "\ta=1\tcomponent=sync\tentries=50\n")
}

func TestLogHandler_Enabled(t *testing.T) {
	h := &logHandler{level: slog.LevelInfo}
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-run", slog.LevelInfo)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("hello", "k", "v")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\tINFO\ttest-run\thello\tk=v\n")
}
