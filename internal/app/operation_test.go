package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"archivist/internal/archivist"
)

func TestNewOperation(t *testing.T) {
	op := NewOperation("sync", "min_interval=1h0m0s")

	assert.Equal(t, "sync", op.Name)
	assert.Equal(t, "min_interval=1h0m0s", op.Parameters)
	assert.Equal(t, archivist.StatusSuccess, op.Status)
	assert.False(t, op.Persisted())

	op.ID = 7
	assert.True(t, op.Persisted())
}

func TestOperation_Complete(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		interrupted bool
		summary     string
		wantStatus  string
		wantSummary string
	}{
		{name: "success", summary: "added 3", wantStatus: archivist.StatusSuccess, wantSummary: "added 3"},
		{name: "error without summary", err: errors.New("disk full"), wantStatus: archivist.StatusError, wantSummary: "disk full"},
		{name: "error with summary", err: errors.New("disk full"), summary: "updated 2", wantStatus: archivist.StatusError, wantSummary: "updated 2"},
		{name: "interrupted pass", interrupted: true, summary: "updated 1", wantStatus: archivist.StatusInterrupted, wantSummary: "updated 1"},
		{name: "cancelled context", err: fmt.Errorf("populate: %w", context.Canceled), wantStatus: archivist.StatusInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("x", "")
			op.Complete(tt.err, tt.interrupted, tt.summary)
			assert.Equal(t, tt.wantStatus, op.Status)
			assert.Equal(t, tt.wantSummary, op.Summary)
		})
	}
}
