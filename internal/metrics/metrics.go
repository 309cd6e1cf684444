// Package metrics records sync pass observations in a Prometheus registry.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"archivist/internal/archivist"
)

// Collector implements archivist.Metrics with Prometheus collectors.
type Collector struct {
	registry *prometheus.Registry

	entries     *prometheus.CounterVec
	httpStatus  *prometheus.CounterVec
	latency     prometheus.Histogram
	checkpoints *prometheus.CounterVec
	lastRun     prometheus.Gauge
}

// New creates a Collector with its own registry.
func New() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_sync_entries_total",
			Help: "Entries visited by the sync pass partitioned by outcome.",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_fetch_responses_total",
			Help: "HTTP responses partitioned by status code.",
		}, []string{"code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "archivist_fetch_duration_seconds",
			Help:    "Duration of individual HEAD and GET requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_catalog_checkpoints_total",
			Help: "Catalog snapshot saves partitioned by result.",
		}, []string{"result"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "archivist_sync_last_run_timestamp_seconds",
			Help: "Unix time the last sync pass finished.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		c.entries,
		c.httpStatus,
		c.latency,
		c.checkpoints,
		c.lastRun,
	} {
		if err := c.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register sync collector: %w", err)
		}
	}
	return c, nil
}

// Registry returns the registry holding the collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordOutcome(outcome string) {
	c.entries.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordFetchLatency(d time.Duration) {
	c.latency.Observe(d.Seconds())
}

func (c *Collector) RecordCheckpoint(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.checkpoints.WithLabelValues(result).Inc()
}

// WriteTextfile stamps the finish time and writes the registry in the text
// exposition format, for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string, finishedAt time.Time) error {
	c.lastRun.Set(float64(finishedAt.Unix()))
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Compile-time check that Collector implements archivist.Metrics
var _ archivist.Metrics = (*Collector)(nil)
