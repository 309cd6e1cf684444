package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"archivist/internal/archive"
	"archivist/internal/archivist"
	"archivist/internal/catalog"
	"archivist/internal/config"
	"archivist/internal/fetch"
	"archivist/internal/history"
	"archivist/internal/metrics"
	"archivist/internal/model"
	"archivist/internal/render"
	"archivist/internal/sources"
)

// Options adjusts how NewArchivistApp wires its dependencies.
type Options struct {
	// Create initializes an empty catalog if none exists.
	Create bool

	// Verbose enables debug logging.
	Verbose bool

	// Clock and IDs default to the real clock and random UUIDs.
	Clock archivist.Clock
	IDs   archivist.IDGenerator
}

// ArchivistApp is the application layer between the CLI and the archivist Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw paths and flags, and records mutating operations in the history ledger.
type ArchivistApp struct {
	cfg     *config.Config
	catalog *catalog.CSVCatalog
	store   archivist.ArchiveStore
	history archivist.History // nil when disabled
	metrics *metrics.Collector
	service *archivist.Service
	clock   archivist.Clock
	op      *Operation
	runID   string
	logFile *os.File
}

// NewArchivistApp creates a fully wired ArchivistApp from the given config.
// operation identifies the CLI command being run (e.g. "sync", "populate-primary").
// The caller must call Close when done.
func NewArchivistApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*ArchivistApp, error) {
	if opts.Clock == nil {
		opts.Clock = archivist.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = archivist.UUIDGenerator{}
	}

	cat, err := catalog.Open(cfg.Catalog.Path(), opts.Create)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	store, err := archive.NewArchiveStoreFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating archive store: %w", err)
	}

	fetcher := fetch.New(fetch.Options{
		UserAgent:         cfg.Fetch.UserAgent,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Burst:             cfg.Fetch.Burst,
		Timeout:           time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
	})

	var collector *metrics.Collector
	var svcMetrics archivist.Metrics = archivist.NopMetrics{}
	if cfg.Metrics.Textfile != "" {
		collector, err = metrics.New()
		if err != nil {
			return nil, fmt.Errorf("creating metrics: %w", err)
		}
		svcMetrics = collector
	}

	var hist archivist.History
	if cfg.History.Enabled {
		h, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("opening history: %w", err)
		}
		hist = h
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	runID := opts.IDs.New()
	logger, logFile, err := newLogger(cfg.LogDir, runID, level)
	if err != nil {
		if hist != nil {
			hist.Close()
		}
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := archivist.NewService(cat, store, fetcher, &slogAdapter{l: logger}, opts.Clock, archivist.Options{
		RootURL:            cfg.Sources.RootURL,
		PrimaryTag:         cfg.Sources.PrimaryTag,
		CheckpointInterval: cfg.Sync.CheckpointInterval,
		Metrics:            svcMetrics,
	})

	return &ArchivistApp{
		cfg:     cfg,
		catalog: cat,
		store:   store,
		history: hist,
		metrics: collector,
		service: svc,
		clock:   opts.Clock,
		op:      NewOperation(operation, ""),
		runID:   runID,
		logFile: logFile,
	}, nil
}

// RunID returns the identifier of this invocation, as written to the log.
func (a *ArchivistApp) RunID() string {
	return a.runID
}

// persistOperation records the operation in the history ledger, giving it an ID.
// This should only be called for catalog-mutating commands.
func (a *ArchivistApp) persistOperation(parameters string) error {
	if a.history == nil || a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	id, err := a.history.Start(a.runID, a.op.Name, parameters, a.clock.Now())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = id
	return nil
}

// PopulatePrimary adds entries for the slugs of the SQLite extract at sqlitePath.
// An empty table falls back to the configured table, then to auto-detection.
func (a *ArchivistApp) PopulatePrimary(ctx context.Context, sqlitePath, table string) (*archivist.PopulateReport, error) {
	if table == "" {
		table = a.cfg.Sources.Table
	}
	if err := a.persistOperation(params("source", sqlitePath, "table", table)); err != nil {
		return nil, err
	}

	src, err := sources.OpenSQLite(ctx, sqlitePath, table, a.cfg.Sources.SlugColumn)
	if err != nil {
		a.op.Complete(err, false, "")
		return nil, err
	}
	defer src.Close()

	report, err := a.service.PopulatePrimary(ctx, src)
	a.op.Complete(err, false, populateSummary(report))
	return report, err
}

// PopulateCorrections merges the corrections file at csvPath. An empty
// batchName defaults to the file's base name.
func (a *ArchivistApp) PopulateCorrections(ctx context.Context, csvPath, batchName string) (*archivist.PopulateReport, error) {
	if err := a.persistOperation(params("source", csvPath, "batch", batchName)); err != nil {
		return nil, err
	}

	batch, err := sources.ReadCorrections(csvPath, batchName)
	if err != nil {
		a.op.Complete(err, false, "")
		return nil, err
	}

	report, err := a.service.PopulateCorrections(ctx, batch)
	a.op.Complete(err, false, populateSummary(report))
	return report, err
}

// Sync runs one sync pass. A zero minInterval falls back to the configured interval.
// When a metrics textfile is configured it is written after the pass.
func (a *ArchivistApp) Sync(ctx context.Context, minInterval time.Duration) (*archivist.SyncReport, error) {
	if minInterval == 0 {
		minInterval = time.Duration(a.cfg.Sync.MinIntervalMinutes) * time.Minute
	}
	if err := a.persistOperation(params("min_interval", minInterval.String(), "checkpoint", fmt.Sprint(a.cfg.Sync.CheckpointInterval))); err != nil {
		return nil, err
	}

	report, err := a.service.Sync(ctx, archivist.SyncOptions{MinInterval: minInterval})

	if a.metrics != nil {
		if merr := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile, a.clock.Now()); merr != nil && err == nil {
			err = fmt.Errorf("writing metrics: %w", merr)
		}
	}

	a.op.Complete(err, report != nil && report.Interrupted, syncSummary(report))
	return report, err
}

// Render writes text renditions of the given entries, or of every archived entry
// when ids is empty. An empty format uses the configured renderer.
func (a *ArchivistApp) Render(ctx context.Context, ids []int, format string) (*archivist.RenderReport, error) {
	r, err := render.NewRendererFromConfig(a.cfg.Render, format)
	if err != nil {
		return nil, err
	}
	if err := a.persistOperation(params("format", r.Format(), "ids", fmt.Sprint(ids))); err != nil {
		return nil, err
	}

	report, err := a.service.Render(ctx, r, ids)
	summary := ""
	if report != nil {
		summary = fmt.Sprintf("rendered %d, failed %d", report.Rendered, report.Failed)
	}
	a.op.Complete(err, false, summary)
	return report, err
}

// Export joins the SQLite extract with the catalog and writes the CSV to outputPath.
func (a *ArchivistApp) Export(ctx context.Context, sqlitePath, outputPath, table string) (report *archivist.ExportReport, err error) {
	if table == "" {
		table = a.cfg.Sources.Table
	}
	if err := a.persistOperation(params("source", sqlitePath, "output", outputPath, "table", table)); err != nil {
		return nil, err
	}
	defer func() {
		summary := ""
		if report != nil {
			summary = fmt.Sprintf("rows %d, matched %d", report.Rows, report.Matched)
		}
		a.op.Complete(err, false, summary)
	}()

	src, err := sources.OpenSQLite(ctx, sqlitePath, table, a.cfg.Sources.SlugColumn)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating export file: %w", err)
	}

	report, err = a.service.Export(ctx, src, a.cfg.Sources.ExportColumns, a.cfg.Sources.OrderColumn, out)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("closing export file: %w", cerr)
	}
	return report, err
}

// ListFilter narrows the entries returned by List.
type ListFilter struct {
	Status    *int // only entries whose last status equals this
	Unchecked bool // only entries never touched by a sync pass
}

// List returns catalog entries matching filter, ordered by ID.
func (a *ArchivistApp) List(filter ListFilter) []model.Entry {
	var out []model.Entry
	for _, e := range a.catalog.Entries() {
		if filter.Unchecked && e.Checked() {
			continue
		}
		if filter.Status != nil && e.LastStatus != *filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out
}

// EntryDetails is one entry together with its archive state.
type EntryDetails struct {
	Entry      model.Entry
	Location   string
	HasContent bool
	Metadata   *model.FetchMetadata // nil if never fetched
}

// Show returns an entry with its archive location and fetch metadata.
func (a *ArchivistApp) Show(id int) (*EntryDetails, error) {
	entry, ok := a.catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("entry %d: %w", id, archivist.ErrNotFound)
	}
	meta, err := a.store.LoadMetadata(id)
	if err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	has, err := a.store.HasContent(id)
	if err != nil {
		return nil, fmt.Errorf("checking content: %w", err)
	}
	return &EntryDetails{
		Entry:      entry,
		Location:   a.store.Describe(id),
		HasContent: has,
		Metadata:   meta,
	}, nil
}

// Close finalizes the operation record and closes all resources.
func (a *ArchivistApp) Close() error {
	var firstErr error

	if a.history != nil {
		if a.op.Persisted() {
			if err := a.history.Finish(a.op.ID, a.op.Status, a.op.Summary, a.clock.Now()); err != nil {
				firstErr = fmt.Errorf("finishing operation: %w", err)
			}
		}
		if err := a.history.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing history: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// ErrHistoryDisabled is returned by ReadHistory when the ledger is turned off.
var ErrHistoryDisabled = errors.New("history is disabled")

// ReadHistory returns the most recent recorded operations without opening the catalog.
func ReadHistory(cfg *config.Config, limit int) ([]archivist.OperationRecord, error) {
	if !cfg.History.Enabled {
		return nil, ErrHistoryDisabled
	}
	if _, err := os.Stat(cfg.HistoryPath()); os.IsNotExist(err) {
		return nil, nil
	}
	h, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer h.Close()
	return h.Recent(limit)
}

func params(kv ...string) string {
	var parts []string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		parts = append(parts, kv[i]+"="+kv[i+1])
	}
	return strings.Join(parts, " ")
}

func populateSummary(r *archivist.PopulateReport) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("added %d, updated %d, unchanged %d, skipped %d, conflicts %d",
		r.Added, r.Updated, r.Unchanged, len(r.Notices)-r.Conflicts(), r.Conflicts())
}

func syncSummary(r *archivist.SyncReport) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("updated %d, unchanged %d, failed %d, skipped %d, recent %d",
		r.Updated, r.Unchanged, r.Failed, r.SkippedMarked, r.SkippedRecent)
}
