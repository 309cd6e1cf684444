package archivist

// DefaultCheckpointInterval is the number of catalog writes between mid-pass snapshot saves.
const DefaultCheckpointInterval = 50

// DefaultPrimaryTag is the provenance prefix of entries populated from the relational extract.
const DefaultPrimaryTag = "primary"

// Options configures the service.
type Options struct {
	// RootURL is the address slugs are resolved against.
	RootURL string

	// PrimaryTag is the provenance prefix for Source A entries.
	PrimaryTag string

	// CheckpointInterval is the number of catalog writes between snapshot saves during a sync pass.
	CheckpointInterval int

	// Metrics receives sync pass observations. Nil discards them.
	Metrics Metrics
}

// Service is the orchestration layer that coordinates the catalog, the archive
// store and the network to perform the operations needed by the CLI.
type Service struct {
	catalog Catalog
	store   ArchiveStore
	fetcher Fetcher
	logger  Logger
	clock   Clock
	opts    Options
}

// NewService creates a new Service with the provided dependencies.
// fetcher may be nil for operations that never touch the network.
func NewService(catalog Catalog, store ArchiveStore, fetcher Fetcher, logger Logger, clock Clock, opts Options) *Service {
	if opts.RootURL == "" {
		opts.RootURL = DefaultRootURL
	}
	if opts.PrimaryTag == "" {
		opts.PrimaryTag = DefaultPrimaryTag
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics{}
	}
	return &Service{
		catalog: catalog,
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		clock:   clock,
		opts:    opts,
	}
}

// primaryTag returns the provenance tag of a Source A slug.
func (s *Service) primaryTag(slug string) string {
	return s.opts.PrimaryTag + ":" + slug
}
