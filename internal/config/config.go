package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Default values applied by Normalize when a setting is left empty.
const (
	DefaultCatalogFile        = "index.csv"
	DefaultUserAgent          = "archivist/1.0"
	DefaultCheckpointInterval = 50
	DefaultSlugColumn         = "http"
	DefaultOrderColumn        = "nummer"
	DefaultRenderType         = "w3m"
	DefaultW3MPath            = "w3m"
	DefaultHistoryFile        = "history.db"
)

// DefaultExportColumns are the Source A columns written by export, first column first.
var DefaultExportColumns = []string{
	"nummer",
	"auteurva",
	"titel",
	"jaarnr",
	"genre",
	"oorspr_auteur_va",
	"drukkerva",
	"plaats_van_uitgave",
}

// Config represents the main configuration for archivist.
type Config struct {
	BaseDir string        `toml:"base_dir"`
	LogDir  string        `toml:"log_dir"`
	Catalog CatalogConfig `toml:"catalog"`
	Archive ArchiveConfig `toml:"archive"`
	Fetch   FetchConfig   `toml:"fetch"`
	Sync    SyncConfig    `toml:"sync"`
	Sources SourcesConfig `toml:"sources"`
	Render  RenderConfig  `toml:"render"`
	History HistoryConfig `toml:"history"`
	Metrics MetricsConfig `toml:"metrics"`
}

// CatalogConfig locates the catalog snapshot.
type CatalogConfig struct {
	Dir  string `toml:"dir"`
	File string `toml:"file"` // snapshot file name inside Dir, defaults to index.csv
}

// Path returns the snapshot file path.
func (c CatalogConfig) Path() string {
	return filepath.Join(c.Dir, c.File)
}

// ArchiveConfig represents configuration for the archive store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "filesystem" (default), "memory", or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem").
	// Root defaults to the catalog directory.
	Root string `toml:"root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// FetchConfig holds HTTP client settings.
type FetchConfig struct {
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 means unlimited
	Burst             int     `toml:"burst"`
	TimeoutSeconds    int     `toml:"timeout_seconds"` // 0 leaves the transport default
}

// SyncConfig holds sync pass settings.
type SyncConfig struct {
	CheckpointInterval int `toml:"checkpoint_interval"`
	MinIntervalMinutes int `toml:"min_interval_minutes"`
}

// SourcesConfig describes the upstream slug sources.
type SourcesConfig struct {
	RootURL       string   `toml:"root_url"`
	PrimaryTag    string   `toml:"primary_tag"`
	SlugColumn    string   `toml:"slug_column"`
	Table         string   `toml:"table,omitempty"` // empty means auto-detect
	ExportColumns []string `toml:"export_columns"`
	OrderColumn   string   `toml:"order_column"`
}

// RenderConfig selects the text conversion backend.
type RenderConfig struct {
	Type    string `toml:"type"` // "w3m" or "markdown"
	W3MPath string `toml:"w3m_path,omitempty"`
}

// HistoryConfig controls the operation ledger.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path,omitempty"` // defaults to history.db in the catalog directory
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `toml:"textfile,omitempty"` // empty disables the export
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	cfg := &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{Dir: filepath.Join(baseDir, "catalog")},
		Archive: ArchiveConfig{Type: "filesystem"},
		History: HistoryConfig{Enabled: true},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills empty settings with their defaults.
func (c *Config) Normalize() {
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.Catalog.Dir == "" && c.BaseDir != "" {
		c.Catalog.Dir = filepath.Join(c.BaseDir, "catalog")
	}
	if c.Catalog.File == "" {
		c.Catalog.File = DefaultCatalogFile
	}
	if c.Archive.Type == "" {
		c.Archive.Type = "filesystem"
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}
	if c.Fetch.Burst <= 0 {
		c.Fetch.Burst = 1
	}
	if c.Sync.CheckpointInterval <= 0 {
		c.Sync.CheckpointInterval = DefaultCheckpointInterval
	}
	if c.Sources.SlugColumn == "" {
		c.Sources.SlugColumn = DefaultSlugColumn
	}
	if c.Sources.OrderColumn == "" {
		c.Sources.OrderColumn = DefaultOrderColumn
	}
	if len(c.Sources.ExportColumns) == 0 {
		c.Sources.ExportColumns = append([]string(nil), DefaultExportColumns...)
	}
	if c.Render.Type == "" {
		c.Render.Type = DefaultRenderType
	}
	if c.Render.W3MPath == "" {
		c.Render.W3MPath = DefaultW3MPath
	}
}

// HistoryPath returns the ledger path, defaulting to the catalog directory.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(c.Catalog.Dir, DefaultHistoryFile)
}

// ArchiveRoot returns the filesystem archive root, defaulting to the catalog directory.
func (c *Config) ArchiveRoot() string {
	if c.Archive.Root != "" {
		return c.Archive.Root
	}
	return c.Catalog.Dir
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config at path if it exists, otherwise starts from NewConfig(baseDir).
// Empty settings are filled with defaults either way.
func Load(path, baseDir string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewConfig(baseDir), nil
	}
	cfg, err := ReadFromFile(path)
	if err != nil {
		return nil, err
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = baseDir
	}
	cfg.Normalize()
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
