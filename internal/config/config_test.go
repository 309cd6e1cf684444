package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/archivist",
		LogDir:  "/home/user/.local/share/archivist/log",
		Catalog: CatalogConfig{Dir: "/srv/texts", File: "index.csv"},
		Archive: ArchiveConfig{
			Type:           "s3",
			S3Bucket:       "texts",
			S3Prefix:       "ceneton",
			S3Region:       "eu-west-1",
			S3UsePathStyle: true,
		},
		Fetch:   FetchConfig{UserAgent: "test-agent", RequestsPerSecond: 2.5, Burst: 3, TimeoutSeconds: 30},
		Sync:    SyncConfig{CheckpointInterval: 10, MinIntervalMinutes: 60},
		Sources: SourcesConfig{SlugColumn: "http", ExportColumns: []string{"nummer", "titel"}, OrderColumn: "nummer"},
		Render:  RenderConfig{Type: "markdown"},
		History: HistoryConfig{Enabled: true},
		Metrics: MetricsConfig{Textfile: "/var/lib/node_exporter/archivist.prom"},
	}

	var buf bytes.Buffer
	m := &Manager{}
	require.NoError(t, m.Write(&buf, original))

	got, err := m.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/archivist")

	assert.Equal(t, "/data/archivist/log", cfg.LogDir)
	assert.Equal(t, "/data/archivist/catalog/index.csv", cfg.Catalog.Path())
	assert.Equal(t, "filesystem", cfg.Archive.Type)
	assert.Equal(t, DefaultCheckpointInterval, cfg.Sync.CheckpointInterval)
	assert.Equal(t, 0, cfg.Sync.MinIntervalMinutes)
	assert.Equal(t, DefaultExportColumns, cfg.Sources.ExportColumns)
	assert.Equal(t, "/data/archivist/catalog", cfg.ArchiveRoot())
	assert.Equal(t, "/data/archivist/catalog/history.db", cfg.HistoryPath())
	assert.True(t, cfg.History.Enabled)
}

func TestLoad(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Load(filepath.Join(dir, "config.toml"), dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "catalog"), cfg.Catalog.Dir)
		assert.Equal(t, DefaultUserAgent, cfg.Fetch.UserAgent)
	})

	t.Run("partial file is normalized", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		content := strings.Join([]string{
			`[catalog]`,
			`dir = "/srv/texts"`,
			`[sync]`,
			`min_interval_minutes = 1440`,
		}, "\n")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path, dir)
		require.NoError(t, err)
		assert.Equal(t, "/srv/texts/index.csv", cfg.Catalog.Path())
		assert.Equal(t, 1440, cfg.Sync.MinIntervalMinutes)
		assert.Equal(t, DefaultCheckpointInterval, cfg.Sync.CheckpointInterval)
		assert.Equal(t, filepath.Join(dir, "log"), cfg.LogDir)
		assert.Equal(t, "/srv/texts/history.db", cfg.HistoryPath())
	})

	t.Run("invalid file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[sync\n"), 0644))

		_, err := Load(path, dir)
		require.Error(t, err)
	})
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "config.toml")

		require.NoError(t, Init(path, NewConfig(dir)))
		_, err := os.Stat(path)
		require.NoError(t, err)
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		cfg := NewConfig(dir)

		require.NoError(t, Init(path, cfg))
		require.Error(t, Init(path, cfg))
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		cfg := NewConfig(dir)
		cfg.Render.Type = "markdown"
		require.NoError(t, Init(path, cfg))

		got, err := ReadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "markdown", got.Render.Type)
		assert.Equal(t, cfg.Catalog, got.Catalog)
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/config.toml")
		require.Error(t, err)
	})
}
