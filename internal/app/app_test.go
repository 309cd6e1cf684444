package app

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/archivist"
	"archivist/internal/config"
	"archivist/internal/testutil"
)

func newTestSourceDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ceneton.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE ceneton (nummer INTEGER, http TEXT, titel TEXT)`,
		`INSERT INTO ceneton VALUES (1, 'vondel/gijsbrecht', 'Gijsbrecht van Aemstel')`,
		`INSERT INTO ceneton VALUES (2, 'hooft/warenar#top', 'Warenar')`,
		`INSERT INTO ceneton VALUES (3, NULL, 'Untitled')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/texts/vondel/gijsbrecht.html":
			w.Header().Set("ETag", `"g1"`)
			w.Write([]byte("<html><body><p>Gijsbrecht</p></body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, rootURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig(dir)
	cfg.Sources.RootURL = rootURL
	cfg.Sources.ExportColumns = []string{"nummer", "titel"}
	cfg.Metrics.Textfile = filepath.Join(dir, "metrics", "archivist.prom")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Metrics.Textfile), 0755))
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, operation string, create bool) *ArchivistApp {
	t.Helper()
	a, err := NewArchivistApp(context.Background(), cfg, operation, Options{
		Create: create,
		Clock:  testutil.FixedClock(),
		IDs:    testutil.NewStubRunIDs(),
	})
	require.NoError(t, err)
	return a
}

func TestNewArchivistApp_MissingCatalog(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	_, err := NewArchivistApp(context.Background(), cfg, "sync", Options{})
	require.ErrorIs(t, err, archivist.ErrNotFound)
}

func TestArchivistApp_Workflow(t *testing.T) {
	srv := newTestServer(t)
	cfg := newTestConfig(t, srv.URL+"/texts/")
	sourceDB := newTestSourceDB(t)
	ctx := context.Background()

	// populate
	a := newTestApp(t, cfg, "populate-primary", true)
	assert.Equal(t, testutil.RunID(1), a.RunID())
	report, err := a.PopulatePrimary(ctx, sourceDB, "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)
	require.NoError(t, a.Close())

	// sync
	a = newTestApp(t, cfg, "sync", false)
	syncReport, err := a.Sync(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, syncReport.Updated)
	assert.Equal(t, 1, syncReport.Failed)
	require.NoError(t, a.Close())

	content, err := os.ReadFile(filepath.Join(cfg.Catalog.Dir, "0000-0100", "0002", "content.html"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Gijsbrecht")

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `archivist_sync_entries_total{outcome="updated"} 1`)

	// inspect
	a = newTestApp(t, cfg, "show", false)
	ok := http.StatusOK
	listed := a.List(ListFilter{Status: &ok})
	require.Len(t, listed, 1)
	assert.Equal(t, srv.URL+"/texts/vondel/gijsbrecht.html", listed[0].URL)
	assert.Empty(t, a.List(ListFilter{Unchecked: true}))

	details, err := a.Show(listed[0].ID)
	require.NoError(t, err)
	assert.True(t, details.HasContent)
	require.NotNil(t, details.Metadata)
	assert.Equal(t, `"g1"`, details.Metadata.ETag)

	_, err = a.Show(42)
	require.ErrorIs(t, err, archivist.ErrNotFound)
	require.NoError(t, a.Close())

	// export
	a = newTestApp(t, cfg, "export", false)
	out := filepath.Join(t.TempDir(), "export.csv")
	exportReport, err := a.Export(ctx, sourceDB, out, "")
	require.NoError(t, err)
	assert.Equal(t, 2, exportReport.Rows)
	assert.Equal(t, 1, exportReport.Matched)
	require.NoError(t, a.Close())

	exported, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "nummer,text_id,titel\n1,2,Gijsbrecht van Aemstel\n", string(exported))

	// history
	ops, err := ReadHistory(cfg, 10)
	require.NoError(t, err)
	require.Len(t, ops, 3, "read-only commands are not recorded")
	assert.Equal(t, "export", ops[0].Operation)
	assert.Equal(t, "sync", ops[1].Operation)
	assert.Equal(t, "populate-primary", ops[2].Operation)
	for _, op := range ops {
		assert.Equal(t, archivist.StatusSuccess, op.Status)
		assert.NotNil(t, op.FinishedAt)
	}
	assert.Contains(t, ops[1].Summary, "updated 1")
}

func TestArchivistApp_FailedOperationIsRecorded(t *testing.T) {
	cfg := newTestConfig(t, "https://example.org/")
	a := newTestApp(t, cfg, "populate-primary", true)

	_, err := a.PopulatePrimary(context.Background(), filepath.Join(t.TempDir(), "missing.db"), "")
	require.Error(t, err)
	require.NoError(t, a.Close())

	ops, err := ReadHistory(cfg, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, archivist.StatusError, ops[0].Status)
	assert.NotEmpty(t, ops[0].Summary)
}

func TestReadHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg := config.NewConfig(t.TempDir())
		cfg.History.Enabled = false
		_, err := ReadHistory(cfg, 10)
		require.ErrorIs(t, err, ErrHistoryDisabled)
	})

	t.Run("no ledger yet", func(t *testing.T) {
		cfg := config.NewConfig(t.TempDir())
		ops, err := ReadHistory(cfg, 10)
		require.NoError(t, err)
		assert.Empty(t, ops)
	})
}

func TestParams(t *testing.T) {
	assert.Equal(t, "source=a.db table=t", params("source", "a.db", "table", "t"))
	assert.Equal(t, "source=a.db", params("source", "a.db", "table", ""))
}
