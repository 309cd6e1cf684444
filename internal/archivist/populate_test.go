package archivist_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/archive"
	"archivist/internal/archivist"
	"archivist/internal/catalog"
	"archivist/internal/model"
	"archivist/internal/testutil"
)

const testRoot = "https://example.org/texts/"

type stubSource struct {
	slugs []string
	rows  []model.SourceRow
	err   error
}

func (s *stubSource) Slugs(context.Context) ([]string, error) { return s.slugs, s.err }

func (s *stubSource) Rows(_ context.Context, columns []string, _ string) ([]model.SourceRow, error) {
	return s.rows, s.err
}

func newPopulateService(t *testing.T, cat archivist.Catalog) *archivist.Service {
	t.Helper()
	return archivist.NewService(cat, archive.NewMemoryStore(), nil, archivist.NewNopLogger(), testutil.FixedClock(), archivist.Options{
		RootURL: testRoot,
	})
}

func TestPopulatePrimary(t *testing.T) {
	cat := testutil.NewTestCatalog(t)
	svc := newPopulateService(t, cat)
	src := &stubSource{slugs: []string{"vondel/b", "vondel/a", "vondel/a", "hooft#p2", "hooft", "  "}}

	report, err := svc.PopulatePrimary(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Added)
	assert.Len(t, report.Notices, 2, "blank slug and duplicate url are reported")
	assert.Equal(t, 0, report.Conflicts())

	// Slugs are processed in ascending order, so IDs follow it.
	want := []struct {
		url, source string
	}{
		{testRoot + "hooft.html", "primary:hooft"},
		{testRoot + "vondel/a.html", "primary:vondel/a"},
		{testRoot + "vondel/b.html", "primary:vondel/b"},
	}
	entries := cat.Entries()
	require.Len(t, entries, len(want))
	for i, w := range want {
		assert.Equal(t, i+1, entries[i].ID)
		assert.Equal(t, w.url, entries[i].URL)
		assert.Equal(t, w.source, entries[i].SourceSlug)
	}

	t.Run("persisted once at the end", func(t *testing.T) {
		reopened, err := catalog.Open(cat.Path(), false)
		require.NoError(t, err)
		assert.Equal(t, entries, reopened.Entries())
	})

	t.Run("re-run adds nothing", func(t *testing.T) {
		report, err := svc.PopulatePrimary(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Added)
		assert.Equal(t, 3, cat.Len())
	})

	t.Run("new slugs continue the id sequence", func(t *testing.T) {
		report, err := svc.PopulatePrimary(context.Background(), &stubSource{slugs: []string{"bredero"}})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Added)

		e, ok := cat.GetByURL(testRoot + "bredero.html")
		require.True(t, ok)
		assert.Equal(t, 4, e.ID)
	})
}

func TestPopulatePrimary_SourceError(t *testing.T) {
	cat := testutil.NewTestCatalog(t)
	svc := newPopulateService(t, cat)

	_, err := svc.PopulatePrimary(context.Background(), &stubSource{err: errors.New("no such table")})
	require.Error(t, err)
	assert.Equal(t, 0, cat.Len())
}

func TestPopulatePrimary_SaveFailure(t *testing.T) {
	cat := testutil.NewFlakyCatalog(testutil.NewTestCatalog(t))
	cat.FailSaves[1] = true
	svc := newPopulateService(t, cat)

	_, err := svc.PopulatePrimary(context.Background(), &stubSource{slugs: []string{"a"}})
	require.ErrorIs(t, err, testutil.ErrSaveFailed)
}

func TestPopulateCorrections(t *testing.T) {
	cat := testutil.NewTestCatalog(t)
	svc := newPopulateService(t, cat)
	_, err := svc.PopulatePrimary(context.Background(), &stubSource{slugs: []string{"a", "b", "c"}})
	require.NoError(t, err)

	batch := archivist.CorrectionBatch{
		Name:        "fixes-2024",
		Fingerprint: "abcd1234",
		Corrections: []model.Correction{
			{OriginalSlug: "a", CorrectedSlug: "a-fixed"},
			{OriginalSlug: "b", CorrectedSlug: ""},
			{OriginalSlug: "x", CorrectedSlug: "c"},
		},
	}

	report, err := svc.PopulateCorrections(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Conflicts())
	assert.Len(t, report.Notices, 2)

	added, ok := cat.GetByURL(testRoot + "a-fixed.html")
	require.True(t, ok)
	assert.Equal(t, 4, added.ID)
	assert.Equal(t, "fixes-2024:a-fixed", added.SourceSlug)
	assert.Equal(t, "primary:a", added.OriginalSlug)
	assert.Contains(t, added.Comments, "fixes-2024")
	assert.Contains(t, added.Comments, "abcd1234")

	// The conflicting URL keeps its original provenance.
	c, ok := cat.GetByURL(testRoot + "c.html")
	require.True(t, ok)
	assert.Equal(t, "primary:c", c.SourceSlug)
	assert.Empty(t, c.OriginalSlug)

	t.Run("re-running the same batch is idempotent", func(t *testing.T) {
		before := cat.Entries()

		report, err := svc.PopulateCorrections(context.Background(), batch)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Added)
		assert.Equal(t, 1, report.Unchanged)
		assert.Equal(t, 1, report.Conflicts())
		assert.Equal(t, before, cat.Entries())
	})

	t.Run("same batch name with new content refreshes in place", func(t *testing.T) {
		refreshed := batch
		refreshed.Fingerprint = "ffff0000"

		report, err := svc.PopulateCorrections(context.Background(), refreshed)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Added)
		assert.Equal(t, 1, report.Updated)
		assert.Equal(t, 4, cat.Len())

		e, ok := cat.Get(4)
		require.True(t, ok)
		assert.Contains(t, e.Comments, "ffff0000")
		assert.Equal(t, added.URL, e.URL)
	})

	t.Run("another batch claiming the url conflicts", func(t *testing.T) {
		other := archivist.CorrectionBatch{
			Name:        "fixes-2025",
			Fingerprint: "12345678",
			Corrections: []model.Correction{{OriginalSlug: "a", CorrectedSlug: "a-fixed"}},
		}
		report, err := svc.PopulateCorrections(context.Background(), other)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Conflicts())

		e, ok := cat.Get(4)
		require.True(t, ok)
		assert.Equal(t, "fixes-2024:a-fixed", e.SourceSlug)
	})
}
