package archivist_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/archive"
	"archivist/internal/archivist"
	"archivist/internal/model"
	"archivist/internal/testutil"
)

func TestExport(t *testing.T) {
	cat := testutil.NewTestCatalog(t)
	checked := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	add := func(e model.NewEntry, status int) {
		t.Helper()
		added, err := cat.Add(e)
		require.NoError(t, err)
		_, err = cat.Update(added.ID, model.StatusUpdate(status, checked))
		require.NoError(t, err)
	}
	add(model.NewEntry{URL: testRoot + "a.html", SourceSlug: "primary:a"}, http.StatusOK)
	add(model.NewEntry{URL: testRoot + "b.html", SourceSlug: "primary:b"}, http.StatusNotFound)
	add(model.NewEntry{URL: testRoot + "b2.html", SourceSlug: "fixes:b2", OriginalSlug: "primary:b"}, http.StatusOK)
	add(model.NewEntry{URL: testRoot + "c.html", SourceSlug: "primary:c"}, model.StatusTransportError)

	src := &stubSource{rows: []model.SourceRow{
		{Slug: "a", Values: map[string]string{"nummer": "10", "titel": "Alpha, part one"}},
		{Slug: "b", Values: map[string]string{"nummer": "20", "titel": "Beta"}},
		{Slug: "c", Values: map[string]string{"nummer": "30", "titel": "Gamma"}},
		{Slug: "d", Values: map[string]string{"nummer": "40", "titel": "Delta"}},
	}}

	svc := archivist.NewService(cat, archive.NewMemoryStore(), nil, archivist.NewNopLogger(), testutil.FixedClock(), archivist.Options{RootURL: testRoot})

	var out bytes.Buffer
	report, err := svc.Export(context.Background(), src, []string{"nummer", "titel"}, "nummer", &out)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 2, report.Matched)

	want := "nummer,text_id,titel\n" +
		"10,1,\"Alpha, part one\"\n" +
		"20,3,Beta\n"
	assert.Equal(t, want, out.String())
}

func TestExport_NoColumns(t *testing.T) {
	svc := archivist.NewService(testutil.NewTestCatalog(t), archive.NewMemoryStore(), nil, archivist.NewNopLogger(), testutil.FixedClock(), archivist.Options{})
	_, err := svc.Export(context.Background(), &stubSource{}, nil, "", &bytes.Buffer{})
	require.Error(t, err)
}

func TestLookup_PrefersPrimary(t *testing.T) {
	cat := testutil.NewTestCatalog(t)
	checked := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	for _, e := range []model.NewEntry{
		{URL: testRoot + "a.html", SourceSlug: "primary:a"},
		{URL: testRoot + "a2.html", SourceSlug: "fixes:a2", OriginalSlug: "primary:a"},
	} {
		added, err := cat.Add(e)
		require.NoError(t, err)
		_, err = cat.Update(added.ID, model.StatusUpdate(http.StatusOK, checked))
		require.NoError(t, err)
	}

	svc := archivist.NewService(cat, archive.NewMemoryStore(), nil, archivist.NewNopLogger(), testutil.FixedClock(), archivist.Options{})
	got, ok := svc.NewLookup().Find("a")
	require.True(t, ok)
	assert.Equal(t, 1, got.ID)

	_, ok = svc.NewLookup().Find("missing")
	assert.False(t, ok)
}
