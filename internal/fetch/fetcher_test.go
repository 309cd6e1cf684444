package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/archivist"
)

func TestHTTPFetcher_Get(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 15 Jan 2024 09:00:00 GMT")
		fmt.Fprint(w, "<html>body</html>")
	}))
	defer srv.Close()

	f := New(Options{UserAgent: "archivist-test"})
	resp, err := f.Get(t.Context(), srv.URL+"/a.html")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"v1"`, resp.ETag)
	assert.Equal(t, "Mon, 15 Jan 2024 09:00:00 GMT", resp.LastModified)
	assert.Equal(t, int64(len("<html>body</html>")), resp.ContentLength)
	assert.Equal(t, "<html>body</html>", string(resp.Body))
	assert.True(t, resp.Success())
	assert.Equal(t, "archivist-test", gotUA)
}

func TestHTTPFetcher_Head(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Header().Set("ETag", `"v2"`)
	}))
	defer srv.Close()

	resp, err := New(Options{}).Head(t.Context(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.MethodHead, method)
	assert.Equal(t, `"v2"`, resp.ETag)
	assert.Nil(t, resp.Body)
}

func TestHTTPFetcher_NonSuccessIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	resp, err := New(Options{}).Get(t.Context(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.Success())
}

func TestHTTPFetcher_TransportErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(Options{}).Get(t.Context(), url)
		require.ErrorIs(t, err, archivist.ErrTransport)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		_, err := New(Options{Timeout: 50 * time.Millisecond}).Get(t.Context(), srv.URL)
		require.ErrorIs(t, err, archivist.ErrTransport)
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := New(Options{}).Get(ctx, srv.URL)
		require.ErrorIs(t, err, archivist.ErrTransport)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestHTTPFetcher_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := New(Options{RequestsPerSecond: 20, Burst: 1})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.Head(t.Context(), srv.URL)
		require.NoError(t, err)
	}
	// Three requests at 20/s with a burst of one need at least two intervals.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
