// Package fetch implements archivist.Fetcher over net/http.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"archivist/internal/archivist"
)

// Options configures an HTTPFetcher.
type Options struct {
	UserAgent string
	// RequestsPerSecond limits the request rate. Zero or less means unlimited.
	RequestsPerSecond float64
	Burst             int
	// Timeout bounds a whole request including the body. Zero leaves the client default.
	Timeout time.Duration
	// Client overrides the HTTP client, e.g. in tests.
	Client *http.Client
}

// HTTPFetcher issues HEAD and GET requests with a shared politeness limiter.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New creates an HTTPFetcher.
func New(opts Options) *HTTPFetcher {
	limit := rate.Limit(opts.RequestsPerSecond)
	if opts.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPFetcher{
		client:    client,
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: opts.UserAgent,
	}
}

// Head issues a HEAD request. The response has no body.
func (f *HTTPFetcher) Head(ctx context.Context, url string) (*archivist.Response, error) {
	return f.do(ctx, http.MethodHead, url)
}

// Get issues a GET request and reads the whole body.
func (f *HTTPFetcher) Get(ctx context.Context, url string) (*archivist.Response, error) {
	return f.do(ctx, http.MethodGet, url)
}

func (f *HTTPFetcher) do(ctx context.Context, method, url string) (*archivist.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w: %w", archivist.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w: %w", method, archivist.ErrTransport, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, url, archivist.ErrTransport, err)
	}
	defer resp.Body.Close()

	out := &archivist.Response{
		StatusCode:    resp.StatusCode,
		ETag:          resp.Header.Get("ETag"),
		LastModified:  resp.Header.Get("Last-Modified"),
		ContentLength: resp.ContentLength,
	}
	if method == http.MethodHead {
		return out, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w: %w", url, archivist.ErrTransport, err)
	}
	out.Body = body
	return out, nil
}

// Compile-time check that HTTPFetcher implements archivist.Fetcher
var _ archivist.Fetcher = (*HTTPFetcher)(nil)
