package archivist

import "context"

// Response is the part of an HTTP response the sync engine needs.
type Response struct {
	StatusCode    int
	ETag          string
	LastModified  string
	ContentLength int64 // -1 if the server did not report one
	Body          []byte
}

// Success returns true for 2xx statuses.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher performs network requests. Errors returned by either method mean no
// response was received and wrap ErrTransport; non-success statuses are
// reported through Response.StatusCode.
type Fetcher interface {
	// Head issues a metadata-only request.
	Head(ctx context.Context, url string) (*Response, error)

	// Get retrieves the full document.
	Get(ctx context.Context, url string) (*Response, error)
}
