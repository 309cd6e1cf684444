package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"archivist/internal/archivist"
)

// Call is one request seen by a ScriptedFetcher.
type Call struct {
	Method string
	URL    string
}

// Reply is a scripted answer. A non-nil Err simulates a transport failure.
type Reply struct {
	Status int
	ETag   string
	Body   string
	Err    error
}

// ScriptedFetcher answers HEAD and GET requests from per-URL scripts and
// records every call. Unscripted URLs answer 404.
type ScriptedFetcher struct {
	mu    sync.Mutex
	head  map[string]Reply
	get   map[string]Reply
	calls []Call

	// OnRequest runs before each reply, e.g. to cancel a context mid-pass.
	OnRequest func(Call)
}

func NewScriptedFetcher() *ScriptedFetcher {
	return &ScriptedFetcher{
		head: make(map[string]Reply),
		get:  make(map[string]Reply),
	}
}

// OnHead scripts the HEAD reply for url.
func (f *ScriptedFetcher) OnHead(url string, r Reply) *ScriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head[url] = r
	return f
}

// OnGet scripts the GET reply for url.
func (f *ScriptedFetcher) OnGet(url string, r Reply) *ScriptedFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.get[url] = r
	return f
}

// Serve scripts a 200 document for url, answering HEAD with the same ETag.
func (f *ScriptedFetcher) Serve(url, etag, body string) *ScriptedFetcher {
	f.OnHead(url, Reply{Status: http.StatusOK, ETag: etag})
	return f.OnGet(url, Reply{Status: http.StatusOK, ETag: etag, Body: body})
}

// Calls returns a copy of the recorded calls in order.
func (f *ScriptedFetcher) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls for one URL.
func (f *ScriptedFetcher) CallsTo(url string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.URL == url {
			out = append(out, c)
		}
	}
	return out
}

func (f *ScriptedFetcher) Head(ctx context.Context, url string) (*archivist.Response, error) {
	return f.reply(ctx, http.MethodHead, url)
}

func (f *ScriptedFetcher) Get(ctx context.Context, url string) (*archivist.Response, error) {
	return f.reply(ctx, http.MethodGet, url)
}

func (f *ScriptedFetcher) reply(ctx context.Context, method, url string) (*archivist.Response, error) {
	call := Call{Method: method, URL: url}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	script := f.get
	if method == http.MethodHead {
		script = f.head
	}
	r, ok := script[url]
	hook := f.OnRequest
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, url, archivist.ErrTransport, err)
	}
	if !ok {
		r = Reply{Status: http.StatusNotFound}
	}
	if r.Err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, url, archivist.ErrTransport, r.Err)
	}

	resp := &archivist.Response{StatusCode: r.Status, ETag: r.ETag, ContentLength: -1}
	if method == http.MethodGet {
		resp.Body = []byte(r.Body)
	}
	return resp, nil
}

var _ archivist.Fetcher = (*ScriptedFetcher)(nil)
