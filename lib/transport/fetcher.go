// Package transport performs the GET requests issued by dynamic content
// areas.
//
// A Fetcher resolves a request path to a Response carrying the status, the
// final URL after redirects and the body text. Transport failures are
// returned as errors; HTTP-level failures are ordinary responses with a
// non-2xx status so that callers can apply their own retry policy.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"time"
)

// HeaderDynamicContent marks requests issued by a content area.
const HeaderDynamicContent = "X-Dynamic-Content"

// DefaultMaxBodySize bounds how much of a fragment is read.
const DefaultMaxBodySize = 8 << 20

var ErrBodyTooLarge = errors.New("transport: response body too large")

// Response is the outcome of a fetch that reached the server.
type Response struct {
	StatusCode int
	// URL is the final URL after redirects. Empty when the fetcher has no
	// notion of redirects.
	URL  string
	Body string
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher issues a GET for path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, path string) (*Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, path string) (*Response, error) {
	return f(ctx, path)
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient replaces the HTTP client. The client's jar, if any, is kept.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithMaxBodySize limits the number of body bytes read.
func WithMaxBodySize(n int64) Option {
	return func(f *HTTPFetcher) {
		f.maxBody = n
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(f *HTTPFetcher) {
		f.header.Add(key, value)
	}
}

// WithTimeout sets a per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// HTTPFetcher fetches paths relative to a base URL. Cookies set by the
// server are kept in a jar and sent back only to the same origin.
type HTTPFetcher struct {
	base    *url.URL
	client  *http.Client
	header  http.Header
	maxBody int64
	timeout time.Duration
}

// NewHTTPFetcher creates a fetcher rooted at base, which must be an
// absolute http or https URL.
func NewHTTPFetcher(base string, opts ...Option) (*HTTPFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("transport: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("transport: base url %q must be http or https", base)
	}

	f := &HTTPFetcher{
		base:    u,
		header:  make(http.Header),
		maxBody: DefaultMaxBodySize,
	}
	f.header.Set(HeaderDynamicContent, "true")
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		f.client = &http.Client{Jar: jar}
	}
	return f, nil
}

// Base returns the base URL.
func (f *HTTPFetcher) Base() *url.URL {
	u := *f.base
	return &u
}

// Fetch implements Fetcher. Absolute URLs pointing at another origin are
// rejected.
func (f *HTTPFetcher) Fetch(ctx context.Context, p string) (*Response, error) {
	ref, err := url.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("transport: parse path %q: %w", p, err)
	}
	target := f.base.ResolveReference(ref)
	if target.Host != f.base.Host || target.Scheme != f.base.Scheme {
		return nil, fmt.Errorf("transport: %s is not same-origin with %s", target, f.base)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range f.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBody)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.String(),
		Body:       string(body),
	}, nil
}

// FSFetcher serves paths from a file system, answering 404 for anything
// missing. Anything after the first ".html" (a request suffix) and the
// query string are ignored. It never redirects.
type FSFetcher struct {
	fsys fs.FS
}

// NewFSFetcher creates a fetcher backed by fsys.
func NewFSFetcher(fsys fs.FS) *FSFetcher {
	return &FSFetcher{fsys: fsys}
}

// Fetch implements Fetcher.
func (f *FSFetcher) Fetch(ctx context.Context, p string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("transport: parse path %q: %w", p, err)
	}

	name := u.Path
	if i := strings.Index(name, ".html"); i >= 0 {
		name = name[:i+len(".html")]
	}
	name = strings.TrimPrefix(path.Clean("/"+name), "/")

	data, err := fs.ReadFile(f.fsys, name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Response{StatusCode: http.StatusNotFound, URL: p}, nil
	case err != nil:
		// Directories and unreadable files.
		return &Response{StatusCode: http.StatusForbidden, URL: p}, nil
	}
	return &Response{StatusCode: http.StatusOK, URL: p, Body: string(data)}, nil
}
