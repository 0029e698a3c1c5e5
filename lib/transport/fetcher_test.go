package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/content/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Saw-Header", r.Header.Get(HeaderDynamicContent))
		w.Write([]byte("<p>page</p>"))
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/whoami.html", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		if err != nil {
			http.Error(w, "anonymous", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(c.Value))
	})
	mux.HandleFunc("/moved.html", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login-form.html", http.StatusFound)
	})
	mux.HandleFunc("/login-form.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<form></form>"))
	})
	mux.HandleFunc("/big.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	})
	mux.HandleFunc("/slow.html", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcherFetch(t *testing.T) {
	srv := newServer(t)
	f, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), "/content/page.html")
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, "<p>page</p>", resp.Body)
	assert.True(t, strings.HasSuffix(resp.URL, "/content/page.html"))
}

func TestHTTPFetcherNotFoundIsResponse(t *testing.T) {
	srv := newServer(t)
	f, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), "/missing.html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.OK())
}

func TestHTTPFetcherReportsFinalURL(t *testing.T) {
	srv := newServer(t)
	f, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), "/moved.html")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.True(t, strings.HasSuffix(resp.URL, "/login-form.html"), resp.URL)
}

func TestHTTPFetcherKeepsCookies(t *testing.T) {
	srv := newServer(t)
	f, err := NewHTTPFetcher(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := f.Fetch(ctx, "/whoami.html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err = f.Fetch(ctx, "/login")
	require.NoError(t, err)

	resp, err = f.Fetch(ctx, "/whoami.html")
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Body)
}

func TestHTTPFetcherSendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(srv.URL, WithHeader("X-Tenant", "acme"))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "/x.html")
	require.NoError(t, err)
	assert.Equal(t, "true", got.Get(HeaderDynamicContent))
	assert.Equal(t, "acme", got.Get("X-Tenant"))
}

func TestHTTPFetcherBodyLimit(t *testing.T) {
	srv := newServer(t)
	f, err := NewHTTPFetcher(srv.URL, WithMaxBodySize(16))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "/big.html")
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestHTTPFetcherTimeout(t *testing.T) {
	srv := newServer(t)
	f, err := NewHTTPFetcher(srv.URL, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "/slow.html")
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestHTTPFetcherRejectsCrossOrigin(t *testing.T) {
	f, err := NewHTTPFetcher("http://admin.example.com/")
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "https://evil.example.com/x.html")
	assert.Error(t, err)
}

func TestNewHTTPFetcherValidatesBase(t *testing.T) {
	_, err := NewHTTPFetcher("ftp://example.com")
	assert.Error(t, err)
	_, err = NewHTTPFetcher("relative/path")
	assert.Error(t, err)
}

func TestFSFetcher(t *testing.T) {
	fsys := fstest.MapFS{
		"content/site.html": {Data: []byte("<ul></ul>")},
	}
	f := NewFSFetcher(fsys)
	ctx := context.Background()

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/content/site.html", http.StatusOK, "<ul></ul>"},
		{"/content/site.html/42", http.StatusOK, "<ul></ul>"},
		{"/content/site.html?p=token", http.StatusOK, "<ul></ul>"},
		{"/content/missing.html", http.StatusNotFound, ""},
		{"/content", http.StatusForbidden, ""},
		{"/../content/site.html", http.StatusOK, "<ul></ul>"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := f.Fetch(ctx, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.body, resp.Body)
			assert.Equal(t, tt.path, resp.URL)
		})
	}
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(_ context.Context, p string) (*Response, error) {
		return &Response{StatusCode: http.StatusTeapot, URL: p}, nil
	})
	resp, err := f.Fetch(context.Background(), "/x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.False(t, resp.OK())

	var nilResp *Response
	assert.False(t, nilResp.OK())
}
