package fragment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/a-h/templ"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/hxdyn/lib/encoding"
	"github.com/pthm/hxdyn/lib/transport"
)

func newEncoder(t *testing.T) *encoding.Encoder {
	t.Helper()
	enc, err := encoding.NewEncoder([]byte("fragment-test-key"))
	require.NoError(t, err)
	return enc
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleRoutes(t *testing.T) {
	srv := NewServer(newEncoder(t))
	var got Params
	srv.Handle("/content/site", func(_ context.Context, p Params) Result {
		got = p
		return OK(templ.Raw("<ul>tree</ul>"))
	})

	rec := get(t, srv.Handler(), "/content/site.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<ul>tree</ul>", rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Empty(t, got.Suffix)

	rec = get(t, srv.Handler(), "/content/site.html/node/42")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "node/42", got.Suffix)

	assert.Equal(t, []string{"/content/site.html"}, srv.Routes())
}

func TestHandleNormalisesPath(t *testing.T) {
	srv := NewServer(nil)
	srv.Handle("content/users.html/", func(context.Context, Params) Result {
		return OK(templ.Raw("users"))
	})

	rec := get(t, srv.Handler(), "/content/users.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "users", rec.Body.String())
}

func TestSignedParams(t *testing.T) {
	enc := newEncoder(t)
	for _, sensitive := range []bool{false, true} {
		opts := []Option{}
		if sensitive {
			opts = append(opts, WithSensitiveParams())
		}
		srv := NewServer(enc, opts...)
		var got Params
		srv.Handle("/content/user", func(_ context.Context, p Params) Result {
			got = p
			return OK(templ.Raw(p.Get("id")))
		})

		suffix, err := srv.Suffix(map[string]string{"id": "u-7"})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(suffix, "?p="))

		rec := get(t, srv.Handler(), "/content/user.html"+suffix)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u-7", rec.Body.String())
		assert.Equal(t, "u-7", got.Get("id"))
	}
}

func TestTamperedParamsRejected(t *testing.T) {
	srv := NewServer(newEncoder(t))
	called := false
	srv.Handle("/content/user", func(context.Context, Params) Result {
		called = true
		return OK(templ.Raw("x"))
	})

	rec := get(t, srv.Handler(), "/content/user.html?p=bm90LXNpZ25lZA.AAAAAAAAAAAAAAAAAAAAAA")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestEmptySuffix(t *testing.T) {
	s, err := EncodeSuffix(nil, nil, false)
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = EncodeSuffix(nil, map[string]string{"a": "b"}, false)
	assert.Error(t, err)
}

func TestResults(t *testing.T) {
	tests := []struct {
		name       string
		result     Result
		wantStatus int
		wantBody   string
		wantHeader [2]string
	}{
		{
			name:       "ok with status",
			result:     OK(templ.Raw("<p>accepted</p>")).Status(http.StatusAccepted),
			wantStatus: http.StatusAccepted,
			wantBody:   "<p>accepted</p>",
		},
		{
			name:       "header",
			result:     OK(templ.Raw("x")).Header("Cache-Control", "no-store"),
			wantStatus: http.StatusOK,
			wantBody:   "x",
			wantHeader: [2]string{"Cache-Control", "no-store"},
		},
		{
			name:       "not found",
			result:     NotFound(),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "error",
			result:     Err(errors.New("database down")),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "redirect",
			result:     Redirect("/login.html"),
			wantStatus: http.StatusSeeOther,
			wantHeader: [2]string{"Location", "/login.html"},
		},
		{
			name:       "nil component",
			result:     OK(nil),
			wantStatus: http.StatusOK,
			wantBody:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(nil)
			srv.Handle("/frag", func(context.Context, Params) Result { return tt.result })

			rec := get(t, srv.Handler(), "/frag.html")
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" || tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantHeader[0] != "" {
				assert.Equal(t, tt.wantHeader[1], rec.Header().Get(tt.wantHeader[0]))
			}
		})
	}
}

func TestCustomOnError(t *testing.T) {
	srv := NewServer(nil)
	srv.OnError = func(w http.ResponseWriter, _ *http.Request, err error) {
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, err.Error())
	}
	srv.Handle("/frag", func(context.Context, Params) Result {
		return Err(errors.New("boom"))
	})

	rec := get(t, srv.Handler(), "/frag.html")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "boom", rec.Body.String())
}

func TestStaticFallback(t *testing.T) {
	static := fstest.MapFS{
		"content/help.html": {Data: []byte("<p>help</p>")},
	}
	srv := NewServer(nil, WithStatic(static))
	srv.Handle("/content/site", func(context.Context, Params) Result {
		return OK(templ.Raw("dynamic"))
	})

	tests := []struct {
		target string
		status int
		body   string
	}{
		{"/content/help.html", http.StatusOK, "<p>help</p>"},
		{"/content/help.html/ignored-suffix", http.StatusOK, "<p>help</p>"},
		{"/content/site.html", http.StatusOK, "dynamic"},
		{"/content/missing.html", http.StatusNotFound, ""},
		{"/content/help", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, srv.Handler(), tt.target)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestNoStaticIsNotFound(t *testing.T) {
	srv := NewServer(nil)
	rec := get(t, srv.Handler(), "/anything.html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := NewServer(nil, WithMetrics(reg))
	srv.Handle("/frag", func(context.Context, Params) Result { return OK(templ.Raw("x")) })

	get(t, srv.Handler(), "/frag.html")
	get(t, srv.Handler(), "/frag.html/a")
	get(t, srv.Handler(), "/nope.html")

	assert.Equal(t, 2.0, testutil.ToFloat64(srv.metrics.requests.WithLabelValues("/frag.html", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.requests.WithLabelValues("static", "404")))
}

func TestIsDynamicRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x.html", nil)
	assert.False(t, IsDynamicRequest(req))

	req.Header.Set(transport.HeaderDynamicContent, "true")
	assert.True(t, IsDynamicRequest(req))
}

func TestFetchThroughTransport(t *testing.T) {
	srv := NewServer(newEncoder(t))
	srv.Handle("/content/site", func(_ context.Context, p Params) Result {
		if !IsDynamicRequest(p.Request) {
			return Err(errors.New("not dynamic"))
		}
		return OK(templ.Raw("<ul></ul>"))
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	f, err := transport.NewHTTPFetcher(ts.URL)
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), "/content/site.html")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "<ul></ul>", resp.Body)
}
