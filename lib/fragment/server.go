// Package fragment serves the HTML fragments that dynamic content areas
// load.
//
// A fragment registered at "/content/site" answers "/content/site.html",
// "/content/site.html/<suffix>" and either form with a signed "p" query
// parameter carrying Params. Anything not registered can fall back to a
// directory of static ".html" files.
//
//	enc, _ := encoding.NewEncoder(key)
//	srv := fragment.NewServer(enc, fragment.WithStatic(os.DirFS("fragments")))
//	srv.Handle("/content/site", func(ctx context.Context, p fragment.Params) fragment.Result {
//	    return fragment.OK(siteTree(p.Get("root")))
//	})
//	http.ListenAndServe(":8080", srv.Handler())
package fragment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pthm/hxdyn/lib/encoding"
	"github.com/pthm/hxdyn/lib/transport"
)

// ParamKey is the query parameter holding the encoded Params.
const ParamKey = "p"

// Extension is appended to every fragment route.
const Extension = ".html"

var (
	ErrNotFound      = errors.New("fragment: not found")
	ErrInvalidParams = errors.New("fragment: invalid parameters")
)

// Params are the values a content area passes to a fragment.
type Params struct {
	// Values decoded from the signed query parameter.
	Values map[string]string
	// Suffix is whatever followed "<path>.html/" in the request path.
	Suffix  string
	Request *http.Request
}

// Get returns the named value, or "".
func (p Params) Get(key string) string {
	return p.Values[key]
}

// HandlerFunc produces a fragment.
type HandlerFunc func(ctx context.Context, p Params) Result

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithStatic serves files from fsys for paths that no handler claims.
func WithStatic(fsys fs.FS) Option {
	return func(s *Server) {
		s.static = fsys
	}
}

// WithSensitiveParams encrypts Params instead of only signing them.
func WithSensitiveParams() Option {
	return func(s *Server) {
		s.sensitive = true
	}
}

// WithMetrics records request counts and durations.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.metrics = newMetrics(reg)
	}
}

// Server routes fragment requests.
type Server struct {
	router    chi.Router
	encoder   *encoding.Encoder
	logger    *slog.Logger
	static    fs.FS
	sensitive bool
	metrics   *metrics
	routes    []string

	// OnError is called when a handler returns an error or the request
	// parameters cannot be decoded.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// NewServer creates a server. enc may be nil when no handler uses Params.
func NewServer(enc *encoding.Encoder, opts ...Option) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		encoder: enc,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "Not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidParams):
			http.Error(w, "Bad request", http.StatusBadRequest)
		default:
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
	}

	s.router.NotFound(s.serveStatic)
	return s
}

// Handle registers h for the fragment at p. p must not end in ".html".
func (s *Server) Handle(p string, h HandlerFunc) {
	p = "/" + strings.TrimSuffix(strings.Trim(p, "/"), Extension)
	route := p + Extension

	serve := func(w http.ResponseWriter, r *http.Request) {
		s.serve(w, r, route, h)
	}
	s.router.Get(route, serve)
	s.router.Get(route+"/*", serve)
	s.routes = append(s.routes, route)
}

// Routes returns the registered fragment routes.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// Handler returns the HTTP handler for fragment routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Suffix encodes values into a request suffix ("?p=<token>") suitable for
// a content area's data-suffix attribute.
func (s *Server) Suffix(values map[string]string) (string, error) {
	return EncodeSuffix(s.encoder, values, s.sensitive)
}

// EncodeSuffix encodes values with enc into "?p=<token>". Empty values
// produce an empty suffix.
func EncodeSuffix(enc *encoding.Encoder, values map[string]string, sensitive bool) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	if enc == nil {
		return "", errors.New("fragment: no encoder configured")
	}
	token, err := enc.Encode(values, sensitive)
	if err != nil {
		return "", err
	}
	return "?" + ParamKey + "=" + url.QueryEscape(token), nil
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, route string, h HandlerFunc) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		s.metrics.observe(route, rec.status, time.Since(start))
		s.logger.Debug("fragment served",
			"route", route,
			"path", r.URL.Path,
			"status", rec.status,
			"dynamic", IsDynamicRequest(r),
			"duration", time.Since(start))
	}()

	params, err := s.decodeParams(r)
	if err != nil {
		s.logger.Warn("fragment params rejected", "route", route, "error", err)
		s.OnError(rec, r, err)
		return
	}

	result := h(r.Context(), params)
	if err := s.writeResult(rec, r, result); err != nil {
		s.logger.Error("fragment failed", "route", route, "error", err)
	}
}

func (s *Server) decodeParams(r *http.Request) (Params, error) {
	p := Params{
		Suffix:  chi.URLParam(r, "*"),
		Request: r,
	}

	token := r.URL.Query().Get(ParamKey)
	if token == "" {
		return p, nil
	}
	if s.encoder == nil {
		return p, fmt.Errorf("%w: no encoder configured", ErrInvalidParams)
	}
	if err := s.encoder.Decode(token, s.sensitive, &p.Values); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return p, nil
}

// writeResult applies result to w. Errors are routed through OnError and
// returned for logging.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, result Result) error {
	for k, v := range result.GetHeaders() {
		w.Header().Set(k, v)
	}

	if err := result.GetErr(); err != nil {
		s.OnError(w, r, err)
		return err
	}
	if u := result.GetRedirect(); u != "" {
		http.Redirect(w, r, u, http.StatusSeeOther)
		return nil
	}

	component := result.GetComponent()
	if component == nil {
		component = templ.NopComponent
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status := result.GetStatus(); status != 0 {
		w.WriteHeader(status)
	}
	return component.Render(r.Context(), w)
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		s.metrics.observe("static", rec.status, time.Since(start))
	}()

	if s.static == nil || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		s.OnError(rec, r, ErrNotFound)
		return
	}

	name := r.URL.Path
	i := strings.Index(name, Extension)
	if i < 0 {
		s.OnError(rec, r, ErrNotFound)
		return
	}
	name = strings.TrimPrefix(path.Clean("/"+name[:i+len(Extension)]), "/")

	data, err := fs.ReadFile(s.static, name)
	if err != nil {
		s.OnError(rec, r, fmt.Errorf("%w: %s", ErrNotFound, name))
		return
	}
	rec.Header().Set("Content-Type", "text/html; charset=utf-8")
	rec.Write(data)
}

// Render writes a templ component as an HTML response.
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsDynamicRequest reports whether r was issued by a content area.
func IsDynamicRequest(r *http.Request) bool {
	return r.Header.Get(transport.HeaderDynamicContent) == "true"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
