// Package hxdynecho provides Echo framework integration for hxdyn fragment
// servers.
//
// Mount a fragment server onto an Echo instance or group:
//
//	e := echo.New()
//	srv := hxdynecho.Mount(e)
//	srv.Handle("/content/site", siteFragment)
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	srv := hxdynecho.MountGroup(g, hxdynecho.WithPath("/fragments/"))
//	srv.Handle("/content/site", siteFragment)
package hxdynecho

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxdyn"
	"github.com/pthm/hxdyn/lib/fragment"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key      []byte
	path     string
	fragment []fragment.Option
}

// WithKey sets the key for fragment parameters.
// The key should be at least 32 bytes of cryptographically random data.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithPath sets the URL path prefix for fragment routes.
// Defaults to "/".
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithServerOptions passes options through to fragment.NewServer.
func WithServerOptions(opts ...fragment.Option) Option {
	return func(o *options) {
		o.fragment = append(o.fragment, opts...)
	}
}

// Mount creates a fragment server and mounts it on an Echo instance.
//
//	e := echo.New()
//	srv := hxdynecho.Mount(e)
//	srv.Handle("/content/site", siteFragment)
//
//	// With options:
//	srv := hxdynecho.Mount(e, hxdynecho.WithKey(key))
func Mount(e *echo.Echo, opts ...Option) *fragment.Server {
	m := newMounted(opts)
	e.Any(m.path+"*", m.handler())
	return m.Server
}

// MountGroup creates a fragment server and mounts it on an Echo group.
// This allows fragments to share middleware with the group (auth, logging, etc.).
//
//	g := e.Group("/app", authMiddleware)
//	srv := hxdynecho.MountGroup(g)
//	srv.Handle("/content/site", siteFragment)
func MountGroup(g *echo.Group, opts ...Option) *fragment.Server {
	m := newMounted(opts)
	g.Any(m.path+"*", m.handler())
	return m.Server
}

type mountedServer struct {
	*fragment.Server
	path string
}

func newMounted(opts []Option) *mountedServer {
	o := &options{path: "/"}
	for _, opt := range opts {
		opt(o)
	}
	if !strings.HasSuffix(o.path, "/") {
		o.path += "/"
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("hxdynecho: failed to generate random key: %v", err))
		}
	}

	enc, err := hxdyn.NewEncoder(key)
	if err != nil {
		panic(fmt.Sprintf("hxdynecho: failed to create encoder: %v", err))
	}

	return &mountedServer{
		Server: fragment.NewServer(enc, o.fragment...),
		path:   o.path,
	}
}

// handler rewrites the request path to what follows the mount path, so
// fragment routes stay relative to it wherever the server is mounted.
func (m *mountedServer) handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		r2 := req.Clone(req.Context())
		r2.URL.Path = "/" + c.Param("*")
		r2.URL.RawPath = ""
		m.Server.Handler().ServeHTTP(c.Response(), r2)
		return nil
	}
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxdynecho.Render(c, page())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}

// RenderShell writes the markup of a dynamic content area.
//
//	return hxdynecho.RenderShell(c, hxdyn.ShellOptions{Path: "/content/site"})
func RenderShell(c echo.Context, opts hxdyn.ShellOptions) error {
	return Render(c, hxdyn.ContentAreaShell(opts))
}

// IsDynamicRequest reports whether the request was issued by a content
// area.
func IsDynamicRequest(c echo.Context) bool {
	return fragment.IsDynamicRequest(c.Request())
}
