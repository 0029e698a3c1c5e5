package fragment

import "github.com/a-h/templ"

// Result is returned from fragment handlers to control the response.
//
// Handlers describe what should be sent back instead of writing to the
// ResponseWriter themselves. The server applies headers and status, then
// renders the component.
//
//	// Render the fragment
//	return fragment.OK(siteTree(nodes))
//
//	// Render with a non-default status
//	return fragment.OK(emptyState()).Status(http.StatusAccepted)
//
//	// Let OnError decide what to send
//	return fragment.Err(err)
//
//	// Send the client somewhere else. Content areas that do not allow
//	// redirects treat this as a failed load and retry.
//	return fragment.Redirect("/login.html")
type Result struct {
	component templ.Component
	err       error
	redirect  string
	headers   map[string]string
	status    int
}

// OK creates a success result that renders component.
func OK(component templ.Component) Result {
	return Result{component: component}
}

// Err creates a result that is passed to the server's OnError handler.
func Err(err error) Result {
	return Result{err: err}
}

// NotFound is shorthand for Err(ErrNotFound).
func NotFound() Result {
	return Result{err: ErrNotFound}
}

// Redirect creates a 303 See Other result.
func Redirect(url string) Result {
	return Result{redirect: url}
}

// Header sets a response header.
//
//	return fragment.OK(view).Header("Cache-Control", "no-store")
func (r Result) Header(key, value string) Result {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

// Status sets the HTTP status code. The default is 200.
//
// A non-2xx status makes the requesting content area count the load as
// failed even though a body is rendered.
func (r Result) Status(code int) Result {
	r.status = code
	return r
}

// GetComponent returns the component to render.
func (r Result) GetComponent() templ.Component {
	return r.component
}

// GetErr returns the error from the result.
func (r Result) GetErr() error {
	return r.err
}

// GetRedirect returns the redirect URL.
func (r Result) GetRedirect() string {
	return r.redirect
}

// GetHeaders returns the response headers.
func (r Result) GetHeaders() map[string]string {
	return r.headers
}

// GetStatus returns the HTTP status code (0 means not set, use default 200).
func (r Result) GetStatus() int {
	return r.status
}
