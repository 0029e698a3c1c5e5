package hxdyn

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/pthm/hxdyn/lib/dom"
	"github.com/pthm/hxdyn/lib/transport"
)

// StubResponse is one scripted answer of a StubFetcher.
type StubResponse struct {
	Status int
	Body   string
	// URL is the final URL reported. Empty means the requested path.
	URL string
	// Err makes the fetch fail as a transport error.
	Err error
	// Wait, when set, blocks the fetch until it is closed or the request
	// context ends.
	Wait <-chan struct{}
}

// OKResponse answers 200 with body.
func OKResponse(body string) StubResponse {
	return StubResponse{Status: http.StatusOK, Body: body}
}

// StatusResponse answers code with an empty body.
func StatusResponse(code int) StubResponse {
	return StubResponse{Status: code}
}

// RedirectedResponse answers 200 with body as if the request had been
// redirected to url.
func RedirectedResponse(url, body string) StubResponse {
	return StubResponse{Status: http.StatusOK, URL: url, Body: body}
}

// TransportError fails the fetch with err.
func TransportError(err error) StubResponse {
	return StubResponse{Err: err}
}

// StubFetcher is a transport.Fetcher answering from a script.
//
// Responses are consumed in order; once the script runs out the last one
// is repeated. Routes set with Route take precedence for their path.
//
//	f := hxdyn.NewStubFetcher(
//	    hxdyn.StatusResponse(404),
//	    hxdyn.OKResponse("<p>hello</p>"),
//	)
//	area := hxdyn.NewContentArea(node, loop, f)
type StubFetcher struct {
	mu       sync.Mutex
	script   []StubResponse
	routes   map[string][]StubResponse
	requests []string
}

// NewStubFetcher creates a fetcher answering with responses in order.
func NewStubFetcher(responses ...StubResponse) *StubFetcher {
	return &StubFetcher{
		script: responses,
		routes: make(map[string][]StubResponse),
	}
}

// Route scripts the responses for a single request path.
func (f *StubFetcher) Route(path string, responses ...StubResponse) *StubFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = responses
	return f
}

// Fetch implements transport.Fetcher.
func (f *StubFetcher) Fetch(ctx context.Context, path string) (*transport.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, path)
	var r StubResponse
	if script, ok := f.routes[path]; ok {
		r = next(&script)
		f.routes[path] = script
	} else {
		r = next(&f.script)
	}
	f.mu.Unlock()

	if r.Wait != nil {
		select {
		case <-r.Wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}

	status := r.Status
	if status == 0 {
		status = http.StatusNotFound
	}
	url := r.URL
	if url == "" {
		url = path
	}
	return &transport.Response{StatusCode: status, URL: url, Body: r.Body}, nil
}

// next pops the head of script, keeping the final entry.
func next(script *[]StubResponse) StubResponse {
	s := *script
	switch len(s) {
	case 0:
		return StubResponse{Status: http.StatusNotFound}
	case 1:
		return s[0]
	}
	*script = s[1:]
	return s[0]
}

// Requests returns the requested paths in order.
func (f *StubFetcher) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// RequestCount returns the number of fetches made.
func (f *StubFetcher) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// EventRecorder collects events dispatched on a target.
type EventRecorder struct {
	target    dom.EventTarget
	listeners map[string]*dom.Listener
	events    []*dom.Event
}

// RecordEvents starts recording the given event types on target.
//
//	rec := hxdyn.RecordEvents(node, hxdyn.EventContentLoaded, hxdyn.EventContentFailed)
//	defer rec.Stop()
func RecordEvents(target dom.EventTarget, types ...string) *EventRecorder {
	r := &EventRecorder{
		target:    target,
		listeners: make(map[string]*dom.Listener, len(types)),
	}
	for _, typ := range types {
		l := dom.NewListener(func(e *dom.Event) {
			r.events = append(r.events, e)
		})
		r.listeners[typ] = l
		target.AddEventListener(typ, l)
	}
	return r
}

// Events returns the recorded events in dispatch order.
func (r *EventRecorder) Events() []*dom.Event {
	return append([]*dom.Event(nil), r.events...)
}

// Types returns the recorded event types in dispatch order.
func (r *EventRecorder) Types() []string {
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Count returns how many events of typ were recorded.
func (r *EventRecorder) Count(typ string) int {
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// HasEvent checks if an event of typ was recorded.
func (r *EventRecorder) HasEvent(typ string) bool {
	return r.Count(typ) > 0
}

// Last returns the most recent event of typ, or nil.
func (r *EventRecorder) Last(typ string) *dom.Event {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == typ {
			return r.events[i]
		}
	}
	return nil
}

// Reset forgets recorded events.
func (r *EventRecorder) Reset() {
	r.events = nil
}

// Stop detaches the recorder.
func (r *EventRecorder) Stop() {
	for typ, l := range r.listeners {
		r.target.RemoveEventListener(typ, l)
	}
	r.listeners = nil
}

// NewTestDocument parses markup, wrapping fragments in a body as the HTML
// parser does.
func NewTestDocument(markup string) (*dom.Document, error) {
	return dom.ParseString(strings.TrimSpace(markup))
}
