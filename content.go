package hxdyn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pthm/hxdyn/lib/dom"
	"github.com/pthm/hxdyn/lib/eventloop"
	"github.com/pthm/hxdyn/lib/transport"
)

// State is the visual state of a ContentArea.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateContent
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateContent:
		return "content"
	case StateError:
		return "error"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// ContentOption configures a ContentArea. Options take precedence over the
// node's data attributes.
type ContentOption func(*ContentArea)

// WithAllowedRetries sets how many times an unacceptable response is
// retried before the load fails.
func WithAllowedRetries(n int) ContentOption {
	return func(c *ContentArea) {
		c.allowedRetries = max(n, 0)
	}
}

// WithShowRedirects accepts responses whose final URL differs from the
// requested path.
func WithShowRedirects(on bool) ContentOption {
	return func(c *ContentArea) {
		c.showRedirects = on
	}
}

// WithPreventAutoLoad stops Register from starting a load.
func WithPreventAutoLoad(on bool) ContentOption {
	return func(c *ContentArea) {
		c.preventAutoLoad = on
	}
}

// WithSanitizer filters every fetched fragment through policy before it is
// inserted.
func WithSanitizer(policy *bluemonday.Policy) ContentOption {
	return func(c *ContentArea) {
		c.sanitizer = policy
	}
}

// WithLatestResponseOnly discards responses to all but the most recently
// issued load. Without it the last response to arrive wins.
func WithLatestResponseOnly() ContentOption {
	return func(c *ContentArea) {
		c.latestOnly = true
	}
}

// WithContentBus publishes ContentLoaded on bus after every successful
// load.
func WithContentBus(bus *Bus) ContentOption {
	return func(c *ContentArea) {
		c.bus = bus
	}
}

// WithContentLogger sets the logger. The default is slog.Default().
func WithContentLogger(l *slog.Logger) ContentOption {
	return func(c *ContentArea) {
		c.logger = l
	}
}

// WithContentMetrics records request outcomes, retries and failures.
func WithContentMetrics(m *Metrics) ContentOption {
	return func(c *ContentArea) {
		c.metrics = m
	}
}

// WithContext bounds every fetch by ctx. Destroy cancels it.
func WithContext(ctx context.Context) ContentOption {
	return func(c *ContentArea) {
		c.parentCtx = ctx
	}
}

// ContentArea is a component that fetches an HTML fragment into its
// content region.
//
// It expects the markup rendered by ContentAreaShell: a ".loader", a
// ".content-area" receiving the fragment and an optional ".error-area".
// Missing regions are ignored.
//
// A load moves the area to StateLoading and issues a GET for RequestPath
// through the Fetcher. The response is handled on the event loop:
//   - a transport error ends in StateError and EventContentFailed with no
//     retry;
//   - a non-2xx status, or a redirect when redirects are not shown, is
//     retried while the retry count stays within the allowed retries, then
//     ends in StateError with a single EventContentFailed;
//   - anything else replaces the content region, ends in StateContent and
//     dispatches EventContentLoaded on the node and on the bus.
//
// Retries are posted back to the loop, never run recursively.
type ContentArea struct {
	*Element

	loop    *eventloop.Loop
	fetcher transport.Fetcher
	bus     *Bus
	logger  *slog.Logger
	metrics *Metrics

	sanitizer *bluemonday.Policy
	parentCtx context.Context
	ctx       context.Context
	cancel    context.CancelFunc

	path            string
	suffix          string
	allowedRetries  int
	showRedirects   bool
	preventAutoLoad bool
	latestOnly      bool

	state      State
	retryCount int
	generation uint64
	loadID     string
	destroyed  bool
	epoch      uint64

	loader    *Element
	content   *Element
	errorArea *Element
}

// NewContentArea wraps node. Configuration is read from the data-path,
// data-suffix, data-show-redirect, data-prevent-load and
// data-allowed-error-retries attributes, then opts are applied.
func NewContentArea(node *dom.Node, loop *eventloop.Loop, fetcher transport.Fetcher, opts ...ContentOption) *ContentArea {
	c := &ContentArea{
		Element:        NewElement(node),
		loop:           loop,
		fetcher:        fetcher,
		logger:         slog.Default(),
		parentCtx:      context.Background(),
		allowedRetries: DefaultAllowedRetries,
	}
	c.SetParent(c)
	invalidRetries := c.readAttributes()
	for _, opt := range opts {
		opt(c)
	}
	if invalidRetries != "" {
		c.logger.Warn("ignoring invalid allowed retries", "value", invalidRetries)
	}
	c.ctx, c.cancel = context.WithCancel(c.parentCtx)

	if node != nil {
		c.loader = &Element{node: node.ChildWithClass(ClassLoader)}
		c.content = &Element{node: node.ChildWithClass(ClassContentArea)}
		c.errorArea = &Element{node: node.ChildWithClass(ClassErrorArea)}
	} else {
		c.loader, c.content, c.errorArea = &Element{}, &Element{}, &Element{}
	}
	return c
}

// ContentAreaType returns a Factory building content areas that share
// loop, fetcher and opts.
func ContentAreaType(loop *eventloop.Loop, fetcher transport.Fetcher, opts ...ContentOption) Factory {
	return func(node *dom.Node) Component {
		return NewContentArea(node, loop, fetcher, opts...)
	}
}

// readAttributes returns the raw data-allowed-error-retries value when it
// is not a non-negative integer.
func (c *ContentArea) readAttributes() (invalidRetries string) {
	n := c.Node()
	c.path, _ = n.Data(DataPath)
	c.suffix, _ = n.Data(DataSuffix)
	c.showRedirects = dataBool(n, DataShowRedirect)
	c.preventAutoLoad = dataBool(n, DataPreventLoad)

	if v, ok := n.Data(DataAllowedRetries); ok {
		if retries, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && retries >= 0 {
			c.allowedRetries = retries
		} else {
			invalidRetries = v
		}
	}
	return invalidRetries
}

// dataBool treats a present attribute as true unless it parses as false.
func dataBool(n *dom.Node, key string) bool {
	v, ok := n.Data(key)
	if !ok {
		return false
	}
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Path returns the configured base path.
func (c *ContentArea) Path() string { return c.path }

// Suffix returns the configured request suffix.
func (c *ContentArea) Suffix() string { return c.suffix }

// AllowedRetries returns the retry budget.
func (c *ContentArea) AllowedRetries() int { return c.allowedRetries }

// State returns the current state.
func (c *ContentArea) State() State { return c.state }

// RetryCount returns the number of unacceptable responses in the current
// load cycle.
func (c *ContentArea) RetryCount() int { return c.retryCount }

// IsLoading reports whether a load is in progress.
func (c *ContentArea) IsLoading() bool { return c.state == StateLoading }

// RequestPath resolves the URL to fetch: the base path, ".html" when the
// path does not contain it, then the suffix when it is set, is not the
// literal "undefined" and the path does not already carry a ".html/"
// suffix. It reports false when no path is configured.
func (c *ContentArea) RequestPath() (string, bool) {
	if c.path == "" {
		return "", false
	}
	p := c.path
	if !strings.Contains(p, ".html") {
		p += ".html"
	}
	if c.suffix != "" && c.suffix != "undefined" && !strings.Contains(c.path, ".html/") {
		p += c.suffix
	}
	return p, true
}

// Register starts the initial load unless auto-loading is prevented, then
// registers the element. It is a no-op once registered. Registering a
// destroyed area revives it with a fresh fetch context; responses to
// fetches issued before Destroy stay ignored.
func (c *ContentArea) Register() {
	if c.Node() == nil || c.IsRegistered() {
		return
	}
	if c.destroyed {
		c.destroyed = false
		c.retryCount = 0
		c.ctx, c.cancel = context.WithCancel(c.parentCtx)
	}
	if !c.preventAutoLoad {
		c.Load()
	}
	c.Element.Register()
}

// RegisterEventListeners adds the refresh listener to the defaults.
func (c *ContentArea) RegisterEventListeners() {
	c.Element.RegisterEventListeners()
	c.Listen(c.Node(), EventContentRefresh, func(*dom.Event) {
		c.Load()
	})
}

// Destroy cancels in-flight fetches, ignores their responses and removes
// the area's listeners.
func (c *ContentArea) Destroy() {
	c.destroyed = true
	c.epoch++
	c.cancel()
	c.Element.Destroy()
}

// UpdateContent stores a new path and suffix, mirrors them to the data
// attributes and loads.
func (c *ContentArea) UpdateContent(path, suffix string) {
	c.path, c.suffix = path, suffix
	n := c.Node()
	n.SetData(DataPath, path)
	if suffix == "" {
		n.RemoveData(DataSuffix)
	} else {
		n.SetData(DataSuffix, suffix)
	}
	c.Load()
}

// Refresh reloads the current path.
func (c *ContentArea) Refresh() {
	c.Load()
}

// Load starts a load cycle. It must run on the event loop; the response
// is handled there too.
func (c *ContentArea) Load() {
	n := c.Node()
	if n == nil || c.destroyed {
		return
	}
	if c.retryCount == 0 {
		c.loadID = uuid.NewString()
	}
	loadID := c.loadID

	c.setState(StateLoading)
	n.DispatchEvent(dom.NewEvent(EventContentLoading))
	c.clearContent()

	reqPath, ok := c.RequestPath()
	if !ok {
		c.logger.Warn("content area has no path", "load_id", loadID)
		c.retryCount = 0
		c.metrics.failed(ReasonNoPath)
		c.fail(FailedDetail{LoadID: loadID, Cause: ErrNoPath})
		return
	}

	c.generation++
	gen := c.generation
	attempt := c.retryCount + 1
	start := time.Now()
	c.logger.Debug("content load started", "load_id", loadID, "path", reqPath, "attempt", attempt)

	ctx, epoch := c.ctx, c.epoch
	eventloop.Go(c.loop, func() fetchResult {
		resp, err := c.fetcher.Fetch(ctx, reqPath)
		return fetchResult{resp: resp, err: err, epoch: epoch}
	}, func(r fetchResult) {
		c.handle(r, reqPath, gen, loadID, attempt, time.Since(start))
	})
}

type fetchResult struct {
	resp  *transport.Response
	err   error
	epoch uint64
}

func (c *ContentArea) handle(r fetchResult, reqPath string, gen uint64, loadID string, attempt int, d time.Duration) {
	if c.destroyed || r.epoch != c.epoch {
		return
	}
	log := c.logger.With("load_id", loadID, "path", reqPath, "attempt", attempt)

	if c.latestOnly && gen != c.generation {
		log.Debug("discarding stale response")
		c.metrics.request(OutcomeStale, d)
		return
	}

	if r.err != nil || r.resp == nil {
		err := r.err
		if err == nil {
			err = errors.New("no response")
		}
		c.retryCount = 0
		log.Error("content load failed", "error", err)
		c.metrics.request(OutcomeTransport, d)
		c.metrics.failed(ReasonTransport)
		c.fail(FailedDetail{
			Path:     reqPath,
			Attempts: attempt,
			LoadID:   loadID,
			Cause:    fmt.Errorf("%w: %w", ErrTransport, err),
		})
		return
	}

	if !c.acceptable(reqPath, r.resp) {
		c.metrics.request(OutcomeUnacceptable, d)
		c.retryCount++
		if c.retryCount <= c.allowedRetries {
			log.Warn("unacceptable response, retrying",
				"status", r.resp.StatusCode,
				"url", r.resp.URL,
				"retry", c.retryCount,
				"allowed", c.allowedRetries)
			c.metrics.retried()
			c.loop.Post(c.Load)
			return
		}

		c.retryCount = 0
		log.Error("content load failed", "status", r.resp.StatusCode, "url", r.resp.URL)
		c.metrics.failed(ReasonRetriesExhausted)
		c.fail(FailedDetail{
			Path:       reqPath,
			StatusCode: r.resp.StatusCode,
			Attempts:   attempt,
			LoadID:     loadID,
			Cause: fmt.Errorf("%w after %d attempts: %w (status %d)",
				ErrRetriesExhausted, attempt, ErrUnacceptableResponse, r.resp.StatusCode),
		})
		return
	}

	body := r.resp.Body
	if c.sanitizer != nil {
		body = c.sanitizer.Sanitize(body)
	}
	if err := c.content.Node().SetInnerHTML(body); err != nil {
		log.Error("content region rejected fragment", "error", err)
	}

	c.retryCount = 0
	c.metrics.request(OutcomeLoaded, d)
	c.setState(StateContent)
	log.Debug("content loaded", "status", r.resp.StatusCode, "bytes", len(body))

	c.bus.PublishContentLoaded(c.Node())
	c.Node().DispatchEvent(dom.NewCustomEvent(EventContentLoaded, LoadedDetail{
		Path:       reqPath,
		StatusCode: r.resp.StatusCode,
		LoadID:     loadID,
	}))
}

// acceptable reports whether resp may replace the content: a 2xx status
// and, unless redirects are shown, a final URL ending in the requested
// path.
func (c *ContentArea) acceptable(reqPath string, resp *transport.Response) bool {
	if !resp.OK() {
		return false
	}
	if c.showRedirects || resp.URL == "" {
		return true
	}
	if strings.HasSuffix(resp.URL, reqPath) {
		return true
	}
	// Fetchers report escaped URLs; paths may be configured unescaped.
	if u, err := url.Parse(resp.URL); err == nil {
		final := u.Path
		if u.RawQuery != "" {
			final += "?" + u.RawQuery
		}
		return strings.HasSuffix(final, reqPath)
	}
	return false
}

func (c *ContentArea) fail(detail FailedDetail) {
	c.setState(StateError)
	c.Node().DispatchEvent(dom.NewCustomEvent(EventContentFailed, detail))
}

// clearContent destroys registered components inside the content region
// and empties it.
func (c *ContentArea) clearContent() {
	region := c.content.Node()
	for _, d := range region.Descendants() {
		if isMarkedRegistered(d) {
			d.DispatchEvent(dom.NewEvent(EventDestroy))
		}
	}
	region.Clear()
}

func (c *ContentArea) setState(s State) {
	c.state = s
	switch s {
	case StateLoading:
		c.loader.Show()
		c.content.Hide()
		c.errorArea.Hide()
	case StateContent:
		c.loader.Hide()
		c.errorArea.Hide()
		c.content.Show()
	case StateError:
		c.loader.Hide()
		c.content.Hide()
		c.errorArea.Show()
	}
}
