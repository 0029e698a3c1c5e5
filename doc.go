// Package hxdyn binds behaviour to server-rendered HTML and loads HTML
// fragments into it, headlessly.
//
// A page is parsed into a dom.Document. A Registry maps CSS selectors to
// component factories and binds every matching node to exactly one
// component. Content areas fetch fragments from a server, swap them in and
// announce the new subtree so the registry can bind it in turn.
//
// # Components
//
// Components embed *Element and call SetParent with themselves so that
// overridden hooks are used:
//
//	type Counter struct {
//	    *hxdyn.Element
//	}
//
//	func NewCounter(node *dom.Node) hxdyn.Component {
//	    c := &Counter{Element: hxdyn.NewElement(node)}
//	    c.SetParent(c)
//	    return c
//	}
//
//	func (c *Counter) RegisterEventListeners() {
//	    c.Element.RegisterEventListeners()
//	    c.Listen(c.Node(), "counter-increment", c.increment)
//	}
//
// Register is idempotent and persists a data-registered marker on the
// node. Listeners attached through Listen are tracked per component and
// removed by Destroy, which also runs when the node receives
// component-destroy. A component implementing DependencyProvider becomes
// ready, dispatching component-ready once, after all of its dependents
// are ready, in whatever order they get there.
//
// # Registry
//
// Bindings are ordered by selector specificity, most specific first, with
// ties kept in registration order. A node matching several selectors is
// bound to the first binding that matches it; scanning again never
// rebinds a node.
//
//	reg := hxdyn.NewRegistry(hxdyn.WithBus(bus), hxdyn.WithDebug())
//	reg.RegisterType(".counter", "Counter", NewCounter)
//	reg.RegisterType(".counter.large", "LargeCounter", NewLargeCounter)
//
// # Dynamic Content
//
// A ContentArea is bound to the markup rendered by ContentAreaShell. It
// requests data-path plus ".html" plus data-suffix, shows its loader while
// the request runs and either swaps in the fragment or, after the allowed
// number of retries, shows its error region and dispatches
// dynamic-content-failed once. Redirected responses count as failures
// unless data-show-redirect is set.
//
// Fetches run off the event loop and their results are handled on it:
//
//	loop := eventloop.New()
//	fetcher, _ := transport.NewHTTPFetcher("https://app.example.com")
//	reg.RegisterType(hxdyn.SelectorDynamicContentArea, "ContentArea",
//	    hxdyn.ContentAreaType(loop, fetcher, hxdyn.WithContentBus(bus)))
//	_ = reg.Scan(doc.Root())
//	loop.Flush()
//
// The fragment package serves the other side of the exchange, including
// signed or encrypted parameters produced by SuffixParams.
package hxdyn
