package hxdyn

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm/hxdyn/lib/dom"
	"github.com/pthm/hxdyn/lib/specificity"
)

// Binding pairs a selector with the factory for nodes it matches.
type Binding struct {
	Selector string
	// Name labels the component type in debug attributes, logs and
	// metrics.
	Name    string
	Factory Factory
	score   specificity.Score
}

// Specificity returns the binding's selector score.
func (b Binding) Specificity() specificity.Score {
	return b.score
}

// Option configures a Registry.
type Option func(*Registry)

// WithDebug records the bound type name on each node as
// data-registered-as.
func WithDebug() Option {
	return func(reg *Registry) {
		reg.debug = true
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(reg *Registry) {
		reg.logger = l
	}
}

// WithMetrics counts registrations by type.
func WithMetrics(m *Metrics) Option {
	return func(reg *Registry) {
		reg.metrics = m
	}
}

// WithBus rescans the payload element of every EventContentLoaded
// published on bus.
func WithBus(bus *Bus) Option {
	return func(reg *Registry) {
		reg.bus = bus
	}
}

// Registry binds nodes to component types.
//
// Bindings are kept sorted by descending selector specificity, ties in
// registration order. A scan walks them in that order and skips nodes that
// are already registered, so a node matching several selectors is bound to
// the most specific one only.
//
//	reg := hxdyn.NewRegistry(hxdyn.WithBus(bus))
//	reg.RegisterType(".tabs", "Tabs", NewTabs)
//	reg.RegisterType(hxdyn.SelectorDynamicContentArea, "ContentArea",
//	    hxdyn.ContentAreaType(loop, fetcher, hxdyn.WithContentBus(bus)))
//	err := reg.Scan(doc.Root())
//
// There is no way to remove a binding.
type Registry struct {
	bindings    []Binding
	debug       bool
	logger      *slog.Logger
	metrics     *Metrics
	bus         *Bus
	busListener *dom.Listener
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	reg := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(reg)
	}

	if reg.bus != nil {
		reg.busListener = reg.bus.OnContentLoaded(func(c ContentLoaded) {
			if err := reg.Scan(c.Element); err != nil {
				reg.logger.Error("rescan after content load failed", "error", err)
			}
		})
	}
	return reg
}

// RegisterType adds a binding and re-sorts. An empty name defaults to the
// selector.
func (reg *Registry) RegisterType(selector, name string, factory Factory) {
	if name == "" {
		name = selector
	}
	reg.bindings = append(reg.bindings, Binding{
		Selector: selector,
		Name:     name,
		Factory:  factory,
		score:    specificity.Of(selector),
	})
	specificity.Sort(reg.bindings, Binding.Specificity)
}

// Bindings returns the bindings in scan order.
func (reg *Registry) Bindings() []Binding {
	return append([]Binding(nil), reg.bindings...)
}

// Scan binds every unregistered descendant of root that matches a
// binding. A nil root is a no-op. Selectors that fail to parse, the empty
// selector included, are skipped and reported together, wrapped in
// ErrInvalidSelector; the remaining bindings still run.
func (reg *Registry) Scan(root *dom.Node) error {
	if root == nil {
		return nil
	}

	var errs []error
	for _, b := range reg.bindings {
		if b.Factory == nil {
			continue
		}
		nodes, err := root.QuerySelectorAll(b.Selector)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %w", ErrInvalidSelector, b.Selector, err))
			continue
		}

		for _, n := range nodes {
			// Earlier registrations in this pass may have registered or
			// replaced the node.
			if isMarkedRegistered(n) || !within(root, n) {
				continue
			}
			reg.bind(b, n)
		}
	}
	return errors.Join(errs...)
}

func (reg *Registry) bind(b Binding, n *dom.Node) {
	c := b.Factory(n)
	if c == nil {
		return
	}
	c.Register()
	if !isMarkedRegistered(n) {
		n.SetData(DataRegistered, "true")
	}
	if reg.debug {
		n.SetData(DataRegisteredAs, b.Name)
	}

	reg.metrics.registered(b.Name)
	reg.logger.Debug("component registered", "type", b.Name, "selector", b.Selector, "tag", n.Tag())
}

// Close stops listening on the bus.
func (reg *Registry) Close() {
	if reg.busListener != nil {
		reg.bus.RemoveEventListener(EventContentLoaded, reg.busListener)
		reg.busListener = nil
	}
}

func isMarkedRegistered(n *dom.Node) bool {
	v, _ := n.Data(DataRegistered)
	return v != ""
}

func within(root, n *dom.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p == root {
			return true
		}
	}
	return false
}
