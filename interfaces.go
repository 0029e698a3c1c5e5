package hxdyn

import "github.com/pthm/hxdyn/lib/dom"

// Component is a behaviour bound to exactly one node.
//
// Types implement it by embedding *Element and calling SetParent with
// themselves, so that hooks they override are used by Register and by the
// component-destroy listener:
//
//	type Tabs struct {
//	    *hxdyn.Element
//	    panels []*hxdyn.Element
//	}
//
//	func NewTabs(node *dom.Node) hxdyn.Component {
//	    t := &Tabs{Element: hxdyn.NewElement(node)}
//	    t.SetParent(t)
//	    return t
//	}
type Component interface {
	Node() *dom.Node
	Register()
	Destroy()
	IsRegistered() bool
}

// ListenerRegistrar is implemented by components that attach listeners on
// registration. Element provides the default, which binds the show, hide,
// enable and disable events.
//
// Overrides should call the embedded Element's method first and attach
// listeners through Listen so that Destroy can remove them:
//
//	func (t *Tabs) RegisterEventListeners() {
//	    t.Element.RegisterEventListeners()
//	    t.Listen(t.Node(), "tab-select", t.onSelect)
//	}
type ListenerRegistrar interface {
	RegisterEventListeners()
}

// DependencyProvider is implemented by components whose readiness waits for
// other components. EventReady is dispatched once every dependent is ready.
type DependencyProvider interface {
	DependentComponents() []Component
}

// Factory builds a component for a node matched by a Registry binding.
type Factory func(node *dom.Node) Component
