package hxdyn

import "github.com/pthm/hxdyn/lib/dom"

// Element is the base type embedded by components.
//
// It wraps a single node and provides visibility and enable/disable
// toggles, idempotent registration with a readiness barrier, and tracked
// listeners that Destroy removes. Every method is safe to call on an
// Element whose node is nil; they do nothing.
//
//	type Badge struct {
//	    *hxdyn.Element
//	}
//
//	func NewBadge(node *dom.Node) hxdyn.Component {
//	    b := &Badge{Element: hxdyn.NewElement(node)}
//	    b.SetParent(b)
//	    return b
//	}
//
// The node is shared with the document; an Element is a behaviour attached
// to it and never removes it.
type Element struct {
	node        *dom.Node
	listeners   listenerRegistry
	destroyHook *dom.Listener
	parent      Component // The concrete component that embeds this
	readyFired  bool
}

// NewElement wraps node. A non-nil node gets a component-destroy listener
// that calls Destroy on the embedding component.
func NewElement(node *dom.Node) *Element {
	e := &Element{node: node}
	e.attachDestroyHook()
	return e
}

// ElementType returns a Factory binding plain Elements, for nodes that only
// need the show, hide, enable and disable events.
func ElementType() Factory {
	return func(node *dom.Node) Component {
		return NewElement(node)
	}
}

func (e *Element) attachDestroyHook() {
	if e.node == nil || e.destroyHook != nil {
		return
	}
	e.destroyHook = dom.NewListener(func(*dom.Event) {
		e.self().Destroy()
	})
	e.node.AddEventListener(EventDestroy, e.destroyHook)
}

// SetParent sets the concrete component embedding this Element so that
// its overridden hooks are dispatched.
func (e *Element) SetParent(parent Component) {
	e.parent = parent
}

func (e *Element) self() Component {
	if e.parent != nil {
		return e.parent
	}
	return e
}

// Node returns the wrapped node.
func (e *Element) Node() *dom.Node {
	if e == nil {
		return nil
	}
	return e.node
}

// IsVisible reports whether the node lacks the hidden class. An Element
// without a node is not visible.
func (e *Element) IsVisible() bool {
	return e.node != nil && !e.node.HasClass(ClassHidden)
}

// Show removes the hidden class.
func (e *Element) Show() {
	e.node.RemoveClass(ClassHidden)
}

// Hide adds the hidden class.
func (e *Element) Hide() {
	e.node.AddClass(ClassHidden)
}

// Enable removes the disabled class and, on form controls, the native
// disabled attribute.
func (e *Element) Enable() {
	e.node.RemoveClass(ClassDisabled)
	if isFormControl(e.node) {
		e.node.RemoveAttr("disabled")
	}
}

// Disable adds the disabled class and, on form controls, the native
// disabled attribute.
func (e *Element) Disable() {
	e.node.AddClass(ClassDisabled)
	if isFormControl(e.node) {
		e.node.SetAttr("disabled", "")
	}
}

// Disabled reports whether the node carries the disabled attribute or
// class.
func (e *Element) Disabled() bool {
	return e.node.HasAttr("disabled") || e.node.HasClass(ClassDisabled)
}

// UpdateText replaces the node's children with text.
func (e *Element) UpdateText(text string) {
	e.node.SetText(text)
}

// IsRegistered reads the persisted registration marker.
func (e *Element) IsRegistered() bool {
	v, _ := e.node.Data(DataRegistered)
	return v == "true"
}

// IsReady reads the persisted readiness marker.
func (e *Element) IsReady() bool {
	return isReady(e.node)
}

// Register marks the node registered, attaches the component's listeners
// and then dispatches EventReady once all dependents are ready. Calling it
// again is a no-op.
func (e *Element) Register() {
	if e.node == nil || e.IsRegistered() {
		return
	}
	e.node.SetData(DataRegistered, "true")
	e.attachDestroyHook()

	if r, ok := e.self().(ListenerRegistrar); ok {
		r.RegisterEventListeners()
	}
	e.awaitDependents()
}

// RegisterEventListeners binds the show, hide, enable and disable events
// to the matching methods.
func (e *Element) RegisterEventListeners() {
	e.Listen(e.node, EventShow, func(*dom.Event) { e.Show() })
	e.Listen(e.node, EventHide, func(*dom.Event) { e.Hide() })
	e.Listen(e.node, EventEnable, func(*dom.Event) { e.Enable() })
	e.Listen(e.node, EventDisable, func(*dom.Event) { e.Disable() })
}

// Listen attaches fn to target and records it for removal by Destroy. The
// returned listener can be passed to Unlisten.
func (e *Element) Listen(target dom.EventTarget, event string, fn func(*dom.Event)) *dom.Listener {
	l := dom.NewListener(fn)
	e.listeners.add(target, event, l)
	return l
}

// ListenOnce is Listen with a listener that detaches after its first run.
// It is dropped from the component's records when it fires.
func (e *Element) ListenOnce(target dom.EventTarget, event string, fn func(*dom.Event)) *dom.Listener {
	var l *dom.Listener
	l = dom.Once(func(ev *dom.Event) {
		e.listeners.remove(l)
		fn(ev)
	})
	e.listeners.add(target, event, l)
	return l
}

// Unlisten detaches a listener returned by Listen or ListenOnce before
// Destroy would.
func (e *Element) Unlisten(l *dom.Listener) {
	e.listeners.remove(l)
}

// ListenerCount returns the number of listeners recorded through Listen.
func (e *Element) ListenerCount() int {
	return e.listeners.len()
}

// Destroy removes every listener attached through Listen, in order, along
// with the component-destroy hook, and clears the registration markers so
// the node can be bound again. The node itself is left in place.
func (e *Element) Destroy() {
	e.listeners.removeAll()
	e.readyFired = false
	if e.node == nil {
		return
	}
	if e.destroyHook != nil {
		e.node.RemoveEventListener(EventDestroy, e.destroyHook)
		e.destroyHook = nil
	}
	e.node.RemoveData(DataRegistered)
	e.node.RemoveData(DataReady)
}

// awaitDependents is the readiness barrier. Each dependent's EventReady
// re-checks all of them; the last one to become ready, in any order,
// releases this component's EventReady exactly once.
func (e *Element) awaitDependents() {
	var deps []*dom.Node
	if p, ok := e.self().(DependencyProvider); ok {
		for _, c := range p.DependentComponents() {
			if c == nil {
				continue
			}
			if n := c.Node(); n != nil {
				deps = append(deps, n)
			}
		}
	}

	check := func() {
		if e.readyFired {
			return
		}
		for _, n := range deps {
			if !isReady(n) {
				return
			}
		}
		e.markReady()
	}

	for _, n := range deps {
		if !isReady(n) {
			e.ListenOnce(n, EventReady, func(*dom.Event) { check() })
		}
	}
	check()
}

func (e *Element) markReady() {
	e.readyFired = true
	e.node.SetData(DataReady, "true")
	e.node.DispatchEvent(dom.NewEvent(EventReady))
}

func isReady(n *dom.Node) bool {
	v, _ := n.Data(DataReady)
	return v == "true"
}

func isFormControl(n *dom.Node) bool {
	switch n.Tag() {
	case "button", "input", "select", "textarea", "fieldset", "optgroup", "option":
		return true
	}
	return false
}
