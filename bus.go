package hxdyn

import "github.com/pthm/hxdyn/lib/dom"

// ContentLoaded is published on the Bus after a content area swapped in a
// fragment. Element is the area's node, the root of the new subtree.
type ContentLoaded struct {
	Element *dom.Node
}

// Bus is the document-scoped event channel. Content areas publish
// EventContentLoaded on it and a Registry subscribes to rescan the new
// content. Dispatch is synchronous, like node events.
type Bus struct {
	listeners dom.Listeners
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// AddEventListener implements dom.EventTarget.
func (b *Bus) AddEventListener(typ string, l *dom.Listener) {
	if b == nil {
		return
	}
	b.listeners.Add(typ, l)
}

// RemoveEventListener implements dom.EventTarget.
func (b *Bus) RemoveEventListener(typ string, l *dom.Listener) {
	if b == nil {
		return
	}
	b.listeners.Remove(typ, l)
}

// DispatchEvent implements dom.EventTarget.
func (b *Bus) DispatchEvent(e *dom.Event) {
	if b == nil || e == nil {
		return
	}
	if e.Target == nil {
		e.Target = b
	}
	b.listeners.Dispatch(e)
}

// ListenerCount returns the number of listeners for typ.
func (b *Bus) ListenerCount(typ string) int {
	if b == nil {
		return 0
	}
	return b.listeners.Count(typ)
}

// PublishContentLoaded dispatches EventContentLoaded with a ContentLoaded
// payload.
func (b *Bus) PublishContentLoaded(el *dom.Node) {
	b.DispatchEvent(dom.NewCustomEvent(EventContentLoaded, ContentLoaded{Element: el}))
}

// OnContentLoaded subscribes fn to EventContentLoaded. Events without a
// ContentLoaded payload are ignored. The returned listener removes the
// subscription:
//
//	l := bus.OnContentLoaded(func(c hxdyn.ContentLoaded) { ... })
//	defer bus.RemoveEventListener(hxdyn.EventContentLoaded, l)
func (b *Bus) OnContentLoaded(fn func(ContentLoaded)) *dom.Listener {
	l := dom.NewListener(func(e *dom.Event) {
		if c, ok := e.Detail.(ContentLoaded); ok {
			fn(c)
		}
	})
	b.AddEventListener(EventContentLoaded, l)
	return l
}
