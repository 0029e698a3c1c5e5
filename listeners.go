package hxdyn

import "github.com/pthm/hxdyn/lib/dom"

// listenerEntry is one listener attached through a component.
type listenerEntry struct {
	event    string
	target   dom.EventTarget
	listener *dom.Listener
}

// listenerRegistry records the listeners a component attached, in order,
// so that exactly those can be removed again. Listeners other components
// put on the same target are never touched.
type listenerRegistry struct {
	entries []listenerEntry
}

func (r *listenerRegistry) add(target dom.EventTarget, event string, l *dom.Listener) {
	if isNilTarget(target) || l == nil {
		return
	}
	target.AddEventListener(event, l)
	r.entries = append(r.entries, listenerEntry{event: event, target: target, listener: l})
}

// remove detaches every entry for l.
func (r *listenerRegistry) remove(l *dom.Listener) {
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.listener == l {
			e.target.RemoveEventListener(e.event, e.listener)
			continue
		}
		kept = append(kept, e)
	}
	clear(r.entries[len(kept):])
	r.entries = kept
}

// removeAll detaches every recorded listener in registration order.
func (r *listenerRegistry) removeAll() {
	for _, e := range r.entries {
		e.target.RemoveEventListener(e.event, e.listener)
	}
	r.entries = nil
}

func (r *listenerRegistry) len() int {
	return len(r.entries)
}

// isNilTarget catches both a nil interface and typed nil pointers.
func isNilTarget(t dom.EventTarget) bool {
	switch v := t.(type) {
	case nil:
		return true
	case *dom.Node:
		return v == nil
	case *dom.Document:
		return v == nil
	case *Bus:
		return v == nil
	}
	return false
}
