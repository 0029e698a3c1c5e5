package dom

// Event is a synchronous, non-bubbling event delivered to the listeners of
// a single target.
type Event struct {
	Type   string
	Detail any
	Target EventTarget
}

// NewEvent creates an event without a payload.
func NewEvent(typ string) *Event {
	return &Event{Type: typ}
}

// NewCustomEvent creates an event carrying detail.
func NewCustomEvent(typ string, detail any) *Event {
	return &Event{Type: typ, Detail: detail}
}

// EventTarget is anything listeners can be attached to.
type EventTarget interface {
	AddEventListener(typ string, l *Listener)
	RemoveEventListener(typ string, l *Listener)
	DispatchEvent(e *Event)
}

// Listener wraps an event callback. Listeners are compared by pointer, so
// the value returned from NewListener is the handle needed to remove it.
type Listener struct {
	fn   func(*Event)
	once bool
}

// NewListener creates a listener that runs fn for every matching event.
func NewListener(fn func(*Event)) *Listener {
	return &Listener{fn: fn}
}

// Once creates a listener that removes itself before its first run.
func Once(fn func(*Event)) *Listener {
	return &Listener{fn: fn, once: true}
}

// Listeners is an ordered listener table keyed by event type. The zero
// value is ready to use. It is not safe for concurrent use; all access is
// expected to happen on the event loop.
type Listeners struct {
	byType map[string][]*Listener
}

// Add appends l for typ. Adding the same listener twice is a no-op.
func (ls *Listeners) Add(typ string, l *Listener) {
	if l == nil || l.fn == nil {
		return
	}
	if ls.byType == nil {
		ls.byType = make(map[string][]*Listener)
	}
	for _, existing := range ls.byType[typ] {
		if existing == l {
			return
		}
	}
	ls.byType[typ] = append(ls.byType[typ], l)
}

// Remove detaches l from typ. Unknown listeners are ignored.
func (ls *Listeners) Remove(typ string, l *Listener) {
	list := ls.byType[typ]
	for i, existing := range list {
		if existing == l {
			ls.byType[typ] = append(list[:i:i], list[i+1:]...)
			if len(ls.byType[typ]) == 0 {
				delete(ls.byType, typ)
			}
			return
		}
	}
}

// Has reports whether l is currently attached for typ.
func (ls *Listeners) Has(typ string, l *Listener) bool {
	for _, existing := range ls.byType[typ] {
		if existing == l {
			return true
		}
	}
	return false
}

// Count returns the number of listeners attached for typ.
func (ls *Listeners) Count(typ string) int {
	return len(ls.byType[typ])
}

// Dispatch runs the listeners registered for e.Type. The list is
// snapshotted first: listeners added during dispatch wait for the next
// event, listeners removed during dispatch are skipped.
func (ls *Listeners) Dispatch(e *Event) {
	if e == nil {
		return
	}
	snapshot := append([]*Listener(nil), ls.byType[e.Type]...)
	for _, l := range snapshot {
		if !ls.Has(e.Type, l) {
			continue
		}
		if l.once {
			ls.Remove(e.Type, l)
		}
		l.fn(e)
	}
}
