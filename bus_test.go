package hxdyn

import (
	"testing"

	"github.com/pthm/hxdyn/lib/dom"
)

func TestBusPublishContentLoaded(t *testing.T) {
	doc := mustDocument(t, `<div id="a"></div>`)
	node := mustQuery(t, doc, "#a")
	bus := NewBus()

	var got []*dom.Node
	l := bus.OnContentLoaded(func(c ContentLoaded) {
		got = append(got, c.Element)
	})
	bus.PublishContentLoaded(node)

	if len(got) != 1 || got[0] != node {
		t.Fatalf("received = %v, want [%v]", got, node)
	}

	bus.RemoveEventListener(EventContentLoaded, l)
	bus.PublishContentLoaded(node)
	if len(got) != 1 {
		t.Errorf("received after removal = %d, want 1", len(got))
	}
}

func TestBusIgnoresForeignPayloads(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.OnContentLoaded(func(ContentLoaded) { calls++ })

	bus.DispatchEvent(dom.NewCustomEvent(EventContentLoaded, "not a payload"))
	bus.DispatchEvent(dom.NewEvent(EventContentLoaded))

	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestBusSetsTarget(t *testing.T) {
	bus := NewBus()
	var target dom.EventTarget
	bus.AddEventListener("ping", dom.NewListener(func(e *dom.Event) {
		target = e.Target
	}))

	bus.DispatchEvent(dom.NewEvent("ping"))

	if target != bus {
		t.Errorf("Target = %v, want the bus", target)
	}
}

func TestBusNil(t *testing.T) {
	var bus *Bus

	// None of these may panic.
	bus.PublishContentLoaded(nil)
	bus.AddEventListener("x", dom.NewListener(func(*dom.Event) {}))
	bus.RemoveEventListener("x", nil)
	if bus.ListenerCount("x") != 0 {
		t.Errorf("ListenerCount() = %d, want 0", bus.ListenerCount("x"))
	}
}
