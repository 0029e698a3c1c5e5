package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html><html><body>
<div id="main" class="panel wide" data-path="/content/site">
  <div class="loader hidden"></div>
  <div class="content-area"><span class="item">one</span><span class="item">two</span></div>
</div>
<p class="item">outside</p>
</body></html>`

func parsePage(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(page)
	require.NoError(t, err)
	return doc
}

func TestWrapIsStable(t *testing.T) {
	doc := parsePage(t)

	a, err := doc.QuerySelector("#main")
	require.NoError(t, err)
	b, err := doc.QuerySelector("div.panel")
	require.NoError(t, err)

	assert.Same(t, a, b)
}

func TestQuerySelectorAllExcludesRoot(t *testing.T) {
	doc := parsePage(t)
	main, err := doc.QuerySelector("#main")
	require.NoError(t, err)

	inner, err := main.QuerySelectorAll("div")
	require.NoError(t, err)
	assert.Len(t, inner, 2)

	items, err := main.QuerySelectorAll(".item")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	all, err := doc.QuerySelectorAll(".item")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestQuerySelectorInvalid(t *testing.T) {
	doc := parsePage(t)

	_, err := doc.QuerySelectorAll("div[")
	assert.Error(t, err)

	_, err = doc.QuerySelectorAll("   ")
	assert.Error(t, err)
}

func TestDataAndClasses(t *testing.T) {
	doc := parsePage(t)
	main, _ := doc.QuerySelector("#main")

	path, ok := main.Data("path")
	assert.True(t, ok)
	assert.Equal(t, "/content/site", path)

	main.SetData("registered", "true")
	v, ok := main.Attr("data-registered")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	assert.True(t, main.HasClass("wide"))
	main.AddClass("hidden")
	main.AddClass("hidden")
	assert.Equal(t, []string{"panel", "wide", "hidden"}, main.Classes())

	main.RemoveClass("panel")
	main.RemoveClass("wide")
	main.RemoveClass("hidden")
	assert.False(t, main.HasAttr("class"))
}

func TestSetInnerHTMLForgetsDetachedNodes(t *testing.T) {
	doc := parsePage(t)
	area, _ := doc.QuerySelector(".content-area")
	first, _ := area.QuerySelector(".item")
	require.NotNil(t, first)

	require.NoError(t, area.SetInnerHTML(`<ul><li class="row">a</li></ul>`))

	assert.Nil(t, first.Parent())
	assert.Equal(t, `<ul><li class="row">a</li></ul>`, area.InnerHTML())

	rows, err := area.QuerySelectorAll(".row")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	area.Clear()
	assert.Empty(t, area.InnerHTML())
}

func TestTextRoundTrip(t *testing.T) {
	doc := parsePage(t)
	p, _ := doc.QuerySelector("p")

	assert.Equal(t, "outside", p.Text())
	p.SetText("<b>not markup</b>")
	assert.Equal(t, "<b>not markup</b>", p.Text())
	assert.Equal(t, "&lt;b&gt;not markup&lt;/b&gt;", p.InnerHTML())
}

func TestNilNodeIsInert(t *testing.T) {
	var n *Node

	assert.NotPanics(t, func() {
		n.AddClass("x")
		n.SetData("registered", "true")
		n.DispatchEvent(NewEvent("anything"))
		n.AddEventListener("anything", NewListener(func(*Event) {}))
		n.Clear()
	})
	assert.False(t, n.HasClass("x"))
	assert.NoError(t, n.SetInnerHTML("<p>x</p>"))

	res, err := n.QuerySelectorAll("p")
	assert.NoError(t, err)
	assert.Empty(t, res)
}

func TestDispatchIsSynchronousAndOrdered(t *testing.T) {
	doc := parsePage(t)
	main, _ := doc.QuerySelector("#main")

	var got []string
	first := NewListener(func(e *Event) { got = append(got, "first:"+e.Type) })
	second := NewListener(func(e *Event) { got = append(got, "second") })
	main.AddEventListener("ping", first)
	main.AddEventListener("ping", second)
	main.AddEventListener("ping", first)

	main.DispatchEvent(NewEvent("ping"))
	assert.Equal(t, []string{"first:ping", "second"}, got)

	main.RemoveEventListener("ping", first)
	got = nil
	main.DispatchEvent(NewEvent("ping"))
	assert.Equal(t, []string{"second"}, got)
}

func TestOnceListener(t *testing.T) {
	doc := parsePage(t)
	calls := 0
	doc.AddEventListener("ready", Once(func(*Event) { calls++ }))

	doc.DispatchEvent(NewEvent("ready"))
	doc.DispatchEvent(NewEvent("ready"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, doc.ListenerCount("ready"))
}

func TestDispatchSnapshot(t *testing.T) {
	doc := parsePage(t)
	main, _ := doc.QuerySelector("#main")

	var order []string
	late := NewListener(func(*Event) { order = append(order, "late") })
	var second *Listener
	first := NewListener(func(*Event) {
		order = append(order, "first")
		main.AddEventListener("go", late)
		main.RemoveEventListener("go", second)
	})
	second = NewListener(func(*Event) { order = append(order, "second") })
	main.AddEventListener("go", first)
	main.AddEventListener("go", second)

	main.DispatchEvent(NewEvent("go"))
	assert.Equal(t, []string{"first"}, order)

	order = nil
	main.DispatchEvent(NewEvent("go"))
	assert.Equal(t, []string{"first", "late"}, order)
}

func TestEventTargetDefaults(t *testing.T) {
	doc := parsePage(t)
	main, _ := doc.QuerySelector("#main")

	var target EventTarget
	main.AddEventListener("x", NewListener(func(e *Event) { target = e.Target }))
	main.DispatchEvent(NewCustomEvent("x", 42))

	assert.Same(t, main, target)
}

func TestChildWithClass(t *testing.T) {
	doc := parsePage(t)
	main, _ := doc.QuerySelector("#main")

	loader := main.ChildWithClass("loader")
	require.NotNil(t, loader)
	assert.True(t, loader.HasClass("hidden"))

	assert.Nil(t, main.ChildWithClass("error-area"))
}
