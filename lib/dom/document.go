// Package dom is a small headless DOM built on golang.org/x/net/html.
//
// It gives every element a stable *Node wrapper so behaviour (listeners,
// components) can be attached to node identity, answers CSS queries through
// cascadia, and delivers events synchronously. Nothing here is safe for
// concurrent use: a document belongs to the goroutine running its event
// loop.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Document owns a parsed HTML tree and the wrappers handed out for it.
// Document is itself an event target for document-scoped events.
type Document struct {
	root      *html.Node
	nodes     map[*html.Node]*Node
	listeners Listeners
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString is Parse for an in-memory document.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// NewDocument wraps an already parsed tree.
func NewDocument(root *html.Node) *Document {
	return &Document{
		root:  root,
		nodes: make(map[*html.Node]*Node),
	}
}

// Wrap returns the wrapper for n, creating it on first use. The same
// *html.Node always yields the same *Node.
func (d *Document) Wrap(n *html.Node) *Node {
	if d == nil || n == nil {
		return nil
	}
	if w, ok := d.nodes[n]; ok {
		return w
	}
	w := &Node{doc: d, n: n}
	d.nodes[n] = w
	return w
}

// forget drops the wrappers of a detached subtree.
func (d *Document) forget(n *html.Node) {
	delete(d.nodes, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.forget(c)
	}
}

// Root returns the document node.
func (d *Document) Root() *Node {
	if d == nil {
		return nil
	}
	return d.Wrap(d.root)
}

// Body returns the <body> element, or nil when the tree has none.
func (d *Document) Body() *Node {
	body, _ := d.Root().QuerySelector("body")
	return body
}

// QuerySelector returns the first element in the document matching sel.
func (d *Document) QuerySelector(sel string) (*Node, error) {
	return d.Root().QuerySelector(sel)
}

// QuerySelectorAll returns every element in the document matching sel.
func (d *Document) QuerySelectorAll(sel string) ([]*Node, error) {
	return d.Root().QuerySelectorAll(sel)
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// AddEventListener implements EventTarget.
func (d *Document) AddEventListener(typ string, l *Listener) {
	if d == nil {
		return
	}
	d.listeners.Add(typ, l)
}

// RemoveEventListener implements EventTarget.
func (d *Document) RemoveEventListener(typ string, l *Listener) {
	if d == nil {
		return
	}
	d.listeners.Remove(typ, l)
}

// DispatchEvent implements EventTarget.
func (d *Document) DispatchEvent(e *Event) {
	if d == nil || e == nil {
		return
	}
	if e.Target == nil {
		e.Target = d
	}
	d.listeners.Dispatch(e)
}

// ListenerCount returns the number of document listeners for typ.
func (d *Document) ListenerCount(typ string) int {
	if d == nil {
		return 0
	}
	return d.listeners.Count(typ)
}
