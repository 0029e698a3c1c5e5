package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Node wraps one *html.Node. Every method tolerates a nil receiver so
// optional lookups can be used without guarding.
type Node struct {
	doc       *Document
	n         *html.Node
	listeners Listeners
}

// HTML returns the underlying parse tree node.
func (n *Node) HTML() *html.Node {
	if n == nil {
		return nil
	}
	return n.n
}

// Document returns the owning document.
func (n *Node) Document() *Document {
	if n == nil {
		return nil
	}
	return n.doc
}

// Tag returns the lower-case element name, or "" for non-elements.
func (n *Node) Tag() string {
	if n == nil || n.n.Type != html.ElementNode {
		return ""
	}
	return n.n.Data
}

// IsElement reports whether n wraps an element node.
func (n *Node) IsElement() bool {
	return n != nil && n.n.Type == html.ElementNode
}

// Parent returns the parent node, or nil at the root or when detached.
func (n *Node) Parent() *Node {
	if n == nil || n.n.Parent == nil {
		return nil
	}
	return n.doc.Wrap(n.n.Parent)
}

// Children returns the element children of n in document order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, n.doc.Wrap(c))
		}
	}
	return out
}

// Descendants returns every element below n in document order.
func (n *Node) Descendants() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, n.doc.Wrap(c))
			}
			walk(c)
		}
	}
	walk(n.n)
	return out
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attr(name)
	return ok
}

// SetAttr sets or replaces the named attribute.
func (n *Node) SetAttr(name, value string) {
	if n == nil {
		return
	}
	for i, a := range n.n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.n.Attr[i].Val = value
			return
		}
	}
	n.n.Attr = append(n.n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes the named attribute if present.
func (n *Node) RemoveAttr(name string) {
	if n == nil {
		return
	}
	for i, a := range n.n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.n.Attr = append(n.n.Attr[:i], n.n.Attr[i+1:]...)
			return
		}
	}
}

// Data reads a data-* attribute. Keys are kebab-case without the prefix,
// so Data("allowed-error-retries") reads data-allowed-error-retries.
func (n *Node) Data(key string) (string, bool) {
	return n.Attr("data-" + key)
}

// SetData writes a data-* attribute.
func (n *Node) SetData(key, value string) {
	n.SetAttr("data-"+key, value)
}

// RemoveData deletes a data-* attribute.
func (n *Node) RemoveData(key string) {
	n.RemoveAttr("data-" + key)
}

// Classes returns the entries of the class attribute.
func (n *Node) Classes() []string {
	v, _ := n.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether class is present in the class list.
func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends class unless it is already present.
func (n *Node) AddClass(class string) {
	if n == nil || n.HasClass(class) {
		return
	}
	n.SetAttr("class", strings.Join(append(n.Classes(), class), " "))
}

// RemoveClass removes every occurrence of class.
func (n *Node) RemoveClass(class string) {
	if n == nil || !n.HasClass(class) {
		return
	}
	var kept []string
	for _, c := range n.Classes() {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		n.RemoveAttr("class")
		return
	}
	n.SetAttr("class", strings.Join(kept, " "))
}

// ToggleClass adds or removes class depending on on.
func (n *Node) ToggleClass(class string, on bool) {
	if on {
		n.AddClass(class)
	} else {
		n.RemoveClass(class)
	}
}

// InnerHTML renders the children of n.
func (n *Node) InnerHTML() string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// OuterHTML renders n including its own tag.
func (n *Node) OuterHTML() string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n.n); err != nil {
		return ""
	}
	return buf.String()
}

// SetInnerHTML replaces the children of n with markup parsed in the context
// of n. Removed nodes lose their wrappers; their listeners go with them.
func (n *Node) SetInnerHTML(markup string) error {
	if n == nil {
		return nil
	}
	if n.n.Type != html.ElementNode {
		return fmt.Errorf("dom: cannot set inner HTML of %s node", nodeTypeName(n.n.Type))
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), n.n)
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}
	n.Clear()
	for _, c := range nodes {
		n.n.AppendChild(c)
	}
	return nil
}

// Clear removes all children of n.
func (n *Node) Clear() {
	if n == nil {
		return
	}
	for c := n.n.FirstChild; c != nil; {
		next := c.NextSibling
		n.n.RemoveChild(c)
		n.doc.forget(c)
		c = next
	}
}

// Text returns the concatenated text content of n.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		if p.Type == html.TextNode {
			sb.WriteString(p.Data)
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n.n)
	return sb.String()
}

// SetText replaces the children of n with a single text node.
func (n *Node) SetText(text string) {
	if n == nil {
		return
	}
	n.Clear()
	n.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// AppendHTML parses markup and appends the result after the existing
// children of n.
func (n *Node) AppendHTML(markup string) error {
	if n == nil {
		return nil
	}
	if n.n.Type != html.ElementNode {
		return fmt.Errorf("dom: cannot append HTML to %s node", nodeTypeName(n.n.Type))
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), n.n)
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}
	for _, c := range nodes {
		n.n.AppendChild(c)
	}
	return nil
}

// AddEventListener implements EventTarget.
func (n *Node) AddEventListener(typ string, l *Listener) {
	if n == nil {
		return
	}
	n.listeners.Add(typ, l)
}

// RemoveEventListener implements EventTarget.
func (n *Node) RemoveEventListener(typ string, l *Listener) {
	if n == nil {
		return
	}
	n.listeners.Remove(typ, l)
}

// DispatchEvent implements EventTarget. Events do not bubble.
func (n *Node) DispatchEvent(e *Event) {
	if n == nil || e == nil {
		return
	}
	if e.Target == nil {
		e.Target = n
	}
	n.listeners.Dispatch(e)
}

// ListenerCount returns the number of listeners attached for typ.
func (n *Node) ListenerCount(typ string) int {
	if n == nil {
		return 0
	}
	return n.listeners.Count(typ)
}

func nodeTypeName(t html.NodeType) string {
	switch t {
	case html.DocumentNode:
		return "document"
	case html.TextNode:
		return "text"
	case html.CommentNode:
		return "comment"
	case html.DoctypeNode:
		return "doctype"
	default:
		return "unknown"
	}
}
