package dom

import (
	"fmt"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
)

var selectorCache sync.Map // string -> cascadia.SelectorGroup

// compile parses a selector group, caching the result. Compiled groups are
// immutable, so the cache is shared by every document.
func compile(sel string) (cascadia.SelectorGroup, error) {
	if g, ok := selectorCache.Load(sel); ok {
		return g.(cascadia.SelectorGroup), nil
	}
	if strings.TrimSpace(sel) == "" {
		return nil, fmt.Errorf("dom: empty selector")
	}
	g, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fmt.Errorf("dom: invalid selector %q: %w", sel, err)
	}
	selectorCache.Store(sel, g)
	return g, nil
}

// Matches reports whether n itself matches sel.
func (n *Node) Matches(sel string) (bool, error) {
	if n == nil {
		return false, nil
	}
	g, err := compile(sel)
	if err != nil {
		return false, err
	}
	return g.Match(n.n), nil
}

// QuerySelector returns the first descendant of n matching sel, or nil.
func (n *Node) QuerySelector(sel string) (*Node, error) {
	if n == nil {
		return nil, nil
	}
	g, err := compile(sel)
	if err != nil {
		return nil, err
	}
	return n.doc.Wrap(cascadia.Query(n.n, g)), nil
}

// QuerySelectorAll returns every descendant of n matching sel in document
// order. n itself is never part of the result.
func (n *Node) QuerySelectorAll(sel string) ([]*Node, error) {
	if n == nil {
		return nil, nil
	}
	g, err := compile(sel)
	if err != nil {
		return nil, err
	}
	matches := cascadia.QueryAll(n.n, g)
	out := make([]*Node, 0, len(matches))
	for _, m := range matches {
		out = append(out, n.doc.Wrap(m))
	}
	return out, nil
}

// ChildWithClass returns the first element child carrying class, falling
// back to the first descendant that does.
func (n *Node) ChildWithClass(class string) *Node {
	for _, c := range n.Children() {
		if c.HasClass(class) {
			return c
		}
	}
	for _, d := range n.Descendants() {
		if d.HasClass(class) {
			return d
		}
	}
	return nil
}
