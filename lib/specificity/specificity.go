// Package specificity ranks CSS-like selectors so that, when several
// bindings match the same element, the most specific one wins.
//
// The score is a heuristic, not a CSS-compliant calculation: it counts ids,
// classes plus attribute selectors, and the remaining bare words (element
// names and pseudo-classes). That is enough to order bindings such as
// "div.tab" ahead of ".tab" deterministically.
package specificity

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
)

var (
	attrRe  = regexp.MustCompile(`\[[^\]]+\]`)
	idRe    = regexp.MustCompile(`#[\w-]+\b`)
	classRe = regexp.MustCompile(`\.[\w-]+\b`)
	wordRe  = regexp.MustCompile(`\b[\w-]+\b`)
)

// Score is (reserved, ids, classes and attributes, types and pseudos).
// The first element is always zero.
type Score [4]int

// Of computes the score of selector. The empty selector scores zero.
func Of(selector string) Score {
	attrs := len(attrRe.FindAllStringIndex(selector, -1))
	// Attribute bodies may contain dots, hashes and words that must not be
	// counted again.
	rest := attrRe.ReplaceAllString(selector, " ")

	ids := len(idRe.FindAllStringIndex(rest, -1))
	classes := len(classRe.FindAllStringIndex(rest, -1))
	words := len(wordRe.FindAllStringIndex(rest, -1))

	return Score{0, ids, classes + attrs, max(words-ids-classes, 0)}
}

// Compare orders scores lexicographically: -1 when s is less specific
// than o, +1 when more, 0 when equal.
func (s Score) Compare(o Score) int {
	for i := range s {
		if c := cmp.Compare(s[i], o[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Less reports whether s is strictly less specific than o.
func (s Score) Less(o Score) bool {
	return s.Compare(o) < 0
}

// IsZero reports whether every component is zero.
func (s Score) IsZero() bool {
	return s == Score{}
}

// String formats the score as "0,a,b,c".
func (s Score) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", s[0], s[1], s[2], s[3])
}

// Sort orders items most specific first. Items with equal scores keep
// their relative order.
func Sort[T any](items []T, score func(T) Score) {
	slices.SortStableFunc(items, func(a, b T) int {
		return score(b).Compare(score(a))
	})
}
