//
//  Copyright © the Cedrus authors. All rights reserved.
//

package ast

import "strings"

// Pattern is the glob-style pattern of a like expression: a sequence of
// literal chunks separated by `*` wildcards, each matching zero or more
// characters. A literal `*` is written `\*` in policy text; by the time a
// Pattern exists the escape has been resolved into the literal chunk.
type Pattern struct {
	Components []PatternComponent
}

// PatternComponent is one element of a pattern.
type PatternComponent struct {
	// Wildcard indicates a `*` preceding Literal.
	Wildcard bool
	// Literal is the chunk of characters to match verbatim. May be empty
	// for a trailing wildcard.
	Literal string
}

// NewPattern builds a pattern from resolved components.
func NewPattern(components []PatternComponent) Pattern {
	return Pattern{Components: components}
}

// Match reports whether s matches the pattern in full.
func (p Pattern) Match(s string) bool {
	return matchComponents(p.Components, s)
}

func matchComponents(comps []PatternComponent, s string) bool {
	if len(comps) == 0 {
		return s == ""
	}

	c, rest := comps[0], comps[1:]

	if !c.Wildcard {
		if !strings.HasPrefix(s, c.Literal) {
			return false
		}
		return matchComponents(rest, s[len(c.Literal):])
	}

	// wildcard: try every position at which the literal can begin
	for i := 0; i+len(c.Literal) <= len(s); i++ {
		if s[i:i+len(c.Literal)] == c.Literal {
			if matchComponents(rest, s[i+len(c.Literal):]) {
				return true
			}
		}
	}
	return false
}

// String renders the pattern in policy syntax, re-escaping literal stars.
func (p Pattern) String() string {
	var b strings.Builder
	for _, c := range p.Components {
		if c.Wildcard {
			b.WriteByte('*')
		}
		b.WriteString(strings.ReplaceAll(c.Literal, "*", `\*`))
	}
	return b.String()
}
