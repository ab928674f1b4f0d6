//
//  Copyright © the Cedrus authors. All rights reserved.
//

package ast_test

import (
	"testing"

	"github.com/cedrus-authz/cedrus/pkg/core/ast"
	"github.com/stretchr/testify/assert"
)

func lit(s string) ast.PatternComponent  { return ast.PatternComponent{Literal: s} }
func wild(s string) ast.PatternComponent { return ast.PatternComponent{Wildcard: true, Literal: s} }

func TestPatternMatch(t *testing.T) {
	var patternTests = []struct {
		name    string
		pattern ast.Pattern
		input   string
		want    bool
	}{
		{"exact", ast.NewPattern([]ast.PatternComponent{lit("abc")}), "abc", true},
		{"exact mismatch", ast.NewPattern([]ast.PatternComponent{lit("abc")}), "abd", false},
		{"exact is full match", ast.NewPattern([]ast.PatternComponent{lit("abc")}), "abcd", false},
		{"single star", ast.NewPattern([]ast.PatternComponent{wild("")}), "anything", true},
		{"star matches empty", ast.NewPattern([]ast.PatternComponent{wild("")}), "", true},
		{"prefix star", ast.NewPattern([]ast.PatternComponent{lit("img-"), wild("")}), "img-42", true},
		{"suffix star", ast.NewPattern([]ast.PatternComponent{wild(".jpg")}), "photo.jpg", true},
		{"suffix star mismatch", ast.NewPattern([]ast.PatternComponent{wild(".jpg")}), "photo.png", false},
		{"middle star", ast.NewPattern([]ast.PatternComponent{lit("a"), wild("c")}), "abbbc", true},
		{"two stars", ast.NewPattern([]ast.PatternComponent{wild("a"), wild("b")}), "xxaxxb", true},
		{"backtracking", ast.NewPattern([]ast.PatternComponent{wild("ab"), wild("")}), "aab", true},
		{"literal star", ast.NewPattern([]ast.PatternComponent{lit("a*b")}), "a*b", true},
		{"literal star no glob", ast.NewPattern([]ast.PatternComponent{lit("a*b")}), "axb", false},
		{"empty pattern", ast.NewPattern(nil), "", true},
		{"empty pattern nonempty input", ast.NewPattern(nil), "x", false},
	}

	for _, tt := range patternTests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pattern.Match(tt.input))
		})
	}
}

func TestPatternString(t *testing.T) {
	p := ast.NewPattern([]ast.PatternComponent{lit("a*"), wild("b")})
	assert.Equal(t, `a\**b`, p.String())
}
