//
//  Copyright © the Cedrus authors. All rights reserved.
//

package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenInt
	tokenString // raw content, quotes stripped, escapes unresolved
	tokenPunct
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) isPunct(s string) bool { return t.kind == tokenPunct && t.text == s }
func (t token) isIdent(s string) bool { return t.kind == tokenIdent && t.text == s }

func (t token) describe() string {
	switch t.kind {
	case tokenEOF:
		return "end of input"
	case tokenString:
		return fmt.Sprintf("string %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// lexer produces the token stream for one policy document. It tracks line
// and column so construction errors are location-addressable.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...interface{}) error {
	return &ParseError{Line: line, Col: col, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		c := l.peekByte()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.peekByte() != '\n' {
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

// next returns the next token. Errors carry the offending location.
func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}

	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokenEOF, line: line, col: col}, nil
	}

	c := l.peekByte()

	switch {
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.peekByte()) {
			l.advance()
		}
		return token{kind: tokenIdent, text: l.src[start:l.pos], line: line, col: col}, nil

	case c >= '0' && c <= '9':
		start := l.pos
		for l.pos < len(l.src) && l.peekByte() >= '0' && l.peekByte() <= '9' {
			l.advance()
		}
		return token{kind: tokenInt, text: l.src[start:l.pos], line: line, col: col}, nil

	case c == '"':
		l.advance()
		start := l.pos
		for {
			if l.pos >= len(l.src) {
				return token{}, l.errorf(line, col, "unterminated string literal")
			}
			if l.peekByte() == '\\' {
				l.advance()
				if l.pos >= len(l.src) {
					return token{}, l.errorf(line, col, "unterminated string literal")
				}
				l.advance()
				continue
			}
			if l.peekByte() == '"' {
				break
			}
			if l.peekByte() == '\n' {
				return token{}, l.errorf(line, col, "unterminated string literal")
			}
			l.advance()
		}
		raw := l.src[start:l.pos]
		l.advance() // closing quote
		return token{kind: tokenString, text: raw, line: line, col: col}, nil
	}

	// multi-byte punctuation first
	for _, p := range []string{"::", "==", "!=", "<=", ">=", "&&", "||"} {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.advance()
			l.advance()
			return token{kind: tokenPunct, text: p, line: line, col: col}, nil
		}
	}

	switch c {
	case '@', '(', ')', '[', ']', '{', '}', ',', ';', '.', '<', '>', '!', '+', '-', '*', ':':
		l.advance()
		return token{kind: tokenPunct, text: string(c), line: line, col: col}, nil
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return token{}, l.errorf(line, col, "unexpected character %q", r)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// unescapeString resolves escape sequences in a raw string literal. The
// `\*` escape is only legal in like patterns and is rejected here.
func unescapeString(raw string, line, col int) (string, error) {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(raw) {
			return "", &ParseError{Line: line, Col: col, Message: "dangling escape in string literal"}
		}
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case '0':
			b.WriteByte(0)
		case 'u':
			rest := raw[i+1:]
			if !strings.HasPrefix(rest, "{") {
				return "", &ParseError{Line: line, Col: col, Message: `\u escape must be of the form \u{hex}`}
			}
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return "", &ParseError{Line: line, Col: col, Message: `unterminated \u escape`}
			}
			var r rune
			if _, err := fmt.Sscanf(rest[1:end], "%x", &r); err != nil || r < 0 || r > unicode.MaxRune {
				return "", &ParseError{Line: line, Col: col, Message: `invalid \u escape`}
			}
			b.WriteRune(r)
			i += end + 1
		default:
			return "", &ParseError{Line: line, Col: col,
				Message: fmt.Sprintf("unsupported escape \\%c in string literal", raw[i])}
		}
	}
	return b.String(), nil
}
