/**
 * Copyright (c) 2019, The Graphcache Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package parser turns a GraphQL executable document's source text into an
// ast.Document. It exists purely so tests can write queries as plain
// strings instead of hand-building AST structs; the core itself never
// parses anything. No source-location tracking is kept — callers that need
// precise diagnostics are expected to validate with a real GraphQL
// toolchain upstream of graphcache.
package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokInt
	tokFloat
	tokString
	tokPunct
	tokDollar
	tokAt
)

type token struct {
	kind tokenKind
	text string
}

type lexer struct {
	src    string
	pos    int
	tok    token
	peeked bool
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) peek() token {
	if !l.peeked {
		l.tok = l.scan()
		l.peeked = true
	}
	return l.tok
}

func (l *lexer) next() token {
	t := l.peek()
	l.peeked = false
	return t
}

func (l *lexer) scan() token {
	l.skipIgnored()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}
	}

	c := l.src[l.pos]
	switch {
	case c == '$':
		l.pos++
		return token{kind: tokDollar, text: "$"}
	case c == '@':
		l.pos++
		return token{kind: tokAt, text: "@"}
	case c == '"':
		return l.scanString()
	case c == '_' || isLetter(c):
		return l.scanName()
	case c == '-' || isDigit(c):
		return l.scanNumber()
	case strings.ContainsRune("!$():=[]{}|&.", rune(c)):
		if c == '.' && l.pos+2 < len(l.src) && l.src[l.pos+1] == '.' && l.src[l.pos+2] == '.' {
			l.pos += 3
			return token{kind: tokPunct, text: "..."}
		}
		l.pos++
		return token{kind: tokPunct, text: string(c)}
	default:
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		l.pos += size
		return token{kind: tokPunct, text: string(r)}
	}
}

func (l *lexer) skipIgnored() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ',':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], string(rune(0xFEFF))):
			l.pos += utf8.RuneLen(0xFEFF)
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) scanName() token {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '_' || isLetter(c) || isDigit(c) {
			l.pos++
			continue
		}
		break
	}
	return token{kind: tokName, text: l.src[start:l.pos]}
}

func (l *lexer) scanNumber() token {
	start := l.pos
	isFloat := false
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		isFloat = true
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	kind := tokInt
	if isFloat {
		kind = tokFloat
	}
	return token{kind: kind, text: l.src[start:l.pos]}
}

func (l *lexer) scanString() token {
	start := l.pos
	l.pos++ // opening quote

	// Block string: """ ... """
	if l.pos+1 < len(l.src) && l.src[l.pos] == '"' && l.src[l.pos+1] == '"' {
		l.pos += 2
		blockStart := l.pos
		for l.pos+2 < len(l.src) {
			if l.src[l.pos] == '"' && l.src[l.pos+1] == '"' && l.src[l.pos+2] == '"' {
				text := l.src[blockStart:l.pos]
				l.pos += 3
				return token{kind: tokString, text: text}
			}
			l.pos++
		}
		l.pos = len(l.src)
		return token{kind: tokString, text: l.src[blockStart:l.pos]}
	}

	var b strings.Builder
	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			switch l.src[l.pos] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			default:
				b.WriteByte(l.src[l.pos])
			}
			l.pos++
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
	if l.pos < len(l.src) {
		l.pos++ // closing quote
	}
	_ = start
	return token{kind: tokString, text: b.String()}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ParseError reports a lexical or grammatical problem found while parsing.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parser: %s", e.Message)
}
