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

package parser

import (
	"fmt"
	"strconv"

	"github.com/botobag/graphcache/ast"
)

// Parse parses a GraphQL executable document (operations and fragment
// definitions only; type-system definitions are rejected, since the core
// has no use for them).
func Parse(src string) (*ast.Document, error) {
	p := &parser{lex: newLexer(src)}
	return p.parseDocument()
}

// ParseSelectionSet parses a standalone "{ ... }" selection set, useful for
// tests that only need a fragment of a document.
func ParseSelectionSet(src string) (ast.SelectionSet, error) {
	p := &parser{lex: newLexer(src)}
	set, err := p.parseSelectionSet()
	if err != nil {
		return nil, err
	}
	if t := p.lex.peek(); t.kind != tokEOF {
		return nil, p.errorf("unexpected trailing input %q", t.text)
	}
	return set, nil
}

type parser struct {
	lex *lexer
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parseDocument() (*ast.Document, error) {
	doc := &ast.Document{}
	for {
		t := p.lex.peek()
		if t.kind == tokEOF {
			break
		}
		if t.kind == tokPunct && t.text == "{" {
			op, err := p.parseOperationShorthand()
			if err != nil {
				return nil, err
			}
			doc.Operations = append(doc.Operations, op)
			continue
		}
		if t.kind != tokName {
			return nil, p.errorf("unexpected token %q", t.text)
		}
		switch t.text {
		case "query", "mutation", "subscription":
			op, err := p.parseOperationDefinition()
			if err != nil {
				return nil, err
			}
			doc.Operations = append(doc.Operations, op)
		case "fragment":
			frag, err := p.parseFragmentDefinition()
			if err != nil {
				return nil, err
			}
			doc.Fragments = append(doc.Fragments, frag)
		default:
			return nil, p.errorf("unexpected keyword %q", t.text)
		}
	}
	return doc, nil
}

func (p *parser) parseOperationShorthand() (*ast.OperationDefinition, error) {
	set, err := p.parseSelectionSet()
	if err != nil {
		return nil, err
	}
	return &ast.OperationDefinition{SelectionSet: set}, nil
}

func (p *parser) parseOperationDefinition() (*ast.OperationDefinition, error) {
	kw := p.lex.next()
	op := &ast.OperationDefinition{Type: ast.OperationType(kw.text)}

	if t := p.lex.peek(); t.kind == tokName {
		op.Name = t.text
		p.lex.next()
	}

	if t := p.lex.peek(); t.kind == tokPunct && t.text == "(" {
		vars, err := p.parseVariableDefinitions()
		if err != nil {
			return nil, err
		}
		op.VariableDefinitions = vars
	}

	if _, err := p.parseDirectives(); err != nil {
		return nil, err
	}

	set, err := p.parseSelectionSet()
	if err != nil {
		return nil, err
	}
	op.SelectionSet = set
	return op, nil
}

func (p *parser) parseFragmentDefinition() (*ast.FragmentDefinition, error) {
	p.lex.next() // "fragment"
	name := p.lex.next()
	if name.kind != tokName {
		return nil, p.errorf("expected fragment name, got %q", name.text)
	}
	if err := p.expectKeyword("on"); err != nil {
		return nil, err
	}
	typeCond := p.lex.next()
	if typeCond.kind != tokName {
		return nil, p.errorf("expected type condition, got %q", typeCond.text)
	}
	if _, err := p.parseDirectives(); err != nil {
		return nil, err
	}
	set, err := p.parseSelectionSet()
	if err != nil {
		return nil, err
	}
	return &ast.FragmentDefinition{Name: name.text, TypeCondition: typeCond.text, SelectionSet: set}, nil
}

func (p *parser) expectKeyword(kw string) error {
	t := p.lex.next()
	if t.kind != tokName || t.text != kw {
		return p.errorf("expected %q, got %q", kw, t.text)
	}
	return nil
}

func (p *parser) expectPunct(punct string) error {
	t := p.lex.next()
	if t.kind != tokPunct || t.text != punct {
		return p.errorf("expected %q, got %q", punct, t.text)
	}
	return nil
}

func (p *parser) parseSelectionSet() (ast.SelectionSet, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var set ast.SelectionSet
	for {
		t := p.lex.peek()
		if t.kind == tokPunct && t.text == "}" {
			p.lex.next()
			break
		}
		if t.kind == tokEOF {
			return nil, p.errorf("unexpected end of input in selection set")
		}
		sel, err := p.parseSelection()
		if err != nil {
			return nil, err
		}
		set = append(set, sel)
	}
	return set, nil
}

func (p *parser) parseSelection() (ast.Selection, error) {
	t := p.lex.peek()
	if t.kind == tokPunct && t.text == "..." {
		return p.parseFragment()
	}
	return p.parseField()
}

func (p *parser) parseFragment() (ast.Selection, error) {
	p.lex.next() // "..."
	t := p.lex.peek()
	if t.kind == tokName && t.text == "on" {
		p.lex.next()
		typeCond := p.lex.next()
		if typeCond.kind != tokName {
			return nil, p.errorf("expected type condition, got %q", typeCond.text)
		}
		dirs, err := p.parseDirectives()
		if err != nil {
			return nil, err
		}
		set, err := p.parseSelectionSet()
		if err != nil {
			return nil, err
		}
		return &ast.InlineFragment{TypeCondition: typeCond.text, Directives: dirs, SelectionSet: set}, nil
	}
	if t.kind == tokPunct && t.text == "{" {
		dirs, err := p.parseDirectives()
		if err != nil {
			return nil, err
		}
		set, err := p.parseSelectionSet()
		if err != nil {
			return nil, err
		}
		return &ast.InlineFragment{Directives: dirs, SelectionSet: set}, nil
	}
	if t.kind == tokName && t.text != "on" {
		// Could still be "... @dir { }" with no type condition before the
		// directive; peek ahead isn't needed since a bare name here is a
		// fragment spread's name.
		name := p.lex.next()
		dirs, err := p.parseDirectives()
		if err != nil {
			return nil, err
		}
		return &ast.FragmentSpread{Name: name.text, Directives: dirs}, nil
	}
	if t.kind == tokAt {
		dirs, err := p.parseDirectives()
		if err != nil {
			return nil, err
		}
		set, err := p.parseSelectionSet()
		if err != nil {
			return nil, err
		}
		return &ast.InlineFragment{Directives: dirs, SelectionSet: set}, nil
	}
	return nil, p.errorf("unexpected token %q after '...'", t.text)
}

func (p *parser) parseField() (*ast.Field, error) {
	first := p.lex.next()
	if first.kind != tokName {
		return nil, p.errorf("expected field name, got %q", first.text)
	}

	field := &ast.Field{Name: first.text}

	if t := p.lex.peek(); t.kind == tokPunct && t.text == ":" {
		p.lex.next()
		field.Alias = first.text
		nameTok := p.lex.next()
		if nameTok.kind != tokName {
			return nil, p.errorf("expected field name after alias, got %q", nameTok.text)
		}
		field.Name = nameTok.text
	}

	if t := p.lex.peek(); t.kind == tokPunct && t.text == "(" {
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		field.Arguments = args
	}

	dirs, err := p.parseDirectives()
	if err != nil {
		return nil, err
	}
	field.Directives = dirs

	if t := p.lex.peek(); t.kind == tokPunct && t.text == "{" {
		set, err := p.parseSelectionSet()
		if err != nil {
			return nil, err
		}
		field.SelectionSet = set
	}

	return field, nil
}

func (p *parser) parseArguments() (ast.Arguments, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args ast.Arguments
	for {
		t := p.lex.peek()
		if t.kind == tokPunct && t.text == ")" {
			p.lex.next()
			break
		}
		name := p.lex.next()
		if name.kind != tokName {
			return nil, p.errorf("expected argument name, got %q", name.text)
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		args = append(args, &ast.Argument{Name: name.text, Value: value})
	}
	return args, nil
}

func (p *parser) parseDirectives() (ast.Directives, error) {
	var dirs ast.Directives
	for {
		t := p.lex.peek()
		if t.kind != tokAt {
			break
		}
		p.lex.next()
		name := p.lex.next()
		if name.kind != tokName {
			return nil, p.errorf("expected directive name, got %q", name.text)
		}
		d := &ast.Directive{Name: name.text}
		if t := p.lex.peek(); t.kind == tokPunct && t.text == "(" {
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			d.Arguments = args
		}
		dirs = append(dirs, d)
	}
	return dirs, nil
}

func (p *parser) parseVariableDefinitions() ([]*ast.VariableDefinition, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var defs []*ast.VariableDefinition
	for {
		t := p.lex.peek()
		if t.kind == tokPunct && t.text == ")" {
			p.lex.next()
			break
		}
		if t.kind != tokDollar {
			return nil, p.errorf("expected '$', got %q", t.text)
		}
		p.lex.next()
		name := p.lex.next()
		if name.kind != tokName {
			return nil, p.errorf("expected variable name, got %q", name.text)
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		if err := p.parseType(); err != nil {
			return nil, err
		}
		def := &ast.VariableDefinition{Variable: ast.Variable{Name: name.text}}
		if t := p.lex.peek(); t.kind == tokPunct && t.text == "=" {
			p.lex.next()
			value, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			def.DefaultValue = value
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// parseType consumes (and discards) a type reference: Name, Name!, [Type],
// [Type]!. graphcache's untyped store never needs the parsed type, only to
// skip past it syntactically.
func (p *parser) parseType() error {
	t := p.lex.peek()
	if t.kind == tokPunct && t.text == "[" {
		p.lex.next()
		if err := p.parseType(); err != nil {
			return err
		}
		if err := p.expectPunct("]"); err != nil {
			return err
		}
	} else if t.kind == tokName {
		p.lex.next()
	} else {
		return p.errorf("expected type, got %q", t.text)
	}
	if t := p.lex.peek(); t.kind == tokPunct && t.text == "!" {
		p.lex.next()
	}
	return nil
}

func (p *parser) parseValue() (ast.Value, error) {
	t := p.lex.peek()
	switch t.kind {
	case tokDollar:
		p.lex.next()
		name := p.lex.next()
		if name.kind != tokName {
			return nil, p.errorf("expected variable name, got %q", name.text)
		}
		return ast.Variable{Name: name.text}, nil
	case tokInt:
		p.lex.next()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid int literal %q", t.text)
		}
		return ast.IntValue{Value: n}, nil
	case tokFloat:
		p.lex.next()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf("invalid float literal %q", t.text)
		}
		return ast.FloatValue{Value: f}, nil
	case tokString:
		p.lex.next()
		return ast.StringValue{Value: t.text}, nil
	case tokName:
		p.lex.next()
		switch t.text {
		case "true":
			return ast.BooleanValue{Value: true}, nil
		case "false":
			return ast.BooleanValue{Value: false}, nil
		case "null":
			return ast.NullValue{}, nil
		default:
			return ast.EnumValue{Value: t.text}, nil
		}
	case tokPunct:
		switch t.text {
		case "[":
			return p.parseListValue()
		case "{":
			return p.parseObjectValue()
		}
	}
	return nil, p.errorf("unexpected token %q in value position", t.text)
}

func (p *parser) parseListValue() (ast.Value, error) {
	p.lex.next() // "["
	var values []ast.Value
	for {
		t := p.lex.peek()
		if t.kind == tokPunct && t.text == "]" {
			p.lex.next()
			break
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return ast.ListValue{Values: values}, nil
}

func (p *parser) parseObjectValue() (ast.Value, error) {
	p.lex.next() // "{"
	var fields []ast.ObjectField
	for {
		t := p.lex.peek()
		if t.kind == tokPunct && t.text == "}" {
			p.lex.next()
			break
		}
		name := p.lex.next()
		if name.kind != tokName {
			return nil, p.errorf("expected field name, got %q", name.text)
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.ObjectField{Name: name.text, Value: v})
	}
	return ast.ObjectValue{Fields: fields}, nil
}
