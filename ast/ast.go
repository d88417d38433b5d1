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

// Package ast defines the selection-set AST that graphcache's core treats as
// opaque: it walks these node shapes but never parses source text into
// them itself. Trimmed of source-location tracking and of every
// type-system-definition node (schema/type declarations and the like),
// neither of which this untyped, schema-unaware store has any use for.
package ast

// Document is a parsed GraphQL executable document: some operations and
// some fragment definitions, order preserved.
type Document struct {
	Operations []*OperationDefinition
	Fragments  []*FragmentDefinition
}

// FragmentMap indexes a Document's fragments (or a caller-supplied set, as
// passed to write/read/watch's `fragments` input) by name for spread
// resolution.
type FragmentMap map[string]*FragmentDefinition

// FragmentMapOf builds a FragmentMap from a document's fragment definitions.
func FragmentMapOf(doc *Document) FragmentMap {
	m := make(FragmentMap, len(doc.Fragments))
	for _, f := range doc.Fragments {
		m[f.Name] = f
	}
	return m
}

// OperationType enumerates the three GraphQL operation kinds.
type OperationType string

// Enumeration of OperationType.
const (
	OperationTypeQuery        OperationType = "query"
	OperationTypeMutation     OperationType = "mutation"
	OperationTypeSubscription OperationType = "subscription"
)

// OperationDefinition is a top-level operation (query/mutation/subscription).
type OperationDefinition struct {
	// Type is the operation type. Empty (treated as OperationTypeQuery) for
	// query-shorthand documents such as "{ a b c }".
	Type OperationType
	// Name is the operation's name, or "" for an anonymous/shorthand operation.
	Name                string
	VariableDefinitions []*VariableDefinition
	SelectionSet        SelectionSet
}

// EffectiveType returns Type, defaulting to OperationTypeQuery for the
// query-shorthand form.
func (op *OperationDefinition) EffectiveType() OperationType {
	if op.Type == "" {
		return OperationTypeQuery
	}
	return op.Type
}

// FragmentDefinition is a reusable named selection set.
type FragmentDefinition struct {
	Name          string
	TypeCondition string
	SelectionSet  SelectionSet
}

// SelectionSet is an ordered sequence of field selections, fragment spreads,
// and inline fragments.
type SelectionSet []Selection

// Selection is implemented by *Field, *FragmentSpread, and *InlineFragment.
type Selection interface {
	selectionNode()
}

// Field is a single field selection.
type Field struct {
	// Alias is the response key the field's value is written under. Equal to
	// Name when no alias was given.
	Alias string
	Name  string

	Arguments    Arguments
	Directives   Directives
	SelectionSet SelectionSet
}

func (*Field) selectionNode() {}

// ResponseKey returns the key this field's value appears under in a result
// object: the alias if given, else the field name.
func (f *Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// FragmentSpread applies a named fragment via "...Name".
type FragmentSpread struct {
	Name       string
	Directives Directives
}

func (*FragmentSpread) selectionNode() {}

// InlineFragment applies a selection set inline, optionally guarded by a type
// condition. Type conditions are transparent to the untyped store
//.
type InlineFragment struct {
	TypeCondition string // "" if none given
	Directives    Directives
	SelectionSet  SelectionSet
}

func (*InlineFragment) selectionNode() {}

// Arguments is an ordered list of field/directive arguments.
type Arguments []*Argument

// Argument is a single name:value argument.
type Argument struct {
	Name  string
	Value Value
}

// ByName returns the argument named name, or nil.
func (args Arguments) ByName(name string) *Argument {
	for _, a := range args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Directives is an ordered list of applied directives.
type Directives []*Directive

// ByName returns the directive named name, or nil.
func (dirs Directives) ByName(name string) *Directive {
	for _, d := range dirs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Directive applies a runtime directive, e.g. "@skip(if: $x)".
type Directive struct {
	Name      string
	Arguments Arguments
}

// Value is implemented by every input value kind: Variable, scalar
// literals, enum literals, lists, and objects.
type Value interface {
	// Literal returns the Go value the literal spells out, WITHOUT resolving
	// Variable references. Variable returns its own name as a string; callers
	// that need variable substitution use ResolveValue instead.
	Literal() interface{}
}

// Variable references "$name".
type Variable struct {
	Name string
}

// Literal implements Value. A variable's "literal" is its own name; actual
// substitution happens via ResolveValue against a variables map.
func (v Variable) Literal() interface{} { return v.Name }

// IntValue is an integer literal.
type IntValue struct{ Value int64 }

// Literal implements Value.
func (v IntValue) Literal() interface{} { return v.Value }

// FloatValue is a floating-point literal.
type FloatValue struct{ Value float64 }

// Literal implements Value.
func (v FloatValue) Literal() interface{} { return v.Value }

// StringValue is a string literal.
type StringValue struct{ Value string }

// Literal implements Value.
func (v StringValue) Literal() interface{} { return v.Value }

// BooleanValue is a boolean literal.
type BooleanValue struct{ Value bool }

// Literal implements Value.
func (v BooleanValue) Literal() interface{} { return v.Value }

// NullValue is the literal "null".
type NullValue struct{}

// Literal implements Value.
func (NullValue) Literal() interface{} { return nil }

// EnumValue is a bare-name enum literal, e.g. "ACTIVE".
type EnumValue struct{ Value string }

// Literal implements Value.
func (v EnumValue) Literal() interface{} { return v.Value }

// ListValue is a literal list of values.
type ListValue struct{ Values []Value }

// Literal implements Value, recursively resolving each element's literal
// form (variables inside the list remain their own name; use ResolveValue to
// substitute).
func (v ListValue) Literal() interface{} {
	out := make([]interface{}, len(v.Values))
	for i, item := range v.Values {
		out[i] = item.Literal()
	}
	return out
}

// ObjectField assigns a value to a named field within an ObjectValue.
type ObjectField struct {
	Name  string
	Value Value
}

// ObjectValue is a literal input object.
type ObjectValue struct{ Fields []ObjectField }

// Literal implements Value.
func (v ObjectValue) Literal() interface{} {
	out := make(map[string]interface{}, len(v.Fields))
	for _, f := range v.Fields {
		out[f.Name] = f.Value.Literal()
	}
	return out
}

// VariableDefinition declares a variable accepted by an operation.
type VariableDefinition struct {
	Variable     Variable
	DefaultValue Value // nil if none given
}

// ResolveValue substitutes every Variable reference within value against
// vars, returning a plain JSON-compatible Go value (map[string]interface{},
// []interface{}, string, float64, int64, bool, nil). This is the
// variable-substitution step both FieldStorageKey and the graph store's
// write/read paths need.
func ResolveValue(value Value, vars map[string]interface{}) interface{} {
	switch v := value.(type) {
	case Variable:
		resolved, ok := vars[v.Name]
		if !ok {
			return nil
		}
		return resolved
	case ListValue:
		out := make([]interface{}, len(v.Values))
		for i, item := range v.Values {
			out[i] = ResolveValue(item, vars)
		}
		return out
	case ObjectValue:
		out := make(map[string]interface{}, len(v.Fields))
		for _, f := range v.Fields {
			out[f.Name] = ResolveValue(f.Value, vars)
		}
		return out
	default:
		return value.Literal()
	}
}
