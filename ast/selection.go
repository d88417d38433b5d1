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

package ast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MissingFragmentError is raised by WalkSelections when a FragmentSpread
// names a fragment absent from the supplied FragmentMap.
type MissingFragmentError struct {
	Name string
}

func (e *MissingFragmentError) Error() string {
	return fmt.Sprintf("ast: unknown fragment %q", e.Name)
}

// FieldStorageKey computes the normalized storage key a Field's response
// value is kept under in the graph: the bare field name when it takes no
// arguments, else "name({k1:v1,k2:v2,...})" with argument names sorted
// lexicographically and variable references substituted against vars.
//
// This follows the argument-canonicalization discipline normalized caches
// use to give two syntactically different but semantically identical field
// calls the same storage slot. It is original domain logic: a typed,
// schema-aware executor would key by a resolved schema field rather than a
// canonical argument string.
func FieldStorageKey(field *Field, vars map[string]interface{}) string {
	if len(field.Arguments) == 0 {
		return field.Name
	}

	names := make([]string, len(field.Arguments))
	values := make(map[string]Value, len(field.Arguments))
	for i, arg := range field.Arguments {
		names[i] = arg.Name
		values[arg.Name] = arg.Value
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(field.Name)
	b.WriteString("({")
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte(':')
		writeCanonicalValue(&b, ResolveValue(values[name], vars))
	}
	b.WriteString("})")
	return b.String()
}

// writeCanonicalValue serializes a resolved (variable-substituted) Go value
// deterministically: object keys sorted, no whitespace. This mirrors the
// shape of encoding/json but is hand-rolled because canonicalization needs
// sorted map keys, which encoding/json does not guarantee across versions
// for map[string]interface{} in the same way a from-scratch writer can
// pin down explicitly.
func writeCanonicalValue(b *strings.Builder, v interface{}) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		b.WriteString(strconv.Quote(val))
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case []interface{}:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonicalValue(b, item)
		}
		b.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonicalValue(b, val[k])
		}
		b.WriteByte('}')
	default:
		fmt.Fprintf(b, "%v", val)
	}
}

// FlatSelection is a Field selection flattened out of any enclosing
// fragment spreads and inline fragments, paired with the skip/include
// verdict already applied.
type FlatSelection struct {
	Field *Field
}

// WalkSelections flattens set, recursively inlining FragmentSpread and
// InlineFragment selections and evaluating @skip/@include directives,
// yielding the Field selections that would actually be visited.
// Type conditions on inline fragments and fragment definitions are not
// checked against any schema — every inline
// fragment and fragment spread is always taken.
//
// Grounded on the selection-flattening algorithm a schema-aware GraphQL
// executor uses during execution, reimplemented over the untyped AST since
// there is no schema to resolve type conditions against.
func WalkSelections(set SelectionSet, fragments FragmentMap, vars map[string]interface{}) ([]*Field, error) {
	var out []*Field
	if err := walkInto(set, fragments, vars, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func walkInto(set SelectionSet, fragments FragmentMap, vars map[string]interface{}, out *[]*Field, seen map[string]bool) error {
	for _, sel := range set {
		switch s := sel.(type) {
		case *Field:
			if skipSelection(s.Directives, vars) {
				continue
			}
			*out = append(*out, s)

		case *FragmentSpread:
			if skipSelection(s.Directives, vars) {
				continue
			}
			if seen != nil && seen[s.Name] {
				// Fragment cycles can't occur in a well-formed document; guard
				// anyway so a malformed one can't spin forever.
				continue
			}
			frag, ok := fragments[s.Name]
			if !ok {
				return &MissingFragmentError{Name: s.Name}
			}
			nextSeen := map[string]bool{s.Name: true}
			for k := range seen {
				nextSeen[k] = true
			}
			if err := walkInto(frag.SelectionSet, fragments, vars, out, nextSeen); err != nil {
				return err
			}

		case *InlineFragment:
			if skipSelection(s.Directives, vars) {
				continue
			}
			if err := walkInto(s.SelectionSet, fragments, vars, out, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// skipSelection evaluates @skip(if:) and @include(if:) against vars,
// reporting whether the selection carrying dirs should be omitted.
func skipSelection(dirs Directives, vars map[string]interface{}) bool {
	if d := dirs.ByName("skip"); d != nil {
		if cond := boolArg(d.Arguments, vars); cond {
			return true
		}
	}
	if d := dirs.ByName("include"); d != nil {
		if cond := boolArg(d.Arguments, vars); !cond {
			return true
		}
	}
	return false
}

func boolArg(args Arguments, vars map[string]interface{}) bool {
	arg := args.ByName("if")
	if arg == nil {
		return false
	}
	resolved := ResolveValue(arg.Value, vars)
	b, _ := resolved.(bool)
	return b
}
