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

// Package graphcache implements a reactive, normalized cache for GraphQL
// operation results. See the graph, observable, and operation subpackages for
// the store, the observable primitive, and the per-operation state machine
// respectively.
package graphcache

import (
	"fmt"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
)

// Op describes the method that produced an error, e.g. "graph.Write".
type Op string

// ErrKind classifies an Error.
type ErrKind uint8

// Enumeration of ErrKind. Schema-aware error kinds (coercion, syntax,
// validation) don't apply here: graphcache's store is untyped and does no
// query validation, so the kind set is narrowed to what the core actually
// raises.
const (
	// ErrKindOther is an unclassified error.
	ErrKindOther ErrKind = iota
	// ErrKindPartialRead indicates a read could not be fully satisfied from the
	// current snapshot. Caller-recoverable.
	ErrKindPartialRead
	// ErrKindWriteShape indicates input data didn't match the shape implied by
	// a selection set.
	ErrKindWriteShape
	// ErrKindMissingFragment indicates a selection set referenced a fragment
	// name absent from the supplied fragment map.
	ErrKindMissingFragment
	// ErrKindExecutor wraps an error surfaced by a host-supplied Executor.
	ErrKindExecutor
	// ErrKindInternal indicates an invariant the core itself is responsible
	// for was violated.
	ErrKindInternal
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindOther:
		return "other error"
	case ErrKindPartialRead:
		return "partial read"
	case ErrKindWriteShape:
		return "write shape error"
	case ErrKindMissingFragment:
		return "missing fragment"
	case ErrKindExecutor:
		return "executor error"
	case ErrKindInternal:
		return "internal error"
	}
	return "unknown error kind"
}

// ErrorLocation is a 1-based line/column pointing into a GraphQL document.
type ErrorLocation struct {
	Line   uint
	Column uint
}

// ResponsePath is an array of "key" where each key is either a string
// (indicating a field name) or an integer (indicating an index into a list),
// serialized via a custom jsoniter encoder.
type ResponsePath struct {
	keys []interface{}
}

// AppendFieldName adds a field name to the end of the path.
func (path *ResponsePath) AppendFieldName(name string) {
	path.keys = append(path.keys, name)
}

// AppendIndex adds a list index to the end of the path.
func (path *ResponsePath) AppendIndex(index int) {
	path.keys = append(path.keys, index)
}

// Empty returns true if the path has no keys.
func (path ResponsePath) Empty() bool {
	return len(path.keys) == 0
}

// Keys returns the path keys (string or int elements).
func (path ResponsePath) Keys() []interface{} {
	return path.keys
}

type responsePathEncoder struct{}

var _ jsoniter.ValEncoder = responsePathEncoder{}

func (responsePathEncoder) IsEmpty(ptr unsafe.Pointer) bool {
	return len((*ResponsePath)(ptr).keys) == 0
}

func (responsePathEncoder) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	path := (*ResponsePath)(ptr)
	stream.WriteArrayStart()
	for i, key := range path.keys {
		if i > 0 {
			stream.WriteMore()
		}
		switch key := key.(type) {
		case string:
			stream.WriteString(key)
		case int:
			stream.WriteInt(key)
		default:
			stream.Error = fmt.Errorf("unsupported type %T in response path", key)
			return
		}
	}
	stream.WriteArrayEnd()
}

func init() {
	jsoniter.RegisterTypeEncoder("graphcache.ResponsePath", responsePathEncoder{})
}

// GraphQLError is the exported error shape consumed from and produced for
// executor results.
type GraphQLError struct {
	Message   string          `json:"message"`
	Locations []ErrorLocation `json:"locations,omitempty"`
	Path      ResponsePath    `json:"path,omitempty"`
}

// Error implements the error interface.
func (e *GraphQLError) Error() string {
	return e.Message
}

// Error is the error type raised internally by the store and the operation
// state machine. It carries the failing Op, a classifying ErrKind, and
// (optionally) the underlying cause.
type Error struct {
	Op    Op
	Kind  ErrKind
	Err   error
	field string
	// partialRead marks this Error as a caller-recoverable partial read,
	// distinct from every other ErrKind (which indicate real failures).
	partialRead bool
}

// NewError builds an *Error. If err is itself an *Error and op/kind are the
// zero value, they are inherited, letting callers wrap without re-stating
// Op/Kind at every frame.
func NewError(op Op, kind ErrKind, err error) *Error {
	e := &Error{Op: op, Kind: kind, Err: err}
	if inner, ok := err.(*Error); ok {
		if op == "" {
			e.Op = inner.Op
		}
		if kind == ErrKindOther {
			e.Kind = inner.Kind
		}
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err.Error())
		}
		return e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return e.Kind.String()
}

// Unwrap supports errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsPartialRead reports whether err (or a wrapped cause) is a
// PartialReadError: a read that could not be fully satisfied from the
// current snapshot, which callers may recover from by executing instead.
func IsPartialRead(err error) bool {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			if e.partialRead {
				return true
			}
			err = ce.Err
			continue
		}
		break
	}
	_ = e
	return false
}

// PartialReadField returns the field name named in a PartialReadError's
// message, or "" if err is not one.
func PartialReadField(err error) string {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			if ce.partialRead {
				return ce.field
			}
			err = ce.Err
			continue
		}
		break
	}
	_ = e
	return ""
}

// NewPartialReadError builds the PartialReadError for a scalar or
// reference field with no stored value.
func NewPartialReadError(op Op, field string, wantsReference bool) *Error {
	var msg string
	if wantsReference {
		msg = fmt.Sprintf("No graph reference found for field '%s'.", field)
	} else {
		msg = fmt.Sprintf("No scalar value found for field '%s'.", field)
	}
	return &Error{Op: op, Kind: ErrKindPartialRead, Err: fmt.Errorf("%s", msg), field: field, partialRead: true}
}
