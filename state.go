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

package graphcache

// Variables is a GraphQL variables map: variable name to JSON-compatible
// value.
type Variables map[string]interface{}

// Clone makes a shallow copy of the variables map. A nil receiver clones to
// an empty, non-nil map so that OperationState.Variables is never nil.
func (v Variables) Clone() Variables {
	clone := make(Variables, len(v))
	for k, val := range v {
		clone[k] = val
	}
	return clone
}

// OperationState is the value an ObservableOperation pushes to its
// subscribers.
type OperationState struct {
	// Loading is true while an execute()-triggered request hasn't produced its
	// first result yet.
	Loading bool

	// Executing is true while an executor subscription is outstanding.
	Executing bool

	// Variables holds the variables of the most recent execution result or
	// cache read applied to this state (or the initial variables if none has
	// been applied yet). An execution that has started but not yet produced
	// a result leaves it unchanged.
	Variables Variables

	// Canonical is true when Data was produced directly by the executor's most
	// recent emission (or hasn't yet been superseded by a graph-watch
	// emission).
	Canonical bool

	// Stale is true when the entity behind some object in Data differs from
	// the entity behind the same position in the previously shown data (the
	// identity chain changed). Data is still the current snapshot's
	// projection; values from the previously shown data are not carried over.
	Stale bool

	// Errors carries GraphQL data errors from the most recent execution
	// result, if any.
	Errors []*GraphQLError

	// Data is the currently readable result, or nil if none has ever been
	// produced.
	Data map[string]interface{}
}

// Clone makes a deep-enough copy of s for safe storage in an immutable
// history (Variables and Errors slices are copied; Data is shared, since the
// store's projection discipline makes Data itself immutable once produced).
func (s OperationState) Clone() OperationState {
	clone := s
	clone.Variables = s.Variables.Clone()
	if s.Errors != nil {
		clone.Errors = make([]*GraphQLError, len(s.Errors))
		copy(clone.Errors, s.Errors)
	}
	return clone
}
