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

import (
	"github.com/botobag/graphcache/ast"
	"github.com/botobag/graphcache/observable"
)

// ExecutorRequest is what an ObservableOperation hands to the host-supplied
// Executor on execute()/maybeExecute().
type ExecutorRequest struct {
	Operation *ast.OperationDefinition
	Fragments ast.FragmentMap
	Variables Variables
}

// ExecutorResult is a single value an Executor pushes through its returned
// Observable. An Executor "may emit zero or more next values before
// completing or erroring"; each one carries its own Data/Errors pair.
type ExecutorResult struct {
	Data   map[string]interface{}
	Errors []*GraphQLError
}

// Executor is the external collaborator ObservableOperation drives to
// actually run an operation. A host implementation might run a
// resolver engine in-process, issue an HTTP request, or replay a
// subscription transport — graphcache only requires that unsubscribing from
// the returned Observable cancels any in-flight work.
type Executor func(request ExecutorRequest) *observable.Observable

// GetDataIDFunc is the host identity hook: given a freshly received
// object for some position in a selection set, return the entity ID it
// should be normalized under, or "" to fall back to the derived
// parent-plus-storage-key identity.
type GetDataIDFunc func(object map[string]interface{}) string
