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

package graph

import (
	"fmt"

	"github.com/botobag/graphcache"
)

// newPartialReadScalarError builds the error for a missing scalar value:
// "No scalar value found for field '<name>'."
func newPartialReadScalarError(op graphcache.Op, field string) *graphcache.Error {
	return graphcache.NewPartialReadError(op, field, false)
}

// newPartialReadReferenceError builds the error for a missing graph
// reference: "No graph reference found for field '<name>'."
func newPartialReadReferenceError(op graphcache.Op, field string) *graphcache.Error {
	return graphcache.NewPartialReadError(op, field, true)
}

// newWriteShapeError reports that write's input data didn't match the shape
// implied by the selection set being written.
func newWriteShapeError(op graphcache.Op, field string, reason string) *graphcache.Error {
	return graphcache.NewError(op, graphcache.ErrKindWriteShape, fmt.Errorf("field %q: %s", field, reason))
}

// newMissingFragmentError wraps ast.MissingFragmentError as a graphcache.Error.
func newMissingFragmentError(op graphcache.Op, err error) *graphcache.Error {
	return graphcache.NewError(op, graphcache.ErrKindMissingFragment, err)
}
