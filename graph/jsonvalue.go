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
	jsoniter "github.com/json-iterator/go"
)

// scalarJSON is configured identically to jsoniter's ConfigCompatibleWithStandardLibrary
// for JSON-compatible marshaling semantics (map key sorting, float
// formatting matching encoding/json).
var scalarJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// scalarEqual reports whether two scalar (or list-of-scalar) values stored
// under the same storage key are equal for the purpose of the change
// journal. Values here are always
// already-decoded Go values (map[string]interface{}, []interface{}, string,
// float64, int64, bool, nil); rather than hand-roll a recursive comparator
// graphcache leans on jsoniter to canonicalize both sides to bytes and
// compares those (ast.FieldStorageKey does a similar canonicalization job
// for argument values in keys, with its own hand-written encoder; this does
// it for stored values).
func scalarEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	encodedA, errA := scalarJSON.Marshal(a)
	encodedB, errB := scalarJSON.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(encodedA) == string(encodedB)
}
