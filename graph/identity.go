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

// DefaultRootID is the entity ID conventionally used for an operation's root
// object, used whenever a write/read/watch call doesn't supply its own
// RootID.
const DefaultRootID = "query"

// assignEntityID decides the entity ID a freshly-seen object at
// (parentID, storageKey) should be normalized under, following a three-tier
// precedence:
//
//  1. the host getDataID(obj) hook, if it returns a non-empty ID;
//  2. the derived ID "parentID.storageKey";
//  3. (handled by the caller, not here) the caller-supplied root ID, which
//     only applies to the operation's root object, not to nested ones.
func assignEntityID(getDataID graphcache.GetDataIDFunc, obj map[string]interface{}, parentID, storageKey string) string {
	if getDataID != nil {
		if id := getDataID(obj); id != "" {
			return id
		}
	}
	return fmt.Sprintf("%s.%s", parentID, storageKey)
}
