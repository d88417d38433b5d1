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

	"github.com/botobag/graphcache/ast"
)

// writer walks a selection set in lockstep with a result object, merging it
// into a working set of entity updates. A writer is
// single-use, scoped to one Write call.
type writer struct {
	store     *Store
	base      *Snapshot
	updates   map[string]*Node
	fragments ast.FragmentMap
	vars      map[string]interface{}
	journal   *Journal
}

// nodeFor returns the in-progress Node for id, cloning it from the base
// snapshot (or allocating a fresh one) the first time this write touches it.
func (w *writer) nodeFor(id string) *Node {
	if n, ok := w.updates[id]; ok {
		return n
	}
	if existing := w.base.Get(id); existing != nil {
		clone := existing.clone()
		w.updates[id] = clone
		return clone
	}
	n := newNode()
	w.updates[id] = n
	return n
}

func (w *writer) writeEntity(entityID string, set ast.SelectionSet, data map[string]interface{}) error {
	fields, err := ast.WalkSelections(set, w.fragments, w.vars)
	if err != nil {
		return newMissingFragmentError(opWrite, err)
	}

	node := w.nodeFor(entityID)
	for _, field := range fields {
		responseKey := field.ResponseKey()
		value, ok := data[responseKey]
		if !ok {
			return newWriteShapeError(opWrite, responseKey, "missing from input data")
		}

		storageKey := ast.FieldStorageKey(field, w.vars)

		if len(field.SelectionSet) == 0 {
			old, hadOld := node.Scalars[storageKey]
			if !hadOld || !scalarEqual(old, value) {
				node.Scalars[storageKey] = value
				w.journal.markDirty(entityID, storageKey)
			}
			continue
		}

		ref, err := w.writeReference(entityID, storageKey, field, value)
		if err != nil {
			return err
		}

		oldRef, hadOldRef := node.References[storageKey]
		if !hadOldRef || !oldRef.Equal(ref) {
			node.References[storageKey] = ref
			w.journal.markDirty(entityID, storageKey)
		}
	}
	return nil
}

func (w *writer) writeReference(parentID, storageKey string, field *ast.Field, value interface{}) (Ref, error) {
	switch v := value.(type) {
	case nil:
		return NullRef(), nil

	case map[string]interface{}:
		childID := assignEntityID(w.store.getDataID, v, parentID, storageKey)
		if err := w.writeEntity(childID, field.SelectionSet, v); err != nil {
			return Ref{}, err
		}
		return SingleRef(childID), nil

	case []interface{}:
		ids := make([]string, len(v))
		valid := make([]bool, len(v))
		for i, item := range v {
			switch elem := item.(type) {
			case nil:
				valid[i] = false
			case map[string]interface{}:
				childKey := fmt.Sprintf("%s.%d", storageKey, i)
				childID := assignEntityID(w.store.getDataID, elem, parentID, childKey)
				if err := w.writeEntity(childID, field.SelectionSet, elem); err != nil {
					return Ref{}, err
				}
				ids[i] = childID
				valid[i] = true
			default:
				return Ref{}, newWriteShapeError(opWrite, field.Name, "expected an object or null in a list of entities")
			}
		}
		return ListRef(ids, valid), nil

	default:
		return Ref{}, newWriteShapeError(opWrite, field.Name, "expected an object, null, or list for a field with a sub-selection")
	}
}
