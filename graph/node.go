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

// Package graph implements the normalized graph store: entity
// nodes keyed by opaque entity ID, immutable snapshots, and the write/
// read/watch operations layered over them. This is the largest and most
// novel component in the module — normalized entity caches aren't a common
// library shape, so the store's shape is original, grounded by analogy on
// the "Manager holding a collection of keyed, cached units" discipline of a
// dataloader-style package and on the recursive selection-set walk a
// GraphQL executor performs.
package graph

// Node is a single normalized entity: its scalar field values and its
// references to other entities, both keyed by field storage key. A Node carries no type tag; identity is opaque to the
// store.
type Node struct {
	// Scalars holds storage-key -> JSON-compatible scalar (or list-of-scalar)
	// value.
	Scalars map[string]interface{}

	// References holds storage-key -> Ref, for fields whose value is itself
	// one or more entities.
	References map[string]Ref
}

func newNode() *Node {
	return &Node{
		Scalars:    make(map[string]interface{}),
		References: make(map[string]Ref),
	}
}

func (n *Node) clone() *Node {
	clone := newNode()
	for k, v := range n.Scalars {
		clone.Scalars[k] = v
	}
	for k, v := range n.References {
		clone.References[k] = v
	}
	return clone
}

// Ref is the value recorded under a storage key that points at other
// entities: either a single entity ID, a list of them (possibly containing
// nils, for sparse/nullable list elements), or null.
//
// Exactly one of Single, List, or Null is meaningful; Kind says which.
type Ref struct {
	Kind  RefKind
	ID    string   // meaningful when Kind == RefSingle
	IDs   []string // meaningful when Kind == RefList; "" marks a null element
	Valid []bool   // parallel to IDs; Valid[i] == false means a null element
}

// RefKind discriminates the shape of a Ref.
type RefKind uint8

// Enumeration of RefKind.
const (
	// RefNull records that the field's value is the JSON literal null.
	RefNull RefKind = iota
	// RefSingle records a reference to exactly one entity.
	RefSingle
	// RefList records a reference to a (possibly empty, possibly sparse) list
	// of entities.
	RefList
)

// SingleRef builds a Ref pointing at a single entity.
func SingleRef(id string) Ref {
	return Ref{Kind: RefSingle, ID: id}
}

// NullRef builds a Ref recording a null reference value.
func NullRef() Ref {
	return Ref{Kind: RefNull}
}

// ListRef builds a Ref pointing at an ordered list of entities. A "" entry
// in ids paired with false in valid at the same index records a null list
// element.
func ListRef(ids []string, valid []bool) Ref {
	return Ref{Kind: RefList, IDs: ids, Valid: valid}
}

// Equal reports whether two Refs point at the same entity or entities,
// regardless of which specific Node values those entities currently hold
//.
func (r Ref) Equal(other Ref) bool {
	if r.Kind != other.Kind {
		return false
	}
	switch r.Kind {
	case RefNull:
		return true
	case RefSingle:
		return r.ID == other.ID
	case RefList:
		if len(r.IDs) != len(other.IDs) {
			return false
		}
		for i := range r.IDs {
			if r.Valid[i] != other.Valid[i] {
				return false
			}
			if r.Valid[i] && r.IDs[i] != other.IDs[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Snapshot is an immutable entity-ID -> Node mapping.
// A write produces a new Snapshot that shares every Node unaffected by the
// write with its parent. Watchers detect "did anything I read change" from
// the write's Journal intersected with their ReadPlan, not by comparing
// snapshots.
type Snapshot struct {
	nodes map[string]*Node
}

func emptySnapshot() *Snapshot {
	return &Snapshot{nodes: make(map[string]*Node)}
}

// Get returns the Node stored under id, or nil if no such entity exists in
// this snapshot.
func (s *Snapshot) Get(id string) *Node {
	return s.nodes[id]
}

// Has reports whether id names an entity in this snapshot.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// withUpdates returns a new Snapshot equal to s except that every (id, node)
// pair in updates replaces whatever s had for that id. Nodes not mentioned
// in updates are shared, unchanged, with the parent snapshot.
func (s *Snapshot) withUpdates(updates map[string]*Node) *Snapshot {
	next := &Snapshot{nodes: make(map[string]*Node, len(s.nodes)+len(updates))}
	for id, node := range s.nodes {
		next.nodes[id] = node
	}
	for id, node := range updates {
		next.nodes[id] = node
	}
	return next
}
