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

// Journal records, for a single write transaction, which (entity ID,
// storage key) pairs were actually dirtied — where the new value differs
// from the old one by deep-equality for scalars or by identity for
// references. A watcher re-emits only when its most
// recent read-plan intersects a Journal.
type Journal struct {
	dirtied map[string]map[string]bool
}

func newJournal() *Journal {
	return &Journal{dirtied: make(map[string]map[string]bool)}
}

func (j *Journal) markDirty(entityID, storageKey string) {
	keys, ok := j.dirtied[entityID]
	if !ok {
		keys = make(map[string]bool)
		j.dirtied[entityID] = keys
	}
	keys[storageKey] = true
}

// IsDirty reports whether (entityID, storageKey) was written by the
// transaction this Journal records.
func (j *Journal) IsDirty(entityID, storageKey string) bool {
	keys, ok := j.dirtied[entityID]
	if !ok {
		return false
	}
	return keys[storageKey]
}

// EntityDirty reports whether any field of entityID was written.
func (j *Journal) EntityDirty(entityID string) bool {
	keys, ok := j.dirtied[entityID]
	return ok && len(keys) > 0
}

// Empty reports whether nothing was dirtied (write was a total no-op).
func (j *Journal) Empty() bool {
	return len(j.dirtied) == 0
}

// ReadPlan is the set of (entity ID, storage key) pairs visited by a single
// read, recomputed on every re-read.
type ReadPlan struct {
	visited map[string]map[string]bool
}

func newReadPlan() *ReadPlan {
	return &ReadPlan{visited: make(map[string]map[string]bool)}
}

func (p *ReadPlan) record(entityID, storageKey string) {
	keys, ok := p.visited[entityID]
	if !ok {
		keys = make(map[string]bool)
		p.visited[entityID] = keys
	}
	keys[storageKey] = true
}

// Intersects reports whether any pair in this plan was dirtied by j. An
// empty plan (for example from a read that failed because its root entity
// did not exist) never intersects.
func (p *ReadPlan) Intersects(j *Journal) bool {
	for entityID, keys := range p.visited {
		dirtyKeys, ok := j.dirtied[entityID]
		if !ok {
			continue
		}
		for key := range keys {
			if dirtyKeys[key] {
				return true
			}
		}
	}
	return false
}
