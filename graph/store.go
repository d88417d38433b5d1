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
	"sync"

	"github.com/botobag/graphcache"
	"github.com/botobag/graphcache/ast"
	"github.com/botobag/graphcache/observable"
)

const (
	opWrite graphcache.Op = "graph.Write"
	opRead  graphcache.Op = "graph.Read"
	opWatch graphcache.Op = "graph.Watch"
)

// Option configures a Store at construction time as a functional option
// passed to New, rather than a builder or env-driven setup — there is no
// config surface beyond Go construction.
type Option func(*Store)

// WithGetDataID installs the host identity hook: called with every
// freshly-seen object so the host can supply a stable entity ID (e.g. from
// a database primary key) instead of the derived parent-plus-storage-key
// identity.
func WithGetDataID(f graphcache.GetDataIDFunc) Option {
	return func(s *Store) { s.getDataID = f }
}

// WithDefaultRootID overrides the root entity ID used when a Write/Read/
// Watch call doesn't supply its own RootID.
func WithDefaultRootID(id string) Option {
	return func(s *Store) { s.defaultRootID = id }
}

// Store is the normalized graph store: a single logical instance
// holding one current Snapshot, mutated only through Write, and observed
// only through Watch.
type Store struct {
	mu            sync.Mutex
	snapshot      *Snapshot
	getDataID     graphcache.GetDataIDFunc
	defaultRootID string

	identities *identityTable
	lastProj   *projectionRecord

	watchers    map[*watcher]struct{}
	nextWatchID uint64
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		snapshot:      emptySnapshot(),
		defaultRootID: DefaultRootID,
		identities:    newIdentityTable(),
		watchers:      make(map[*watcher]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) rootID(requested string) string {
	if requested != "" {
		return requested
	}
	return s.defaultRootID
}

// WriteInput is the argument to Write.
type WriteInput struct {
	// RootID is the entity ID the operation's top-level selection set is
	// written against. Defaults to the Store's default root ID ("query"
	// unless overridden by WithDefaultRootID).
	RootID string

	SelectionSet ast.SelectionSet
	Fragments    ast.FragmentMap
	Variables    map[string]interface{}

	// Data is the result object to normalize, shaped like SelectionSet
	// expects: one entry per field's response key.
	Data map[string]interface{}
}

// WriteResult is the value Write returns on success.
type WriteResult struct {
	// Data is the projection of the just-written data as a subsequent Read
	// would produce it. The Store memoizes only its most recent projection,
	// so a Read of the same snapshot, root, selection set, and variables
	// returns this same map only while no other projection (a Read, a Watch
	// subscribe, or a watcher re-read of a different selection or variables)
	// has been made since; otherwise it returns an equal but distinct map.
	Data map[string]interface{}
}

// Write atomically merges input.Data into the store along input.SelectionSet,
// producing a new Snapshot that shares every untouched Node with the
// previous one. It returns the write-back projection of what was
// just written and notifies any Watch subscriptions whose read-plan
// intersects the fields this write actually changed.
func (s *Store) Write(input WriteInput) (WriteResult, error) {
	s.mu.Lock()

	rootID := s.rootID(input.RootID)

	w := &writer{
		store:     s,
		base:      s.snapshot,
		updates:   make(map[string]*Node),
		fragments: input.Fragments,
		vars:      input.Variables,
		journal:   newJournal(),
	}
	if err := w.writeEntity(rootID, input.SelectionSet, input.Data); err != nil {
		s.mu.Unlock()
		return WriteResult{}, err
	}

	next := s.snapshot.withUpdates(w.updates)
	s.snapshot = next

	data, err := s.projectLocked(next, rootID, input.SelectionSet, input.Fragments, input.Variables)
	if err != nil {
		s.mu.Unlock()
		return WriteResult{}, err
	}

	var pending []func()
	if !w.journal.Empty() {
		pending = s.prepareWatcherNotificationsLocked(w.journal)
	}

	s.mu.Unlock()

	// Observer callbacks run outside the lock so a subscriber that
	// re-enters the store (Read/Write/Watch again) from inside Next/Error
	// doesn't deadlock.
	for _, deliver := range pending {
		deliver()
	}

	return WriteResult{Data: data}, nil
}

// ReadInput is the argument to Read.
type ReadInput struct {
	RootID string

	SelectionSet ast.SelectionSet
	Fragments    ast.FragmentMap
	Variables    map[string]interface{}

	// PreviousData, if non-nil, is compared against the freshly read result
	// via identity-chain divergence to compute ReadResult.Stale.
	PreviousData map[string]interface{}
}

// ReadResult is the value Read returns on success.
type ReadResult struct {
	Data  map[string]interface{}
	Stale bool
}

// Read satisfies a selection set from the current snapshot without
// consulting an Executor. It fails with a PartialReadError
// (graphcache.IsPartialRead(err) == true) if any visited scalar or
// reference field has no stored value.
func (s *Store) Read(input ReadInput) (ReadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rootID := s.rootID(input.RootID)
	data, _, err := s.readLocked(rootID, input.SelectionSet, input.Fragments, input.Variables)
	if err != nil {
		return ReadResult{}, err
	}

	stale := false
	if input.PreviousData != nil {
		stale = treeStale(s.identities, data, input.PreviousData)
	}
	return ReadResult{Data: data, Stale: stale}, nil
}

// readLocked performs the actual walk, always recomputing the ReadPlan from
// scratch, and substitutes in the memoized projection object when one is
// available for this exact (snapshot, root, selection, variables) tuple so
// callers get reference equality across repeated reads and across a write
// followed by a read.
func (s *Store) readLocked(rootID string, set ast.SelectionSet, fragments ast.FragmentMap, vars map[string]interface{}) (map[string]interface{}, *ReadPlan, error) {
	p := &projector{store: s, snapshot: s.snapshot, fragments: fragments, vars: vars, plan: newReadPlan(), op: opRead}
	data, err := p.projectEntity(rootID, set)
	if err != nil {
		return nil, p.plan, err
	}

	if s.lastProj.matches(s.snapshot, rootID, set, vars) {
		data = s.lastProj.data
	} else {
		s.lastProj = &projectionRecord{snapshot: s.snapshot, rootID: rootID, selIdent: selectionSetIdentity(set), varsFP: variablesFingerprint(vars), data: data}
	}
	return data, p.plan, nil
}

// projectLocked is readLocked's write-path counterpart: same memoization,
// but using opWrite for any error it might raise (write always supplies
// complete data, so in practice this should never fail with a
// PartialReadError — a failure here indicates Write accepted data it
// shouldn't have).
func (s *Store) projectLocked(snapshot *Snapshot, rootID string, set ast.SelectionSet, fragments ast.FragmentMap, vars map[string]interface{}) (map[string]interface{}, error) {
	p := &projector{store: s, snapshot: snapshot, fragments: fragments, vars: vars, plan: newReadPlan(), op: opWrite}
	data, err := p.projectEntity(rootID, set)
	if err != nil {
		return nil, err
	}
	s.lastProj = &projectionRecord{snapshot: snapshot, rootID: rootID, selIdent: selectionSetIdentity(set), varsFP: variablesFingerprint(vars), data: data}
	return data, nil
}

// WatchInput is the argument to Watch.
type WatchInput struct {
	RootID string

	SelectionSet ast.SelectionSet
	Fragments    ast.FragmentMap
	Variables    map[string]interface{}

	// InitialData, if non-nil, seeds the subscribe-time read's PreviousData
	// and is what the initial-data short-circuit compares
	// against.
	InitialData map[string]interface{}
}

// WatchResult is the value pushed through the Observable Watch returns.
type WatchResult struct {
	Data  map[string]interface{}
	Stale bool
}

// Watch returns an Observable that, on subscribe, synchronously emits the
// current projection of SelectionSet (unless it's reference-equal to
// InitialData and not stale), then re-emits every time a later Write
// changes a field this selection set actually visited. Subscribing when
// the data can't yet be fully read
// (PartialReadError) registers the watcher without an initial emission;
// a later Write that changes a field the failed read visited before failing
// wakes it, and it emits once a re-read succeeds. A read that failed
// because the root entity did not exist visited no field, so such a watcher
// is not woken by later writes.
func (s *Store) Watch(input WatchInput) *observable.Observable {
	return observable.New(func(obs observable.Observer) func() {
		rootID := s.rootID(input.RootID)

		s.mu.Lock()
		w := &watcher{
			id:           s.nextWatchID,
			store:        s,
			rootID:       rootID,
			selectionSet: input.SelectionSet,
			fragments:    input.Fragments,
			vars:         input.Variables,
			observer:     obs,
		}
		s.nextWatchID++

		data, plan, err := s.readLocked(rootID, input.SelectionSet, input.Fragments, input.Variables)
		if err != nil {
			if !graphcache.IsPartialRead(err) {
				s.mu.Unlock()
				if obs.Error != nil {
					obs.Error(err)
				}
				return func() {}
			}
			// Partial read: register without emitting; a future Write may
			// complete the data. The plan covers every key visited before the
			// read failed, so a write to one of them wakes this watcher.
			w.plan = plan
			s.watchers[w] = struct{}{}
			s.mu.Unlock()
			return func() { s.unregisterWatcher(w) }
		}

		stale := treeStale(s.identities, data, input.InitialData)
		w.lastData = data
		w.plan = plan
		s.watchers[w] = struct{}{}
		s.mu.Unlock()

		suppressed := input.InitialData != nil && samePointer(data, input.InitialData) && !stale
		if !suppressed && obs.Next != nil {
			obs.Next(WatchResult{Data: data, Stale: stale})
		}

		return func() { s.unregisterWatcher(w) }
	})
}

func (s *Store) unregisterWatcher(w *watcher) {
	s.mu.Lock()
	delete(s.watchers, w)
	s.mu.Unlock()
}

// watcher is one live Watch subscription.
type watcher struct {
	id           uint64
	store        *Store
	rootID       string
	selectionSet ast.SelectionSet
	fragments    ast.FragmentMap
	vars         map[string]interface{}
	observer     observable.Observer

	lastData map[string]interface{}
	plan     *ReadPlan
}

// prepareWatcherNotificationsLocked re-reads, on the now-current snapshot,
// every watcher whose most recent read-plan intersects journal, updates that
// watcher's bookkeeping, and returns a closure per watcher that still needs
// to be told about the change. Must be called with s.mu held; the returned
// closures must be invoked only after s.mu is released.
func (s *Store) prepareWatcherNotificationsLocked(journal *Journal) []func() {
	var pending []func()

	for w := range s.watchers {
		if w.plan == nil || !w.plan.Intersects(journal) {
			continue
		}

		data, plan, err := s.readLocked(w.rootID, w.selectionSet, w.fragments, w.vars)
		if err != nil {
			if graphcache.IsPartialRead(err) {
				// A partial read here just means the written fields haven't filled
				// in everything this watcher needs yet; stay registered on its
				// previous plan so a later write can still wake it.
				continue
			}
			observer := w.observer
			deliverErr := err
			delete(s.watchers, w)
			if observer.Error != nil {
				pending = append(pending, func() { observer.Error(deliverErr) })
			}
			continue
		}

		stale := treeStale(s.identities, data, w.lastData)
		if samePointer(data, w.lastData) && !stale {
			w.plan = plan
			continue
		}

		w.lastData = data
		w.plan = plan
		if w.observer.Next != nil {
			observer := w.observer
			result := WatchResult{Data: data, Stale: stale}
			pending = append(pending, func() { observer.Next(result) })
		}
	}

	return pending
}

// GC is an opt-in mark-and-sweep maintenance operation. It is never invoked automatically; a host
// that wants to bound memory use calls it explicitly with the set of
// entity IDs it still considers live roots (typically the root IDs of every
// ObservableOperation it still has open).
func (s *Store) GC(roots ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[string]bool, len(s.snapshot.nodes))
	var mark func(id string)
	mark = func(id string) {
		if live[id] {
			return
		}
		node := s.snapshot.Get(id)
		if node == nil {
			return
		}
		live[id] = true
		for _, ref := range node.References {
			switch ref.Kind {
			case RefSingle:
				mark(ref.ID)
			case RefList:
				for i, id := range ref.IDs {
					if ref.Valid[i] {
						mark(id)
					}
				}
			}
		}
	}
	for _, root := range roots {
		mark(root)
	}

	swept := make(map[string]*Node, len(live))
	for id := range live {
		swept[id] = s.snapshot.nodes[id]
	}
	s.snapshot = &Snapshot{nodes: swept}
	// A swept snapshot invalidates any memoized projection that might
	// reference an entity no longer present.
	s.lastProj = nil
}

// DebugString renders the store's current snapshot in a stable,
// human-readable form, for inclusion in test failure messages.
func (s *Store) DebugString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.DebugString()
}

// DebugString renders snapshot's entities in a stable, human-readable form
// for test failure output. Its exact format is not a contract anything else
// in the module depends on.
func (s *Snapshot) DebugString() string {
	out := "{\n"
	for id, node := range s.nodes {
		out += fmt.Sprintf("  %s:\n", id)
		for key, value := range node.Scalars {
			out += fmt.Sprintf("    %s = %v\n", key, value)
		}
		for key, ref := range node.References {
			out += fmt.Sprintf("    %s -> %s\n", key, ref.debugString())
		}
	}
	out += "}"
	return out
}

func (r Ref) debugString() string {
	switch r.Kind {
	case RefNull:
		return "null"
	case RefSingle:
		return r.ID
	case RefList:
		s := "["
		for i, id := range r.IDs {
			if i > 0 {
				s += ", "
			}
			if !r.Valid[i] {
				s += "null"
			} else {
				s += id
			}
		}
		return s + "]"
	}
	return "?"
}
