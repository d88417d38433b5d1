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

// Package operation implements ObservableOperation: a per-operation
// hot state machine combining an Executor subscription and a graph.Store
// watch into a single OperationState stream. Original code: the
// combination of a cache store and a push-based executor has no direct
// ancestor as a whole, though each of its pieces (deferred per-observer
// delivery, watch pause/resume, panics on internal invariant violations)
// follows conventions used elsewhere in this codebase (see DESIGN.md).
package operation

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/botobag/graphcache"
	"github.com/botobag/graphcache/ast"
	"github.com/botobag/graphcache/graph"
	"github.com/botobag/graphcache/internal/scheduler"
	"github.com/botobag/graphcache/observable"
)

// ErrMutationsNotObservable is returned by New when asked to observe a
// mutation.
var ErrMutationsNotObservable = errors.New("Mutations may not be observed.")

// ErrExecutionInProgress is returned by Execute/MaybeExecute when another
// execution is already running.
var ErrExecutionInProgress = errors.New("Cannot start a new execution when another execution is currently running.")

// Config is ObservableOperation's construction argument.
type Config struct {
	Graph     *graph.Store
	Executor  graphcache.Executor
	Operation *ast.OperationDefinition
	Fragments ast.FragmentMap

	// InitialVariables seeds OperationState.Variables before any Execute call.
	// Defaults to an empty variables map.
	InitialVariables graphcache.Variables
}

// StateObserver receives OperationState updates from Subscribe. Next is
// called once immediately (asynchronously) with the current state, then
// again every time the state changes; Error is called if the operation's
// Executor errors; Complete is never called by ObservableOperation itself
// (the operation has no terminal state while the cache it watches remains
// open) — it exists for symmetry with observable.Observer.
type StateObserver struct {
	Next     func(graphcache.OperationState)
	Error    func(err error)
	Complete func()
}

// Subscription is returned by Subscribe.
type Subscription struct {
	unsubscribe func()
	once        sync.Once
}

// Unsubscribe stops delivery to this subscriber. It does not affect the
// operation's underlying execution or watch.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}

// ObservableOperation is a per-operation hot state machine.
type ObservableOperation struct {
	mu sync.Mutex

	graphStore *graph.Store
	executor   graphcache.Executor
	operation  *ast.OperationDefinition
	fragments  ast.FragmentMap
	rootID     string

	state graphcache.OperationState

	executorSub *observable.Subscription
	watchSub    *observable.Subscription

	scheduler scheduler.Executor

	subscribers map[*subscriberEntry]struct{}
}

// New constructs an ObservableOperation and immediately registers its store
// watch.
func New(config Config) (*ObservableOperation, error) {
	if config.Operation.EffectiveType() == ast.OperationTypeMutation {
		return nil, ErrMutationsNotObservable
	}

	vars := config.InitialVariables
	if vars == nil {
		vars = graphcache.Variables{}
	}
	vars = vars.Clone()

	op := &ObservableOperation{
		graphStore:  config.Graph,
		executor:    config.Executor,
		operation:   config.Operation,
		fragments:   config.Fragments,
		rootID:      string(config.Operation.EffectiveType()),
		state:       graphcache.OperationState{Variables: vars},
		scheduler:   scheduler.NewSerialExecutor(),
		subscribers: make(map[*subscriberEntry]struct{}),
	}

	op.startWatch(vars, nil)
	return op, nil
}

// GetState returns a snapshot of the operation's current state.
func (op *ObservableOperation) GetState() graphcache.OperationState {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state.Clone()
}

// Subscribe registers observer and schedules delivery of the current state
// to it through the same asynchronous, deferred-delivery path as every
// other state change.
func (op *ObservableOperation) Subscribe(observer StateObserver) *Subscription {
	entry := &subscriberEntry{observer: observer}

	op.mu.Lock()
	op.subscribers[entry] = struct{}{}
	current := op.state.Clone()
	op.mu.Unlock()

	entry.deliver(current, op.scheduler)

	return &Subscription{unsubscribe: func() {
		op.mu.Lock()
		delete(op.subscribers, entry)
		op.mu.Unlock()
	}}
}

// updateState applies mutate to the operation's state under lock, then
// schedules a deferred, collapsing delivery of the resulting snapshot to
// every current subscriber.
func (op *ObservableOperation) updateState(mutate func(*graphcache.OperationState)) {
	op.mu.Lock()
	mutate(&op.state)
	snapshot := op.state.Clone()
	subs := make([]*subscriberEntry, 0, len(op.subscribers))
	for e := range op.subscribers {
		subs = append(subs, e)
	}
	op.mu.Unlock()

	for _, e := range subs {
		e.deliver(snapshot, op.scheduler)
	}
}

// Execute starts a new execution. variables defaults to the
// operation's current variables when nil.
func (op *ObservableOperation) Execute(variables graphcache.Variables) error {
	op.mu.Lock()
	if op.executorSub != nil {
		op.mu.Unlock()
		return ErrExecutionInProgress
	}
	if variables == nil {
		variables = op.state.Variables
	}
	vars := variables.Clone()
	op.mu.Unlock()

	op.updateState(func(s *graphcache.OperationState) {
		s.Loading = true
		s.Executing = true
	})

	op.pauseWatch()

	request := graphcache.ExecutorRequest{
		Operation: op.operation,
		Fragments: op.fragments,
		Variables: vars,
	}

	completed := false // guarded by op.mu
	sub := op.executor(request).Subscribe(observable.Observer{
		Next:  func(value interface{}) { op.handleExecutorNext(vars, value) },
		Error: func(err error) { op.handleExecutorError(err) },
		Complete: func() {
			op.mu.Lock()
			completed = true
			op.mu.Unlock()
			op.handleExecutorComplete()
		},
	})

	// An executor that completed before Subscribe returned has already
	// cleared the execution handle; don't resurrect it.
	op.mu.Lock()
	if !completed {
		op.executorSub = sub
	}
	op.mu.Unlock()
	return nil
}

func (op *ObservableOperation) handleExecutorNext(vars graphcache.Variables, value interface{}) {
	result, ok := value.(graphcache.ExecutorResult)
	if !ok {
		panic(fmt.Sprintf("operation: executor produced a value of unexpected type %T", value))
	}

	// Stop the current watch on every emission, not just the first, since a
	// multi-emission executor may otherwise race its own writes against a
	// stale watch.
	op.pauseWatch()

	if len(result.Errors) == 0 {
		writeResult, err := op.graphStore.Write(graph.WriteInput{
			RootID:       op.rootID,
			SelectionSet: op.operation.SelectionSet,
			Fragments:    op.fragments,
			Variables:    vars,
			Data:         result.Data,
		})
		if err != nil {
			panic(fmt.Sprintf("operation: executor result does not match operation's selection set: %v", err))
		}

		op.updateState(func(s *graphcache.OperationState) {
			s.Loading = false
			s.Variables = vars.Clone()
			s.Canonical = true
			s.Stale = false
			s.Errors = nil
			s.Data = writeResult.Data
		})
		op.startWatch(vars, writeResult.Data)
		return
	}

	// GraphQL data errors: do not write to the graph, and leave the watch
	// paused until a subsequent clean result recovers it.
	op.updateState(func(s *graphcache.OperationState) {
		s.Loading = false
		s.Variables = vars.Clone()
		s.Canonical = true
		s.Stale = false
		s.Errors = result.Errors
		s.Data = result.Data
	})
}

func (op *ObservableOperation) handleExecutorError(err error) {
	op.mu.Lock()
	subs := make([]*subscriberEntry, 0, len(op.subscribers))
	for e := range op.subscribers {
		subs = append(subs, e)
	}
	op.mu.Unlock()

	// Propagate the error to observers directly, not through the deferred
	// state-collapse path, since this isn't a state transition: state stays
	// unchanged and executing remains true until the executor completes.
	for _, e := range subs {
		if e.observer.Error != nil {
			e.observer.Error(err)
		}
	}
}

func (op *ObservableOperation) handleExecutorComplete() {
	op.mu.Lock()
	op.executorSub = nil
	op.mu.Unlock()

	op.updateState(func(s *graphcache.OperationState) {
		s.Loading = false
		s.Executing = false
	})
}

// StopExecuting cancels the in-flight execution, if any. It performs
// no graph write; a watch paused because an execution was in flight stays
// paused.
func (op *ObservableOperation) StopExecuting() {
	op.mu.Lock()
	sub := op.executorSub
	op.executorSub = nil
	op.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}

	op.updateState(func(s *graphcache.OperationState) {
		s.Loading = false
		s.Executing = false
	})
}

// MaybeExecute attempts to satisfy variables from the cache before falling
// back to Execute.
func (op *ObservableOperation) MaybeExecute(variables graphcache.Variables) error {
	op.mu.Lock()
	if op.executorSub != nil {
		op.mu.Unlock()
		return ErrExecutionInProgress
	}
	if variables == nil {
		variables = op.state.Variables
	}
	vars := variables.Clone()
	previous := op.state.Data
	op.mu.Unlock()

	// The watch is restarted for vars below; stop the current one first so
	// at most one is active and it never sees the variables change.
	op.pauseWatch()

	result, err := op.graphStore.Read(graph.ReadInput{
		RootID:       op.rootID,
		SelectionSet: op.operation.SelectionSet,
		Fragments:    op.fragments,
		Variables:    vars,
		PreviousData: previous,
	})
	if err != nil {
		if graphcache.IsPartialRead(err) {
			return op.Execute(vars)
		}
		// Any other failure reading from a store this same operation
		// maintains invariants over is a bug, not a recoverable cache
		// condition.
		panic(fmt.Sprintf("operation: maybeExecute: unexpected read error: %v", err))
	}

	op.updateState(func(s *graphcache.OperationState) {
		s.Variables = vars.Clone()
		s.Canonical = false
		s.Stale = result.Stale
		s.Data = result.Data
	})
	op.startWatch(vars, result.Data)
	return nil
}

// pauseWatch unsubscribes the current store watch, if any. A paused watch
// is not automatically resumed except by startWatch.
func (op *ObservableOperation) pauseWatch() {
	op.mu.Lock()
	sub := op.watchSub
	op.watchSub = nil
	op.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// startWatch registers a new store watch for vars, seeded with initialData
//. At most one watch may be active
// at a time.
func (op *ObservableOperation) startWatch(vars graphcache.Variables, initialData map[string]interface{}) {
	op.mu.Lock()
	if op.watchSub != nil {
		op.mu.Unlock()
		panic("operation: illegal double watch registration")
	}
	watchVars := vars.Clone()
	op.mu.Unlock()

	obs := op.graphStore.Watch(graph.WatchInput{
		RootID:       op.rootID,
		SelectionSet: op.operation.SelectionSet,
		Fragments:    op.fragments,
		Variables:    watchVars,
		InitialData:  initialData,
	})

	sub := obs.Subscribe(observable.Observer{
		Next: func(value interface{}) {
			result, ok := value.(graph.WatchResult)
			if !ok {
				return
			}

			op.mu.Lock()
			currentVars := op.state.Variables
			op.mu.Unlock()

			// A watch emission arriving for variables other than the ones this
			// watcher was started with means pauseWatch/startWatch raced, which
			// is an internal bug.
			if !variablesEqual(currentVars, watchVars) {
				panic("operation: watch observed under stale variables")
			}

			op.updateState(func(s *graphcache.OperationState) {
				s.Canonical = false
				s.Stale = result.Stale
				s.Data = result.Data
			})
		},
	})

	op.mu.Lock()
	op.watchSub = sub
	op.mu.Unlock()
}

func (op *ObservableOperation) subscriberList() []*subscriberEntry {
	op.mu.Lock()
	defer op.mu.Unlock()
	subs := make([]*subscriberEntry, 0, len(op.subscribers))
	for e := range op.subscribers {
		subs = append(subs, e)
	}
	return subs
}

func variablesEqual(a, b graphcache.Variables) bool {
	return reflect.DeepEqual(map[string]interface{}(a), map[string]interface{}(b))
}
