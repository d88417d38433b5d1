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

package operation_test

import (
	"time"

	"github.com/botobag/graphcache"
	"github.com/botobag/graphcache/ast"
	"github.com/botobag/graphcache/ast/parser"
	"github.com/botobag/graphcache/graph"
	"github.com/botobag/graphcache/graphcachetest"
	"github.com/botobag/graphcache/internal/testutil"
	"github.com/botobag/graphcache/operation"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func mustParseOperation(src string) (*ast.OperationDefinition, ast.FragmentMap) {
	doc, err := parser.Parse(src)
	Expect(err).ShouldNot(HaveOccurred())
	Expect(doc.Operations).Should(HaveLen(1))
	return doc.Operations[0], ast.FragmentMapOf(doc)
}

func mustParseSelectionSet(src string) ast.SelectionSet {
	set, err := parser.ParseSelectionSet(src)
	Expect(err).ShouldNot(HaveOccurred())
	return set
}

func newOperation(store *graph.Store, executor graphcache.Executor, src string) *operation.ObservableOperation {
	def, fragments := mustParseOperation(src)
	op, err := operation.New(operation.Config{
		Graph:     store,
		Executor:  executor,
		Operation: def,
		Fragments: fragments,
	})
	Expect(err).ShouldNot(HaveOccurred())
	return op
}

// drainUntil reads from states until pred holds, failing the test if a
// second passes without a qualifying state. It exists because deferred
// delivery may collapse several state changes into fewer observed values,
// so a test can't assume a fixed number of emissions ahead of time.
func drainUntil(states <-chan graphcache.OperationState, pred func(graphcache.OperationState) bool) graphcache.OperationState {
	timeout := time.After(time.Second)
	for {
		select {
		case s := <-states:
			if pred(s) {
				return s
			}
		case <-timeout:
			Fail("timed out waiting for a matching operation state")
		}
	}
}

func subscribeStates(op *operation.ObservableOperation) <-chan graphcache.OperationState {
	states := make(chan graphcache.OperationState, 16)
	op.Subscribe(operation.StateObserver{Next: func(s graphcache.OperationState) { states <- s }})
	return states
}

var _ = Describe("ObservableOperation", func() {
	Describe("an operation with no execute call (S1)", func() {
		It("stays passive and ignores a subsequent write to the same fields", func() {
			store := graph.New()
			op := newOperation(store, graphcachetest.NewFuncExecutor().Executor(), "{ a b c }")

			initial := op.GetState()
			Expect(initial.Loading).Should(BeFalse())
			Expect(initial.Executing).Should(BeFalse())
			Expect(initial.Variables).Should(Equal(graphcache.Variables{}))
			Expect(initial.Canonical).Should(BeFalse())
			Expect(initial.Stale).Should(BeFalse())
			Expect(initial.Errors).Should(BeEmpty())
			Expect(initial.Data).Should(BeNil())

			_, err := store.Write(graph.WriteInput{
				RootID:       "query",
				SelectionSet: mustParseSelectionSet("{ a b c }"),
				Data:         map[string]interface{}{"a": 1, "b": 2, "c": 3},
			})
			Expect(err).ShouldNot(HaveOccurred())

			Consistently(op.GetState).Should(Equal(initial))
		})
	})

	Describe("execute against an empty cache with an asynchronously-resolving executor (S2)", func() {
		It("reports loading before the canonical result lands", func() {
			store := graph.New()
			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ a b c }")

			release := exec.QueueDeferredResult(graphcache.ExecutorResult{
				Data: map[string]interface{}{"a": 1, "b": 2, "c": 3},
			})

			vars := graphcache.Variables{"x": 1, "y": 2, "z": 3}
			Expect(op.Execute(vars)).Should(Succeed())

			loading := op.GetState()
			Expect(loading.Loading).Should(BeTrue())
			Expect(loading.Executing).Should(BeTrue())
			Expect(loading.Variables).Should(Equal(graphcache.Variables{}))

			release()

			Eventually(func() bool { return op.GetState().Loading }).Should(BeFalse())

			final := op.GetState()
			Expect(final.Executing).Should(BeFalse())
			Expect(final.Variables).Should(Equal(vars))
			Expect(final.Canonical).Should(BeTrue())
			Expect(final.Stale).Should(BeFalse())
			Expect(final.Errors).Should(BeEmpty())
			Expect(final.Data).Should(Equal(map[string]interface{}{"a": 1, "b": 2, "c": 3}))
		})
	})

	Describe("execute with a synchronously-resolving executor (S3)", func() {
		It("never surfaces an intermediate loading state", func() {
			store := graph.New()
			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ a b c }")

			exec.QueueResult(graphcache.ExecutorResult{
				Data: map[string]interface{}{"a": 1, "b": 2, "c": 3},
			})

			vars := graphcache.Variables{"x": 1}
			Expect(op.Execute(vars)).Should(Succeed())

			// Execute only returns once the synchronous executor has already run
			// through Next and Complete on the same call stack, so the state is
			// already final by the time this observes it.
			final := op.GetState()
			Expect(final.Loading).Should(BeFalse())
			Expect(final.Executing).Should(BeFalse())
			Expect(final.Canonical).Should(BeTrue())
			Expect(final.Stale).Should(BeFalse())
			Expect(final.Variables).Should(Equal(vars))
			Expect(final.Data).Should(Equal(map[string]interface{}{"a": 1, "b": 2, "c": 3}))
		})
	})

	Describe("an active watch whose referenced entity is swapped out from under it (S4)", func() {
		It("reports stale rather than failing the read", func() {
			getDataID := func(obj map[string]interface{}) string {
				if uid, ok := obj["uid"].(string); ok {
					return uid
				}
				return ""
			}
			store := graph.New(graph.WithGetDataID(getDataID))
			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ foo { uid a b c } }")

			exec.QueueResult(graphcache.ExecutorResult{
				Data: map[string]interface{}{
					"foo": map[string]interface{}{"uid": "1", "a": 1, "b": 2, "c": 3},
				},
			})
			Expect(op.Execute(nil)).Should(Succeed())

			first := op.GetState()
			Expect(first.Canonical).Should(BeTrue())
			Expect(first.Stale).Should(BeFalse())

			// A second entity is written under "foo", with a distinct identity but
			// every field the selection needs, so the watch's re-read succeeds and
			// only the identity divergence is exercised.
			_, err := store.Write(graph.WriteInput{
				RootID:       "query",
				SelectionSet: mustParseSelectionSet("{ foo { uid a b c } }"),
				Data: map[string]interface{}{
					"foo": map[string]interface{}{"uid": "2", "a": 10, "b": 20, "c": 30},
				},
			})
			Expect(err).ShouldNot(HaveOccurred())

			Eventually(func() bool { return op.GetState().Stale }).Should(BeTrue())

			final := op.GetState()
			Expect(final.Canonical).Should(BeFalse())
			Expect(final.Data).Should(Equal(map[string]interface{}{
				"foo": map[string]interface{}{"uid": "2", "a": 10, "b": 20, "c": 30},
			}))
		})
	})

	Describe("maybeExecute against a fully cached selection (S5)", func() {
		It("resolves from the graph without invoking the executor", func() {
			store := graph.New()
			_, err := store.Write(graph.WriteInput{
				RootID:       "query",
				SelectionSet: mustParseSelectionSet("{ a b c }"),
				Data:         map[string]interface{}{"a": 1, "b": 2, "c": 3},
			})
			Expect(err).ShouldNot(HaveOccurred())

			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ a b c }")

			Expect(op.MaybeExecute(nil)).Should(Succeed())

			final := op.GetState()
			Expect(final.Canonical).Should(BeFalse())
			Expect(final.Stale).Should(BeFalse())
			Expect(final.Data).Should(Equal(map[string]interface{}{"a": 1, "b": 2, "c": 3}))
			Expect(exec.Requests()).Should(BeEmpty())
		})
	})

	Describe("a multi-emission executor interleaved with an external write (S6)", func() {
		It("surfaces each executor value and the external write, in order", func() {
			store := graph.New()
			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ a }")

			emit := exec.QueueSteppedResults(
				graphcache.ExecutorResult{Data: map[string]interface{}{"a": 1}},
				graphcache.ExecutorResult{Data: map[string]interface{}{"a": 2}},
				graphcache.ExecutorResult{Data: map[string]interface{}{"a": 3}},
			)
			Expect(op.Execute(nil)).Should(Succeed())

			emit()
			Eventually(func() interface{} { return op.GetState().Data }).
				Should(Equal(map[string]interface{}{"a": 1}))
			Expect(op.GetState().Canonical).Should(BeTrue())

			emit()
			Eventually(func() interface{} { return op.GetState().Data }).
				Should(Equal(map[string]interface{}{"a": 2}))
			Expect(op.GetState().Canonical).Should(BeTrue())

			_, err := store.Write(graph.WriteInput{
				RootID:       "query",
				SelectionSet: mustParseSelectionSet("{ a }"),
				Data:         map[string]interface{}{"a": 99},
			})
			Expect(err).ShouldNot(HaveOccurred())

			Eventually(func() interface{} { return op.GetState().Data }).
				Should(Equal(map[string]interface{}{"a": 99}))
			Expect(op.GetState().Canonical).Should(BeFalse())

			emit()
			Eventually(func() interface{} { return op.GetState().Data }).
				Should(Equal(map[string]interface{}{"a": 3}))
			Expect(op.GetState().Canonical).Should(BeTrue())

			op.StopExecuting()
			Eventually(func() bool { return op.GetState().Executing }).Should(BeFalse())
			Expect(op.GetState().Loading).Should(BeFalse())
		})
	})

	Describe("testable invariants", func() {
		It("never reports loading without executing (invariant 1)", func() {
			store := graph.New()
			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ a }")

			initial := op.GetState()
			Expect(initial.Executing).Should(BeFalse())
			Expect(initial.Loading).Should(BeFalse())

			release := exec.QueueDeferredResult(graphcache.ExecutorResult{Data: map[string]interface{}{"a": 1}})
			Expect(op.Execute(nil)).Should(Succeed())
			op.StopExecuting()
			release()

			Consistently(func() bool {
				s := op.GetState()
				return !s.Executing && s.Loading
			}).Should(BeFalse())
		})

		It("delivers the canonical result as the next non-loading emission (invariant 2)", func() {
			store := graph.New()
			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ a b c }")

			states := subscribeStates(op)
			drainUntil(states, func(graphcache.OperationState) bool { return true })

			exec.QueueResult(graphcache.ExecutorResult{Data: map[string]interface{}{"a": 1, "b": 2, "c": 3}})
			vars := graphcache.Variables{"x": 1}
			Expect(op.Execute(vars)).Should(Succeed())

			final := drainUntil(states, func(s graphcache.OperationState) bool { return !s.Loading })
			Expect(final.Variables).Should(Equal(vars))
			Expect(final.Canonical).Should(BeTrue())
			Expect(final.Stale).Should(BeFalse())
			Expect(final.Errors).Should(BeEmpty())
			Expect(final.Data).Should(Equal(map[string]interface{}{"a": 1, "b": 2, "c": 3}))
		})

		It("leaves the graph snapshot untouched on a data-error result (invariant 3)", func() {
			store := graph.New()
			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ a }")

			exec.QueueResult(graphcache.ExecutorResult{
				Errors: []*graphcache.GraphQLError{{Message: "boom"}},
			})
			Expect(op.Execute(nil)).Should(Succeed())

			final := op.GetState()
			Expect(final.Canonical).Should(BeTrue())
			Expect(final.Stale).Should(BeFalse())
			Expect(final.Data).Should(BeNil())
			Expect(final.Errors).Should(testutil.ConsistOfGraphQLErrors(
				testutil.MatchGraphQLError(testutil.MessageEqual("boom")),
			))

			_, err := store.Read(graph.ReadInput{RootID: "query", SelectionSet: mustParseSelectionSet("{ a }")})
			Expect(graphcache.IsPartialRead(err)).Should(BeTrue())
		})

		It("refuses to start a second execution while one is in flight (invariant 6)", func() {
			store := graph.New()
			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ a }")

			release := exec.QueueDeferredResult(graphcache.ExecutorResult{Data: map[string]interface{}{"a": 1}})
			defer release()

			Expect(op.Execute(nil)).Should(Succeed())

			err := op.Execute(nil)
			Expect(err).Should(MatchError(operation.ErrExecutionInProgress))
			Expect(err.Error()).Should(Equal("Cannot start a new execution when another execution is currently running."))

			Expect(op.MaybeExecute(nil)).Should(MatchError(operation.ErrExecutionInProgress))
		})
	})

	Describe("round-trip and idempotence properties", func() {
		It("lets a subscriber unsubscribe before its primed delivery runs", func() {
			store := graph.New()
			op := newOperation(store, graphcachetest.NewFuncExecutor().Executor(), "{ a }")

			sub := op.Subscribe(operation.StateObserver{Next: func(graphcache.OperationState) {}})
			sub.Unsubscribe()
			sub.Unsubscribe()

			states := subscribeStates(op)
			drainUntil(states, func(graphcache.OperationState) bool { return true })
		})

		It("treats a second stopExecuting call as a no-op", func() {
			store := graph.New()
			exec := graphcachetest.NewFuncExecutor()
			op := newOperation(store, exec.Executor(), "{ a }")

			release := exec.QueueDeferredResult(graphcache.ExecutorResult{Data: map[string]interface{}{"a": 1}})
			defer release()

			Expect(op.Execute(nil)).Should(Succeed())
			op.StopExecuting()
			first := op.GetState()
			op.StopExecuting()
			Expect(op.GetState()).Should(Equal(first))
		})
	})
})
