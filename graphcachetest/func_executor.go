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

// Package graphcachetest provides test doubles for exercising
// ObservableOperation without a real GraphQL execution engine.
package graphcachetest

import (
	"sync"

	"github.com/botobag/graphcache"
	"github.com/botobag/graphcache/observable"
)

// FuncExecutor adapts a plain function into a graphcache.Executor, recording
// every request it receives. It is the reference in-memory executor used by
// graphcache's own tests and is a reasonable starting point for a host's
// unit tests too.
//
// Responses queued with QueueResult/QueueResults/QueueError/
// QueueDeferredResult/QueueSteppedResults are consumed one per Execute
// call, in FIFO order; once the queue is empty, a call completes
// immediately with no data.
type FuncExecutor struct {
	mu        sync.Mutex
	responses []func() *observable.Observable
	requests  []graphcache.ExecutorRequest
}

// NewFuncExecutor returns an empty FuncExecutor.
func NewFuncExecutor() *FuncExecutor {
	return &FuncExecutor{}
}

// Requests returns every ExecutorRequest this executor has been called with,
// in call order.
func (e *FuncExecutor) Requests() []graphcache.ExecutorRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]graphcache.ExecutorRequest, len(e.requests))
	copy(out, e.requests)
	return out
}

// QueueResult enqueues a single-value, then-complete response: the next
// Execute call emits result and completes.
func (e *FuncExecutor) QueueResult(result graphcache.ExecutorResult) {
	e.queue(func() *observable.Observable {
		return observable.Of(result)
	})
}

// QueueResults enqueues a response that emits every result in order, then
// completes — for exercising an executor that streams multiple payloads for
// one request.
func (e *FuncExecutor) QueueResults(results ...graphcache.ExecutorResult) {
	e.queue(func() *observable.Observable {
		values := make([]interface{}, len(results))
		for i, r := range results {
			values[i] = r
		}
		return observable.Of(values...)
	})
}

// QueueError enqueues a response that errors immediately without ever
// emitting a value.
func (e *FuncExecutor) QueueError(err error) {
	e.queue(func() *observable.Observable {
		return observable.New(func(observer observable.Observer) func() {
			if observer.Error != nil {
				observer.Error(err)
			}
			return func() {}
		})
	})
}

// QueueDeferredResult enqueues a response that emits result and completes
// only once the caller invokes the returned release function, on a
// goroutine separate from the Execute call. This is what lets a test
// observe an operation's intermediate loading state before an
// asynchronously-resolving executor produces its result, in contrast to
// QueueResult's synchronous-within-Subscribe delivery.
func (e *FuncExecutor) QueueDeferredResult(result graphcache.ExecutorResult) (release func()) {
	ready := make(chan struct{})
	e.queue(func() *observable.Observable {
		return observable.New(func(observer observable.Observer) func() {
			go func() {
				<-ready
				if observer.Next != nil {
					observer.Next(result)
				}
				if observer.Complete != nil {
					observer.Complete()
				}
			}()
			return func() {}
		})
	})
	var once sync.Once
	return func() { once.Do(func() { close(ready) }) }
}

// QueueSteppedResults enqueues a response whose values are emitted one at a
// time, each only as the test calls the returned emit function; the
// response completes once every result has been emitted. This lets a test
// interleave its own store writes between successive values of a
// multi-emission executor (live queries, subscriptions).
func (e *FuncExecutor) QueueSteppedResults(results ...graphcache.ExecutorResult) (emit func()) {
	step := make(chan struct{})
	e.queue(func() *observable.Observable {
		return observable.New(func(observer observable.Observer) func() {
			go func() {
				for _, r := range results {
					<-step
					if observer.Next != nil {
						observer.Next(r)
					}
				}
				if observer.Complete != nil {
					observer.Complete()
				}
			}()
			return func() {}
		})
	})
	return func() { step <- struct{}{} }
}

func (e *FuncExecutor) queue(factory func() *observable.Observable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses = append(e.responses, factory)
}

// Executor returns the graphcache.Executor function driven by this test
// double.
func (e *FuncExecutor) Executor() graphcache.Executor {
	return e.execute
}

func (e *FuncExecutor) execute(request graphcache.ExecutorRequest) *observable.Observable {
	e.mu.Lock()
	e.requests = append(e.requests, request)
	var factory func() *observable.Observable
	if len(e.responses) > 0 {
		factory = e.responses[0]
		e.responses = e.responses[1:]
	}
	e.mu.Unlock()

	if factory == nil {
		// No response was queued: complete immediately with no data, which is a
		// reasonable default for tests that only care about request shape.
		return observable.Of()
	}
	return factory()
}
