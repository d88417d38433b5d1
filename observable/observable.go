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

// Package observable implements a minimal push-based Observable contract: a
// factory that, given an Observer, returns a teardown function, plus
// Subscribe/Unsubscribe with terminal Error/Complete semantics. There is no
// push-based multi-emission primitive available elsewhere to build on (a
// single-value, pull-based future is a different shape entirely), so this is
// original code, shaped by a preference for small explicit interfaces over
// an imported reactive-streams library.
package observable

import "sync"

// Observer receives values pushed by an Observable. Any of the three fields
// may be nil; a nil callback is simply not invoked for that event.
type Observer struct {
	Next     func(value interface{})
	Error    func(err error)
	Complete func()
}

// Subscription is returned by Subscribe. Unsubscribe stops delivery to the
// associated Observer; it is idempotent and safe to call more than once or
// concurrently with in-flight delivery.
type Subscription struct {
	unsubscribe func()
	once        sync.Once
}

// Unsubscribe tears down the subscription. Unsubscribing only stops
// delivery to this particular observer — it does not imply anything
// about other subscribers or about the producer's own lifecycle beyond what
// the factory's teardown function does.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}

// Factory produces values for a single subscription. It is invoked once per
// Subscribe call with that call's Observer, and returns a teardown function
// (or nil) invoked at most once, when the subscriber unsubscribes — the
// teardown must cancel any in-flight work. Calling Error/Complete on the
// observer does not by itself invoke the teardown.
type Factory func(observer Observer) (teardown func())

// Observable is a cold producer of values: Subscribe invokes the Factory
// each time, so each subscriber gets its own independent execution. Hot
// fan-out (shared execution, replay-on-subscribe, multi-observer dispatch)
// is built on top of this primitive by the operation package, which is
// where a single shared executor/watch subscription actually lives.
type Observable struct {
	factory Factory
}

// New wraps factory as an Observable.
func New(factory Factory) *Observable {
	return &Observable{factory: factory}
}

// Subscribe starts a new, independent execution of the Observable for
// observer, returning a Subscription the caller can unsubscribe from.
func (o *Observable) Subscribe(observer Observer) *Subscription {
	sub := &Subscription{}

	state := &subscriberState{}
	guardedObserver := Observer{
		Next: func(value interface{}) {
			if state.terminal() {
				return
			}
			if observer.Next != nil {
				observer.Next(value)
			}
		},
		Error: func(err error) {
			if !state.terminate() {
				return
			}
			if observer.Error != nil {
				observer.Error(err)
			}
		},
		Complete: func() {
			if !state.terminate() {
				return
			}
			if observer.Complete != nil {
				observer.Complete()
			}
		},
	}

	teardown := o.factory(guardedObserver)
	sub.unsubscribe = func() {
		state.terminate()
		if teardown != nil {
			teardown()
		}
	}
	return sub
}

// subscriberState tracks whether a subscription has reached a terminal
// state (errored, completed, or unsubscribed), guarding against delivery
// after teardown.
type subscriberState struct {
	mu   sync.Mutex
	done bool
}

func (s *subscriberState) terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// terminate marks the state done, returning true the first time it is
// called and false on every subsequent call.
func (s *subscriberState) terminate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	s.done = true
	return true
}

// Of builds an Observable that synchronously emits each of values, in
// order, then completes. Useful for tests and for
// graphcachetest.FuncExecutor's canned result sequences.
func Of(values ...interface{}) *Observable {
	return New(func(observer Observer) func() {
		for _, v := range values {
			if observer.Next != nil {
				observer.Next(v)
			}
		}
		if observer.Complete != nil {
			observer.Complete()
		}
		return nil
	})
}
