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

package operation

import (
	"sync"

	"github.com/botobag/graphcache"
	"github.com/botobag/graphcache/internal/scheduler"
)

// subscriberEntry holds one Subscribe call's observer plus its deferred
// delivery state. Multiple state changes that land before a scheduled
// delivery actually runs collapse into a single Next call carrying only the
// latest state;
// this is not a queue, so intermediate states a subscriber never asked to
// see individually are never replayed.
type subscriberEntry struct {
	observer StateObserver

	mu      sync.Mutex
	pending bool
	latest  graphcache.OperationState
}

// deliver records state as the latest value to send to this subscriber and,
// if no delivery is currently scheduled, submits one. If a delivery is
// already scheduled, this state simply becomes what that delivery will send
// once it runs — the scheduled task always reads whatever is current at
// execution time, not what was current when it was submitted.
func (e *subscriberEntry) deliver(state graphcache.OperationState, sched scheduler.Executor) {
	e.mu.Lock()
	e.latest = state
	alreadyPending := e.pending
	e.pending = true
	e.mu.Unlock()

	if alreadyPending {
		return
	}

	sched.Submit(scheduler.TaskFunc(func() (interface{}, error) {
		e.mu.Lock()
		next := e.latest
		e.pending = false
		e.mu.Unlock()

		if e.observer.Next != nil {
			e.observer.Next(next)
		}
		return nil, nil
	}))
}
