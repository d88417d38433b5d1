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

// Package scheduler provides the deferred-delivery primitive that
// operation.ObservableOperation uses to schedule per-observer notification.
// The Task/TaskHandle/Executor contract mirrors a worker-pool executor
// abstraction; the implementation behind it does not: delivery only ever
// needs one worker processing submissions in order, not an elastic pool.
package scheduler

import (
	"errors"
	"sync"
	"time"
)

// Task represents an instance that can be executed by an Executor.
type Task interface {
	// Run performs actions to complete a Task. The return value is made
	// available to the corresponding TaskHandle via AwaitResult.
	Run() (interface{}, error)
}

// TaskFunc adapts an ordinary function to Task.
type TaskFunc func() (interface{}, error)

var _ Task = (TaskFunc)(nil)

// Run implements Task. It calls f().
func (f TaskFunc) Run() (interface{}, error) {
	return f()
}

// Error values returned from AwaitResult.
var (
	// ErrTaskCancelled indicates the task was cancelled before it ran.
	ErrTaskCancelled = errors.New("scheduler: task was cancelled")
	// ErrTaskAwaitResultTimeout indicates AwaitResult ran out of time.
	ErrTaskAwaitResultTimeout = errors.New("scheduler: timeout while waiting for task result")
)

// TaskHandle tracks a submitted Task and lets the caller cancel it or wait
// for its result.
type TaskHandle interface {
	// Cancel tries to prevent the task from running. It is a no-op (returning
	// nil) if the task has already started or completed.
	Cancel() error

	// AwaitResult blocks until the task completes, is cancelled, or timeout
	// elapses. timeout <= 0 means wait indefinitely.
	AwaitResult(timeout time.Duration) (interface{}, error)
}

// Executor submits Tasks for ordered asynchronous execution.
type Executor interface {
	// Submit arranges task for execution. Tasks submitted to the same Executor
	// run in submission order, one at a time.
	Submit(task Task) (TaskHandle, error)

	// Shutdown stops accepting new tasks. Previously submitted tasks still
	// run. The returned channel receives a value once all of them have
	// completed. Shutdown is idempotent.
	Shutdown() (terminated <-chan bool, err error)
}

// ErrExecutorShutdown is returned by Submit once Shutdown has been called.
var ErrExecutorShutdown = errors.New("scheduler: executor has shut down")

type taskHandle struct {
	done   chan struct{}
	result interface{}
	err    error

	mu        sync.Mutex
	cancelled bool
	started   bool
}

func (h *taskHandle) Cancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	h.cancelled = true
	return nil
}

func (h *taskHandle) AwaitResult(timeout time.Duration) (interface{}, error) {
	if timeout <= 0 {
		<-h.done
		return h.result, h.err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		return h.result, h.err
	case <-timer.C:
		return nil, ErrTaskAwaitResultTimeout
	}
}

// serialExecutor runs submitted tasks one at a time, in submission order, on
// a single goroutine. This is the entirety of the concurrency the core
// needs: deferred delivery only has to guarantee ordering and a
// last-writer-wins collapse, never parallel fan-out.
type serialExecutor struct {
	queue chan *queuedTask

	mu         sync.Mutex
	shutdown   bool
	terminated chan bool
}

type queuedTask struct {
	task   Task
	handle *taskHandle
}

// NewSerialExecutor starts a serialExecutor's worker goroutine and returns
// it. Submit only arranges the task for execution; the actual execution
// may occur sometime later. The queue holds at most 256 tasks that have not
// yet been picked up; while it is full, Submit blocks the caller.
func NewSerialExecutor() Executor {
	e := &serialExecutor{
		queue:      make(chan *queuedTask, 256),
		terminated: make(chan bool, 1),
	}
	go e.run()
	return e
}

func (e *serialExecutor) run() {
	for qt := range e.queue {
		qt.handle.mu.Lock()
		cancelled := qt.handle.cancelled
		if !cancelled {
			qt.handle.started = true
		}
		qt.handle.mu.Unlock()

		if cancelled {
			qt.handle.err = ErrTaskCancelled
			close(qt.handle.done)
			continue
		}

		result, err := qt.task.Run()
		qt.handle.result = result
		qt.handle.err = err
		close(qt.handle.done)
	}
	e.terminated <- true
}

func (e *serialExecutor) Submit(task Task) (TaskHandle, error) {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return nil, ErrExecutorShutdown
	}
	e.mu.Unlock()

	handle := &taskHandle{done: make(chan struct{})}
	e.queue <- &queuedTask{task: task, handle: handle}
	return handle, nil
}

func (e *serialExecutor) Shutdown() (<-chan bool, error) {
	e.mu.Lock()
	if !e.shutdown {
		e.shutdown = true
		close(e.queue)
	}
	e.mu.Unlock()
	return e.terminated, nil
}
