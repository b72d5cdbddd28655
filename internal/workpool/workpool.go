// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package workpool provides a fixed set of long-lived worker goroutines fed
// from a queue. Submission never blocks; a pool holds at most Size tasks that
// have been submitted and not yet gathered, and refuses more until results
// are gathered. Results are delivered over a channel, one per gather, in
// completion order.
package workpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/deque"

	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/internal/state"
)

// Task is the work a worker runs. The context is cancelled when the pool is
// cancelled.
type Task[T any] func(ctx context.Context) (T, error)

// Completion is the outcome of one task.
type Completion[T any] struct {
	// Seq is the sequence number given to Submit.
	Seq int
	// Worker identifies the goroutine that ran the task, from zero.
	Worker int
	Value  T
	Err    error
}

type job[T any] struct {
	seq  int
	task Task[T]
}

// Pool is a bounded set of workers. Create one with [New]; a closed or
// cancelled pool cannot be reopened, so replacing the workers means creating
// a new Pool.
type Pool[T any] struct {
	size       int
	ctx        context.Context
	cancelFunc context.CancelFunc

	mu     sync.Mutex
	cond   *sync.Cond
	queue  deque.Deque[job[T]]
	closed bool

	inFlight state.InFlightCounter
	results  chan Completion[T]
	wg       sync.WaitGroup
}

// New starts size workers. Tasks run with a context derived from ctx. It
// panics if size is less than one.
func New[T any](ctx context.Context, size int) *Pool[T] {
	if size < 1 {
		panic("pool size must be at least one")
	}
	p := &Pool[T]{
		size:    size,
		results: make(chan Completion[T]),
	}
	p.ctx, p.cancelFunc = context.WithCancel(ctx)
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(size)
	for w := range size {
		go p.work(w)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int {
	return p.size
}

// InFlight returns the number of tasks submitted and not yet gathered.
func (p *Pool[T]) InFlight() int {
	return p.inFlight.Load()
}

// Submit queues task without blocking. It returns false, and does not queue
// the task, if Size tasks are already in flight. It panics if the pool has
// been closed.
func (p *Pool[T]) Submit(seq int, task Task[T]) bool {
	if task == nil {
		panic("task must be non-nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		panic("pool is closed")
	}
	if !p.inFlight.IncrementIfUnder(p.size) {
		return false
	}
	p.queue.PushBack(job[T]{seq: seq, task: task})
	p.cond.Signal()
	return true
}

// Gather blocks until a task completes and returns its completion. It
// returns false with a nil error if nothing is in flight, and the context's
// error if ctx or the pool is cancelled first.
func (p *Pool[T]) Gather(ctx context.Context) (Completion[T], bool, error) {
	var zero Completion[T]
	if !p.inFlight.GreaterThanZero() {
		return zero, false, nil
	}
	select {
	case c := <-p.results:
		p.inFlight.Decrement()
		return c, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case <-p.ctx.Done():
		return zero, false, p.ctx.Err()
	}
}

// Close stops accepting tasks. Workers exit once the queue is empty and
// their last results have been gathered.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
}

// Wait blocks until every worker has exited.
func (p *Pool[T]) Wait() {
	p.wg.Wait()
	p.cancelFunc()
}

// CancelAndWait closes the pool, drops queued tasks, cancels the context of
// running tasks, discards their results and waits for the workers to exit.
func (p *Pool[T]) CancelAndWait() {
	p.mu.Lock()
	p.closed = true
	if n := p.queue.Len(); n > 0 {
		p.queue.Clear()
		p.inFlight.Sub(n)
	}
	p.cond.Broadcast()
	p.mu.Unlock()
	p.cancelFunc()
	p.wg.Wait()
}

func (p *Pool[T]) next() (job[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.queue.Len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.queue.Len() == 0 {
		return job[T]{}, false
	}
	return p.queue.PopFront(), true
}

func (p *Pool[T]) work(worker int) {
	defer p.wg.Done()
	for {
		j, ok := p.next()
		if !ok {
			return
		}
		c := Completion[T]{Seq: j.seq, Worker: worker}
		c.Value, c.Err = run(p.ctx, j.task)
		select {
		case p.results <- c:
		case <-p.ctx.Done():
			return
		}
	}
}

func run[T any](ctx context.Context, task Task[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errs.ErrTaskPanic, r)
		}
	}()
	return task(ctx)
}
