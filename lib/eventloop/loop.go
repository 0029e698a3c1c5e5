// Package eventloop provides the single-threaded task queue that document
// work runs on.
//
// Tasks posted to a Loop run one at a time, in order, on whichever
// goroutine is draining it (Run or Flush). Blocking work such as network
// requests runs on its own goroutine through Go, and its continuation is
// posted back so that it, too, runs on the loop.
package eventloop

import (
	"context"
	"sync"
)

// Loop is a FIFO task queue with in-flight tracking.
type Loop struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func()
	inflight int
	closed   bool
}

// New creates an empty loop.
func New() *Loop {
	l := &Loop{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Post enqueues task. Posting to a closed loop drops the task.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, task)
	l.cond.Broadcast()
}

// Go runs work on a new goroutine and posts then(result) back to the loop.
// The loop counts the work as in flight until the continuation is queued.
func Go[T any](l *Loop, work func() T, then func(T)) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()

	go func() {
		v := work()

		l.mu.Lock()
		defer l.mu.Unlock()
		l.inflight--
		if !l.closed && then != nil {
			l.queue = append(l.queue, func() { then(v) })
		}
		l.cond.Broadcast()
	}()
}

// next pops the next task, waiting for one if necessary. It returns nil
// once the loop is closed, or when untilIdle is set and there is neither
// queued nor in-flight work.
func (l *Loop) next(untilIdle bool) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		if len(l.queue) > 0 {
			task := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			return task
		}
		if l.closed {
			return nil
		}
		if untilIdle && l.inflight == 0 {
			return nil
		}
		l.cond.Wait()
	}
}

// Flush runs tasks until the queue is empty and no work is in flight.
// Work started by a task keeps Flush waiting until its continuation has
// run, so a chain of retries is drained completely.
func (l *Loop) Flush() {
	for task := l.next(true); task != nil; task = l.next(true) {
		task()
	}
}

// Run serves the loop until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, l.Close)
	defer stop()
	for task := l.next(false); task != nil; task = l.next(false) {
		task()
	}
	return ctx.Err()
}

// Close stops the loop and discards queued tasks. Continuations of work
// still in flight are dropped when it finishes.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.queue = nil
	l.cond.Broadcast()
}

// Pending returns the number of queued tasks and in-flight work items.
func (l *Loop) Pending() (queued, inflight int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue), l.inflight
}
