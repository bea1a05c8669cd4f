// Package queue implements the scheduler's ready queue: a priority-ordered
// collection of tasks with a blocking pop and cooperative shutdown.
package queue

import (
	"container/heap"
	"sync"

	"github.com/fpgarun/schedrt/task"
)

// item wraps a *task.Task for use in the internal heap. Ordering key is
// (-priority, release_time, id): higher priority first, earlier release
// breaks ties, lower id is the final tiebreaker.
type item struct {
	t *task.Task
}

type taskHeap []item

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	a, b := h[i].t, h[j].t
	if a.Priority != b.Priority {
		return a.Priority > b.Priority // max-heap on priority
	}
	if !a.ReleaseTime.Equal(b.ReleaseTime) {
		return a.ReleaseTime.Before(b.ReleaseTime)
	}
	return a.ID < b.ID
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(item)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// ReadyQueue is a thread-safe priority queue supporting multiple concurrent
// consumers. Pop blocks until a task is available or Stop is called.
type ReadyQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	h      taskHeap
	stopped bool
}

// New returns an empty, running ReadyQueue.
func New() *ReadyQueue {
	q := &ReadyQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a task and wakes one waiting consumer.
func (q *ReadyQueue) Push(t *task.Task) {
	q.mu.Lock()
	heap.Push(&q.h, item{t: t})
	q.mu.Unlock()
	q.cond.Signal()
}

// PopBlocking removes and returns the highest-priority task, blocking while
// the queue is empty. Once Stop has been called it returns (nil, false)
// unconditionally — tasks still queued at shutdown are abandoned, matching
// the runtime's documented shutdown semantics (in-flight tasks run to
// completion, queued tasks do not).
func (q *ReadyQueue) PopBlocking() (*task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.h) == 0 && !q.stopped {
		q.cond.Wait()
	}
	if q.stopped {
		return nil, false
	}
	it := heap.Pop(&q.h).(item)
	return it.t, true
}

// Stop signals shutdown and wakes every waiting consumer.
func (q *ReadyQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len reports the current queue depth (for metrics/tests).
func (q *ReadyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}
