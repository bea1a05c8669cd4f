// Package completion implements the one-shot completion signal that lets a
// façade caller block on a task submitted to the scheduler.
package completion

import (
	"sync"

	"github.com/fpgarun/schedrt/task"
)

// Bus maps a task id to a single-shot receiver. Subscribe must be called
// before the task is submitted to the scheduler, so the waiter never
// misses the fulfilment.
type Bus struct {
	mu      sync.Mutex
	pending map[task.ID]chan bool
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{pending: make(map[task.ID]chan bool)}
}

// Subscribe registers a pending completion for id and returns the channel
// that will receive exactly one value.
func (b *Bus) Subscribe(id task.ID) <-chan bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan bool, 1)
	b.pending[id] = ch
	return ch
}

// Fulfill delivers ok to id's registered receiver and removes the entry.
// It is a no-op if nothing subscribed (the fulfilment is discarded).
func (b *Bus) Fulfill(id task.ID, ok bool) {
	b.mu.Lock()
	ch, found := b.pending[id]
	if found {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !found {
		return
	}
	ch <- ok
	close(ch)
}
