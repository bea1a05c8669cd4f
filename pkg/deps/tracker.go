// Package deps tracks which tasks have completed successfully and answers
// whether a given task's dependencies are all satisfied.
package deps

import (
	"sync"

	"github.com/fpgarun/schedrt/task"
)

// Tracker is a single-lock set of completed task ids. A task whose
// dependency failed never enters the completed set, so its dependents stay
// unsatisfied indefinitely — this is a deliberate simplification the
// runtime accepts rather than propagating cancellation to dependents.
type Tracker struct {
	mu        sync.Mutex
	completed map[task.ID]struct{}
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{completed: make(map[task.ID]struct{})}
}

// MarkComplete records id as successfully completed. Idempotent.
func (t *Tracker) MarkComplete(id task.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed[id] = struct{}{}
}

// DepsSatisfied reports whether every id in tsk.DependsOn has completed.
func (t *Tracker) DepsSatisfied(tsk *task.Task) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range tsk.DependsOn {
		if _, ok := t.completed[d]; !ok {
			return false
		}
	}
	return true
}
