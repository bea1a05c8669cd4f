package deps

import (
	"testing"

	"github.com/fpgarun/schedrt/task"
)

func TestDepsSatisfied(t *testing.T) {
	tr := New()
	tsk := &task.Task{ID: 3, DependsOn: []task.ID{1, 2}}

	if tr.DepsSatisfied(tsk) {
		t.Fatal("deps should not be satisfied yet")
	}

	tr.MarkComplete(1)
	if tr.DepsSatisfied(tsk) {
		t.Fatal("deps should still be unsatisfied")
	}

	tr.MarkComplete(2)
	if !tr.DepsSatisfied(tsk) {
		t.Fatal("deps should now be satisfied")
	}
}

func TestMarkCompleteIdempotent(t *testing.T) {
	tr := New()
	tr.MarkComplete(5)
	tr.MarkComplete(5)

	tsk := &task.Task{ID: 6, DependsOn: []task.ID{5}}
	if !tr.DepsSatisfied(tsk) {
		t.Fatal("expected deps satisfied after idempotent mark")
	}
}

func TestNoDepsAlwaysSatisfied(t *testing.T) {
	tr := New()
	tsk := &task.Task{ID: 1}
	if !tr.DepsSatisfied(tsk) {
		t.Fatal("task with no deps should be immediately satisfied")
	}
}
