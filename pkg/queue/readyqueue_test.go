package queue

import (
	"testing"
	"time"

	"github.com/fpgarun/schedrt/task"
)

func mkTask(id task.ID, priority int, release time.Time) *task.Task {
	return &task.Task{ID: id, Priority: priority, ReleaseTime: release}
}

func TestPriorityOrdering(t *testing.T) {
	q := New()
	base := time.Now()
	q.Push(mkTask(1, 1, base))
	q.Push(mkTask(2, 5, base))
	q.Push(mkTask(3, 5, base))

	order := []task.ID{}
	for i := 0; i < 3; i++ {
		tsk, ok := q.PopBlocking()
		if !ok {
			t.Fatalf("expected a task, got none")
		}
		order = append(order, tsk.ID)
	}

	want := []task.ID{2, 3, 1}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d (full order %v)", i, order[i], want[i], order)
		}
	}
}

func TestPopBlockingWaitsThenWakes(t *testing.T) {
	q := New()
	done := make(chan *task.Task, 1)
	go func() {
		tsk, ok := q.PopBlocking()
		if !ok {
			done <- nil
			return
		}
		done <- tsk
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(mkTask(42, 0, time.Now()))

	select {
	case tsk := <-done:
		if tsk == nil || tsk.ID != 42 {
			t.Fatalf("expected task 42, got %v", tsk)
		}
	case <-time.After(time.Second):
		t.Fatal("PopBlocking did not wake on Push")
	}
}

func TestStopAbandonsQueuedAndWakesWaiters(t *testing.T) {
	q := New()
	results := make(chan bool, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, ok := q.PopBlocking()
			results <- ok
		}()
	}
	time.Sleep(20 * time.Millisecond)
	q.Stop()

	for i := 0; i < 3; i++ {
		select {
		case ok := <-results:
			if ok {
				t.Errorf("expected PopBlocking to report false after Stop")
			}
		case <-time.After(time.Second):
			t.Fatal("PopBlocking did not wake on Stop")
		}
	}

	// A task pushed after Stop is abandoned too: the queue is non-empty but
	// PopBlocking still returns false.
	q.Push(mkTask(1, 0, time.Now()))
	if _, ok := q.PopBlocking(); ok {
		t.Errorf("expected PopBlocking to remain stopped after Stop")
	}
}
