package completion

import (
	"sync"
	"testing"
	"time"

	"github.com/fpgarun/schedrt/task"
)

func TestSubscribeFulfill(t *testing.T) {
	b := New()
	ch := b.Subscribe(1)
	b.Fulfill(1, true)

	select {
	case v := <-ch:
		if !v {
			t.Error("expected true")
		}
	case <-time.After(time.Second):
		t.Fatal("fulfilment not delivered")
	}
}

func TestFulfillWithoutSubscriberIsNoop(t *testing.T) {
	b := New()
	b.Fulfill(99, true) // must not panic
}

func TestConcurrentSubscribersEachGetExactlyOneResult(t *testing.T) {
	b := New()
	const n = 100
	var wg sync.WaitGroup
	results := make([]bool, n)

	for i := 0; i < n; i++ {
		id := task.ID(i)
		ch := b.Subscribe(id)
		wg.Add(1)
		go func(i int, ch <-chan bool) {
			defer wg.Done()
			select {
			case v := <-ch:
				results[i] = v
			case <-time.After(2 * time.Second):
				t.Errorf("task %d never received fulfilment", i)
			}
		}(i, ch)
	}

	for i := 0; i < n; i++ {
		b.Fulfill(task.ID(i), true)
	}
	wg.Wait()

	for i, v := range results {
		if !v {
			t.Errorf("task %d result = false, want true", i)
		}
	}
}
