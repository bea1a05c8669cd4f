package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/fpgarun/schedrt/pkg/accel"
	"github.com/fpgarun/schedrt/pkg/completion"
	"github.com/fpgarun/schedrt/pkg/kernel"
	"github.com/fpgarun/schedrt/pkg/registry"
	"github.com/fpgarun/schedrt/pkg/report"
	"github.com/fpgarun/schedrt/task"
)

type captureSink struct {
	mu      sync.Mutex
	results []task.Result
}

func (c *captureSink) Emit(r task.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *captureSink) snapshot() []task.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]task.Result, len(c.results))
	copy(out, c.results)
	return out
}

func newTestScheduler(t *testing.T, backend BackendMode, workers int) (*Scheduler, *registry.AppRegistry, *completion.Bus, *captureSink) {
	t.Helper()
	apps := registry.NewAppRegistry()
	bus := completion.New()
	sink := &captureSink{}
	s := New(Options{Apps: apps, Completion: bus, Backend: backend, CpuWorkers: workers, Sink: sink})
	return s, apps, bus, sink
}

func waitFor(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
		return false
	}
}

// Scenario: a linear dependency chain runs CPU-only, each step unblocking
// the next in order.
func TestLinearChainCpuOnly(t *testing.T) {
	s, apps, bus, sink := newTestScheduler(t, Cpu, 2)
	apps.Register(task.AppDescriptor{App: "noop", Kind: task.CPU})
	s.AddAccelerator(accel.NewCpuWorker(0))
	s.Start()
	defer s.Stop()

	ch1 := bus.Subscribe(1)
	s.Submit(&task.Task{ID: 1, App: "noop", EstRuntime: time.Millisecond})
	if !waitFor(t, ch1) {
		t.Fatal("task 1 failed")
	}

	ch2 := bus.Subscribe(2)
	s.Submit(&task.Task{ID: 2, App: "noop", DependsOn: []task.ID{1}, EstRuntime: time.Millisecond})
	if !waitFor(t, ch2) {
		t.Fatal("task 2 failed")
	}

	results := sink.snapshot()
	if len(results) != 2 {
		t.Fatalf("expected 2 reported results, got %d", len(results))
	}
}

// Scenario: a task submitted before its dependency is satisfied stays
// parked until the dependency watcher promotes it.
func TestDependentTaskWaitsForDependency(t *testing.T) {
	s, apps, bus, _ := newTestScheduler(t, Cpu, 1)
	apps.Register(task.AppDescriptor{App: "noop", Kind: task.CPU})
	s.AddAccelerator(accel.NewCpuWorker(0))
	s.Start()
	defer s.Stop()

	ch2 := bus.Subscribe(2)
	s.Submit(&task.Task{ID: 2, App: "noop", DependsOn: []task.ID{1}, EstRuntime: time.Millisecond})

	select {
	case <-ch2:
		t.Fatal("task 2 completed before its dependency")
	case <-time.After(10 * time.Millisecond):
	}

	ch1 := bus.Subscribe(1)
	s.Submit(&task.Task{ID: 1, App: "noop", EstRuntime: time.Millisecond})
	if !waitFor(t, ch1) {
		t.Fatal("task 1 failed")
	}
	if !waitFor(t, ch2) {
		t.Fatal("task 2 failed")
	}
}

// Scenario: unknown app reports failure and never satisfies dependents.
func TestUnknownAppFailsAndBlocksDependents(t *testing.T) {
	s, apps, bus, _ := newTestScheduler(t, Cpu, 1)
	apps.Register(task.AppDescriptor{App: "noop", Kind: task.CPU})
	s.AddAccelerator(accel.NewCpuWorker(0))
	s.Start()
	defer s.Stop()

	ch1 := bus.Subscribe(1)
	s.Submit(&task.Task{ID: 1, App: "ghost"})
	if waitFor(t, ch1) {
		t.Fatal("expected unknown app to fail")
	}

	ch2 := bus.Subscribe(2)
	s.Submit(&task.Task{ID: 2, App: "noop", DependsOn: []task.ID{1}, EstRuntime: time.Millisecond})
	select {
	case <-ch2:
		t.Fatal("dependent of a failed task should never become ready")
	case <-time.After(20 * time.Millisecond):
	}
}

// Scenario: an overlay load failure on the only FPGA slot falls back to a
// CPU worker for the same task.
func TestOverlayLoadFailureFallsBackToCpu(t *testing.T) {
	s, apps, bus, _ := newTestScheduler(t, Auto, 1)
	apps.Register(task.AppDescriptor{App: "fft", BitstreamPath: "/bit/fft.bit", Kind: task.FFT})
	s.AddAccelerator(accel.NewCpuWorker(0))

	loader := accel.NewMockLoader()
	loader.FailAll = true
	slot := accel.NewFpgaSlot(0, accel.FpgaSlotOptions{MockMode: true}, loader, nil, nil)
	s.AddAccelerator(slot)

	s.Start()
	defer s.Stop()

	n := 4
	in := make(kernel.Buffer, n*4)
	out := make(kernel.Buffer, n*4)
	fctx := &kernel.FftContext{Plan: kernel.FftPlan{N: n}, In: in, Out: out}

	ch := bus.Subscribe(1)
	s.Submit(&task.Task{
		ID:       1,
		App:      "fft",
		Required: task.FFT,
		Params:   map[string]task.Payload{task.FftContextKey: task.FftPayload{Ctx: fctx}},
	})
	if !waitFor(t, ch) {
		t.Fatal("expected fallback to CPU worker to succeed")
	}
}

// Scenario: 100 submissions each get exactly one completion signal, even
// under worker contention.
func TestCompletionSignalsUnderContention(t *testing.T) {
	s, apps, bus, _ := newTestScheduler(t, Cpu, 8)
	apps.Register(task.AppDescriptor{App: "noop", Kind: task.CPU})
	s.AddAccelerator(accel.NewCpuWorker(0))
	s.AddAccelerator(accel.NewCpuWorker(1))
	s.Start()
	defer s.Stop()

	const n = 100
	chans := make([]<-chan bool, n)
	for i := 0; i < n; i++ {
		id := task.ID(i + 1)
		chans[i] = bus.Subscribe(id)
		s.Submit(&task.Task{ID: id, App: "noop", EstRuntime: time.Millisecond})
	}
	for i := 0; i < n; i++ {
		if !waitFor(t, chans[i]) {
			t.Fatalf("task %d failed", i+1)
		}
	}
}

// Scenario: the preload heuristic programs an idle reconfigurable
// accelerator before any task has run. The scheduler is not started, so no
// worker pops a task and the only possible load call is the preload's.
func TestPreloadHeuristicLoadsAheadOfDemand(t *testing.T) {
	apps := registry.NewAppRegistry()
	apps.Register(task.AppDescriptor{App: "fft", BitstreamPath: "/bit/fft.bit", Kind: task.FFT})
	bus := completion.New()
	sink := &captureSink{}
	s := New(Options{Apps: apps, Completion: bus, Backend: Fpga, CpuWorkers: 1, PreloadThreshold: 2, Sink: sink})

	loader := accel.NewMockLoader()
	slot := accel.NewFpgaSlot(0, accel.FpgaSlotOptions{MockMode: true}, loader, nil, nil)
	s.AddAccelerator(slot)
	defer s.Stop()

	for i := 1; i <= 2; i++ {
		s.Submit(&task.Task{ID: task.ID(i), App: "fft", Required: task.FFT, EstRuntime: 30 * time.Millisecond})
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if len(loader.Calls()) > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected preload to trigger a load call before any task ran")
}
