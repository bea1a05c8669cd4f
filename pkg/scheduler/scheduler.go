// Package scheduler implements the core runtime: a worker pool that pops
// ready tasks and runs them on an accelerator, a dependency watcher that
// promotes waiting tasks to ready, accelerator selection (§4.7.1), the
// overlay preload heuristic (§4.7.2), and completion reporting (§4.7.3).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fpgarun/schedrt/pkg/accel"
	"github.com/fpgarun/schedrt/pkg/completion"
	"github.com/fpgarun/schedrt/pkg/deps"
	"github.com/fpgarun/schedrt/pkg/metrics"
	"github.com/fpgarun/schedrt/pkg/queue"
	"github.com/fpgarun/schedrt/pkg/registry"
	"github.com/fpgarun/schedrt/pkg/report"
	"github.com/fpgarun/schedrt/task"
)

// BackendMode picks whether the scheduler prefers reconfigurable
// accelerators or stays CPU-only.
type BackendMode int

const (
	Auto BackendMode = iota
	Cpu
	Fpga
)

const watcherPoll = time.Millisecond

// Options configures a Scheduler at construction.
type Options struct {
	Apps             *registry.AppRegistry
	Completion       *completion.Bus
	Backend          BackendMode
	CpuWorkers       int
	PreloadThreshold int
	Sink             report.Sink
	Metrics          metrics.Recorder
	Logger           *slog.Logger
}

// Scheduler owns the worker pool, the ready queue, the waiting pool, and
// the accelerator pool. Submit is safe to call before or after Start.
type Scheduler struct {
	apps       *registry.AppRegistry
	completion *completion.Bus
	deps       *deps.Tracker
	ready      *queue.ReadyQueue
	sink       report.Sink
	metrics    metrics.Recorder
	logger     *slog.Logger

	backend          BackendMode
	cpuWorkerCount   int
	preloadThreshold int

	poolMu       sync.Mutex
	accelerators []accel.Accelerator
	useCpu       bool

	waitMu  sync.Mutex
	waiting []*task.Task

	readyCountMu sync.Mutex
	readyCount   map[string]int

	startOnce sync.Once
	stopOnce  sync.Once
	group     *errgroup.Group
	stopCh    chan struct{}
}

// New constructs a Scheduler. Call AddAccelerator for every CPU worker and
// FPGA slot before Start.
func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CpuWorkers <= 0 {
		opts.CpuWorkers = 4
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NewNoop()
	}
	return &Scheduler{
		apps:             opts.Apps,
		completion:       opts.Completion,
		deps:             deps.New(),
		ready:            queue.New(),
		sink:             opts.Sink,
		metrics:          rec,
		logger:           logger,
		backend:          opts.Backend,
		cpuWorkerCount:   opts.CpuWorkers,
		preloadThreshold: opts.PreloadThreshold,
		readyCount:       make(map[string]int),
		stopCh:           make(chan struct{}),
	}
}

// AddAccelerator registers acc in the pool. Call before Start.
func (s *Scheduler) AddAccelerator(acc accel.Accelerator) {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()
	s.accelerators = append(s.accelerators, acc)
}

// Submit pushes task to the ready queue if its dependencies are already
// satisfied, otherwise parks it in the waiting pool for the dependency
// watcher to promote later. Safe before or after Start.
func (s *Scheduler) Submit(t *task.Task) {
	if s.deps.DepsSatisfied(t) {
		s.promote(t)
		return
	}
	s.waitMu.Lock()
	s.waiting = append(s.waiting, t)
	s.waitMu.Unlock()
}

func (s *Scheduler) promote(t *task.Task) {
	t.MarkReady()
	s.ready.Push(t)
	s.bumpReadyCount(t.App, 1)
}

// Start is idempotent. It resolves Auto backend mode against the
// registered accelerator pool, then spawns the configured number of CPU
// worker threads plus one dependency watcher.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.resolveBackendMode()

		s.group = new(errgroup.Group)
		for i := 0; i < s.cpuWorkerCount; i++ {
			id := i
			s.group.Go(func() error {
				s.runWorker(id)
				return nil
			})
		}

		s.group.Go(func() error {
			s.runDependencyWatcher()
			return nil
		})
	})
}

func (s *Scheduler) resolveBackendMode() {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	switch s.backend {
	case Cpu:
		s.useCpu = true
	case Fpga:
		s.useCpu = false
	default: // Auto
		s.useCpu = true
		for _, a := range s.accelerators {
			if a.IsReconfigurable() {
				s.useCpu = false
				break
			}
		}
	}
}

// Stop is idempotent. It signals the ready queue to stop, which wakes and
// returns every blocked worker, then joins all goroutines. Tasks still
// waiting or queued are abandoned: their completion signals are never
// fulfilled (an accepted leak — see DESIGN.md).
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.ready.Stop()
		if s.group != nil {
			s.group.Wait()
		}
	})
}

func (s *Scheduler) runDependencyWatcher() {
	ticker := time.NewTicker(watcherPoll)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.promoteSatisfied()
		}
	}
}

// promoteSatisfied moves every waiting task whose dependencies have all
// completed to the ready queue. A failed task never enters the completed
// set, so its dependents are never promoted and stay waiting until Stop;
// DESIGN.md records cancellation propagation as the alternative.
func (s *Scheduler) promoteSatisfied() {
	s.waitMu.Lock()
	remaining := s.waiting[:0]
	var ready []*task.Task
	for _, t := range s.waiting {
		if s.deps.DepsSatisfied(t) {
			ready = append(ready, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	s.waiting = remaining
	s.waitMu.Unlock()

	for _, t := range ready {
		s.promote(t)
	}
}

func (s *Scheduler) runWorker(id int) {
	for {
		t, ok := s.ready.PopBlocking()
		if !ok {
			return
		}
		// The per-app ready count drops on pop, not on completion, so a
		// long-running task no longer counts as demand (see DESIGN.md's
		// open-question decisions).
		s.bumpReadyCount(t.App, -1)
		s.runTask(id, t)
	}
}

func (s *Scheduler) runTask(workerID int, t *task.Task) {
	app, found := s.apps.Lookup(t.App)
	if !found {
		s.report(t, task.Result{ID: t.ID, OK: false, Message: fmt.Sprintf("unknown app %q", t.App)})
		return
	}

	acc, found := s.selectAccelerator(app, t.Required)
	if !found {
		s.report(t, task.Result{ID: t.ID, OK: false, Message: "no accelerator available"})
		return
	}

	res := acc.Run(context.Background(), t, app)
	s.metrics.ObserveOverlayLoad(app.App, acc.Name(), res.OK)
	s.report(t, res)
}

func (s *Scheduler) report(t *task.Task, res task.Result) {
	s.metrics.ObserveTask(t.App, res.OK, res.Runtime.Seconds())
	if s.sink != nil {
		s.sink.Emit(res)
	}
	if res.OK {
		s.deps.MarkComplete(t.ID)
	}
	if s.completion != nil {
		s.completion.Fulfill(t.ID, res.OK)
	}
}

// selectAccelerator implements §4.7.1: snapshot the pool, then prefer a
// reconfigurable accelerator already programmed with app, else one that
// can be (re)programmed, else fall back to a CPU worker, else any
// available reconfigurable accelerator as a last resort. A candidate for
// reprogramming is skipped while it IsExecuting — EnsureLoaded here runs
// outside the slot's own Run call, so reprogramming a slot whose previous
// Run is still executing would corrupt that in-flight kernel.
func (s *Scheduler) selectAccelerator(app task.AppDescriptor, required task.ResourceKind) (accel.Accelerator, bool) {
	s.poolMu.Lock()
	snapshot := make([]accel.Accelerator, len(s.accelerators))
	copy(snapshot, s.accelerators)
	useCpu := s.useCpu
	s.poolMu.Unlock()

	if !useCpu && required != task.CPU {
		var firstAvailable accel.ReconfigurableAccelerator
		for _, a := range snapshot {
			ra, ok := a.(accel.ReconfigurableAccelerator)
			if !ok || !ra.IsAvailable() {
				continue
			}
			if ra.CurrentApp() == app.App {
				return ra, true
			}
			if firstAvailable == nil && !ra.IsExecuting() {
				firstAvailable = ra
			}
		}
		if firstAvailable != nil {
			if firstAvailable.EnsureLoaded(context.Background(), app) {
				return firstAvailable, true
			}
		}
	}

	for _, a := range snapshot {
		if !a.IsReconfigurable() && a.IsAvailable() {
			return a, true
		}
	}

	for _, a := range snapshot {
		if a.IsReconfigurable() && a.IsAvailable() {
			return a, true
		}
	}

	return nil, false
}

// bumpReadyCount adjusts the per-app ready counter and, on crossing
// preload_threshold upward, opportunistically preloads an idle
// reconfigurable accelerator for app (§4.7.2).
func (s *Scheduler) bumpReadyCount(app string, delta int) {
	s.metrics.AdjustReadyQueueDepth(app, float64(delta))

	if s.preloadThreshold <= 0 {
		return
	}

	s.readyCountMu.Lock()
	s.readyCount[app] += delta
	crossed := delta > 0 && s.readyCount[app] == s.preloadThreshold
	s.readyCountMu.Unlock()

	if crossed {
		go s.preload(app)
	}
}

// preload implements §4.7.2: find an idle, not-currently-executing
// reconfigurable accelerator not already loaded with appName and
// (re)program it ahead of demand. A slot mid-Run is skipped even if it
// reports available — EnsureLoaded here races against that Run's own
// in-flight kernel otherwise.
func (s *Scheduler) preload(appName string) {
	app, found := s.apps.Lookup(appName)
	if !found {
		return
	}

	s.poolMu.Lock()
	var target accel.ReconfigurableAccelerator
	for _, a := range s.accelerators {
		ra, ok := a.(accel.ReconfigurableAccelerator)
		if !ok || !ra.IsAvailable() {
			continue
		}
		if ra.CurrentApp() == appName {
			s.poolMu.Unlock()
			return
		}
		if target == nil && !ra.IsExecuting() {
			target = ra
		}
	}
	s.poolMu.Unlock()

	if target == nil {
		return
	}
	if !target.EnsureLoaded(context.Background(), app) {
		s.logger.Warn("preload failed", "app", appName, "accelerator", target.Name())
	}
}
