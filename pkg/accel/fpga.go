package accel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fpgarun/schedrt/pkg/kernel"
	"github.com/fpgarun/schedrt/task"
)

// SlotState is the FPGA slot's lifecycle: Uninitialized -> StaticLoaded ->
// Programmed(app) -> Programmed(app'), or Failed once an overlay load
// fails. A Failed slot reports IsAvailable false, so the scheduler no
// longer selects it; a direct EnsureLoaded or Run call still retries the
// load and moves the slot back to Programmed if it succeeds.
type SlotState int

const (
	Uninitialized SlotState = iota
	StaticLoaded
	Programmed
	Failed
)

// FpgaSlotOptions configures one slot.
type FpgaSlotOptions struct {
	StaticBitstream string
	MockMode        bool
	DebugLogging    bool
	LoadTimeout     time.Duration
}

// FpgaSlot owns one physical reconfigurable region: it loads the static
// shell once, loads partial overlays on demand, and serializes executions.
// Two locks mirror the reference runtime's design: loadMu guards the state
// machine, runMu serializes Run (I2) — load can proceed on slot A while
// slot B executes, and a load on this slot never blocks behind another
// slot's run.
type FpgaSlot struct {
	id     uint
	opts   FpgaSlotOptions
	loader BitstreamLoader
	dma    DmaEngine
	logger *slog.Logger

	loadMu       sync.Mutex
	runMu        sync.Mutex
	executing    atomic.Bool
	state        SlotState
	currentApp   string
	currentKind  task.ResourceKind
	staticLoaded bool
}

// NewFpgaSlot constructs a slot with the given loader/dma collaborators.
// dma may be nil if the slot never runs the fft hardware path.
func NewFpgaSlot(id uint, opts FpgaSlotOptions, loader BitstreamLoader, dma DmaEngine, logger *slog.Logger) *FpgaSlot {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.LoadTimeout == 0 {
		opts.LoadTimeout = 2 * time.Second
	}
	return &FpgaSlot{id: id, opts: opts, loader: loader, dma: dma, logger: logger}
}

func (s *FpgaSlot) Name() string { return fmt.Sprintf("fpga-slot-%d", s.id) }

func (s *FpgaSlot) SlotID() uint { return s.id }

func (s *FpgaSlot) IsAvailable() bool {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.state == Failed {
		return false
	}
	if s.opts.MockMode {
		return true
	}
	return s.loader.IsPresent(context.Background())
}

func (s *FpgaSlot) IsReconfigurable() bool { return true }

func (s *FpgaSlot) CurrentApp() string {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.currentApp
}

func (s *FpgaSlot) CurrentKind() task.ResourceKind {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.currentKind
}

// IsExecuting reports whether Run is currently holding runMu — the window
// during which reprogramming this slot's overlay would corrupt the
// in-flight run.
func (s *FpgaSlot) IsExecuting() bool { return s.executing.Load() }

// PrepareStatic loads the static shell once. Idempotent once it succeeds.
func (s *FpgaSlot) PrepareStatic(ctx context.Context) bool {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.staticLoaded || s.opts.StaticBitstream == "" {
		return true
	}
	s.debugf("prepare_static shell=%s", s.opts.StaticBitstream)
	if err := s.loader.Load(ctx, s.opts.StaticBitstream, false, s.opts.LoadTimeout); err != nil {
		s.logger.Warn("failed to load static shell", "slot", s.Name(), "error", err)
		return false
	}
	s.staticLoaded = true
	if s.state == Uninitialized {
		s.state = StaticLoaded
	}
	return true
}

// EnsureLoaded programs app's overlay if it isn't already current. A
// failed load moves the slot to Failed and clears the current app (I3).
func (s *FpgaSlot) EnsureLoaded(ctx context.Context, app task.AppDescriptor) bool {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.ensureLoadedLocked(ctx, app)
}

func (s *FpgaSlot) ensureLoadedLocked(ctx context.Context, app task.AppDescriptor) bool {
	s.debugf("ensure_loaded app=%s kind=%s bitstream=%s", app.App, app.Kind, app.BitstreamPath)
	if s.state == Programmed && s.currentApp == app.App {
		return true
	}

	if err := s.loader.Load(ctx, app.BitstreamPath, true, s.opts.LoadTimeout); err != nil {
		s.logger.Warn("failed to load overlay", "slot", s.Name(), "app", app.App, "error", err)
		s.state = Failed
		s.currentApp = ""
		return false
	}

	s.currentApp = app.App
	s.currentKind = app.Kind
	s.state = Programmed
	s.debugf("loaded %s (kind=%s)", app.App, app.Kind)
	return true
}

// Run serializes on runMu (I2), ensures the overlay is loaded, then either
// runs the fft hardware path (with CPU fallback on DMA failure) or sleeps
// EstRuntime as a placeholder for overlays without a real kernel binding.
func (s *FpgaSlot) Run(ctx context.Context, t *task.Task, app task.AppDescriptor) task.Result {
	s.runMu.Lock()
	s.executing.Store(true)
	defer func() {
		s.executing.Store(false)
		s.runMu.Unlock()
	}()

	s.debugf("run task id=%d app=%s", t.ID, t.App)
	if !s.EnsureLoaded(ctx, app) {
		return task.Result{ID: t.ID, OK: false, Message: fmt.Sprintf("failed to ensure %s on %s", app.App, s.Name())}
	}

	t0 := time.Now()
	ok := true
	message := fmt.Sprintf("executed %s on %s", app.App, s.Name())

	if !s.opts.MockMode && t.App == "fft" {
		ok, message = s.runFftHardware(ctx, t)
	} else {
		sleep(t.EstRuntime, 15*time.Millisecond)
	}

	return task.Result{ID: t.ID, OK: ok, Message: message, Runtime: time.Since(t0), Accelerator: s.Name()}
}

func (s *FpgaSlot) runFftHardware(ctx context.Context, t *task.Task) (bool, string) {
	payload, found := t.Params[task.FftContextKey].(task.FftPayload)
	if !found {
		return false, "fft: missing execution context"
	}

	if s.dma != nil && s.dma.Available() {
		if err := s.dma.TransferRoundtrip(ctx, payload.Ctx); err == nil && payload.Ctx.OK {
			return true, payload.Ctx.Message
		}
	}

	s.debugf("fft task fallback to CPU path (id=%d)", t.ID)
	ok := kernel.RunFFT(payload.Ctx)
	return ok, payload.Ctx.Message + " (cpu fallback)"
}

func (s *FpgaSlot) debugf(format string, args ...any) {
	if s.opts.DebugLogging {
		s.logger.Debug(fmt.Sprintf(format, args...), "slot", s.Name())
	}
}
