// Package accel implements the Accelerator capability: the CPU worker
// variant (always available, no overlay to load) and the FPGA slot
// variant's load/execute state machine.
package accel

import (
	"context"

	"github.com/fpgarun/schedrt/task"
)

// Accelerator is the capability every execution unit exposes. There is no
// inheritance hierarchy here — CpuWorker and FpgaSlot are distinct structs
// satisfying the same interface; the scheduler locates FPGA slots among a
// mixed pool with a type assertion to ReconfigurableAccelerator, the Go
// equivalent of the reference runtime's dynamic_cast probe.
type Accelerator interface {
	Name() string
	IsAvailable() bool
	EnsureLoaded(ctx context.Context, app task.AppDescriptor) bool
	Run(ctx context.Context, t *task.Task, app task.AppDescriptor) task.Result
	IsReconfigurable() bool
	PrepareStatic(ctx context.Context) bool
}

// ReconfigurableAccelerator is implemented by accelerators whose IsReconfigurable
// returns true — currently only *FpgaSlot. The scheduler's preload
// heuristic and accelerator-selection policy type-assert to this interface
// to read CurrentApp without depending on the concrete FpgaSlot type.
type ReconfigurableAccelerator interface {
	Accelerator
	CurrentApp() string
	CurrentKind() task.ResourceKind

	// IsExecuting reports whether Run currently holds this slot's run
	// lock. Callers that program a slot outside of Run (selection's
	// EnsureLoaded call, the preload heuristic) must skip a slot this
	// reports true for: reprogramming a slot's overlay while its kernel
	// is physically executing corrupts the in-flight run.
	IsExecuting() bool
}
