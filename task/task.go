// Package task defines the data records the scheduler operates on: the
// task submitted by a caller, the app/provider descriptors that route it to
// an accelerator, and the result reported once it runs.
package task

import (
	"time"

	"github.com/fpgarun/schedrt/pkg/kernel"
)

// ResourceKind is the hardware family a task prefers to run on.
type ResourceKind int

const (
	CPU ResourceKind = iota
	ZIP
	FFT
	FIR
)

func (k ResourceKind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case ZIP:
		return "zip"
	case FFT:
		return "fft"
	case FIR:
		return "fir"
	default:
		return "unknown"
	}
}

// Payload is the strongly-typed replacement for the stringified context
// pointers the original runtime passed through Task.Params. It is a closed
// sum type: only the variants below implement it.
type Payload interface {
	payload()
}

// FftContextKey and ZipContextKey are the string keys under which a
// façade stashes its context payload — the external contract (task.params
// is string-keyed) survives even though the value is no longer a
// stringified pointer.
const (
	FftContextKey = "dash.fft_ctx"
	ZipContextKey = "dash.zip_ctx"
)

// FftPayload carries an FFT execution context.
type FftPayload struct{ Ctx *kernel.FftContext }

func (FftPayload) payload() {}

// ZipPayload carries a zip execution context.
type ZipPayload struct{ Ctx *kernel.ZipContext }

func (ZipPayload) payload() {}

// ID is a caller-assigned, monotonically increasing task identifier.
type ID uint64

// Task is immutable after submission except for the ready flag, which the
// scheduler flips once all dependencies are satisfied.
type Task struct {
	ID          ID
	App         string
	Priority    int
	ReleaseTime time.Time
	DependsOn   []ID
	Required    ResourceKind
	Params      map[string]Payload
	EstRuntime  time.Duration

	ready bool
}

// MarkReady flips the ready flag. Only the scheduler calls this.
func (t *Task) MarkReady() { t.ready = true }

// Ready reports whether the scheduler has promoted this task out of waiting.
func (t *Task) Ready() bool { return t.ready }

// AppDescriptor is the immutable record registered for a logical operation.
type AppDescriptor struct {
	App           string
	BitstreamPath string
	KernelName    string
	Kind          ResourceKind
}

// Provider is a registered capability to execute an op on a resource kind
// at a given preference. Lower Priority is more preferred.
type Provider struct {
	Op         string
	Kind       ResourceKind
	InstanceID uint
	Priority   int
}

// Result is what a completed (or failed) run reports.
type Result struct {
	ID          ID
	OK          bool
	Message     string
	Runtime     time.Duration
	Accelerator string
}
