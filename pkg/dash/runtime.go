// Package dash implements the DASH façade: synchronous, blocking entry
// points (fft_execute, zip_execute, fir_execute) that submit a task,
// subscribe to its completion, and return once it is done. Runtime
// bundles the collaborators a façade call needs, replacing the reference
// runtime's global ProviderRegistry and CompletionBus singletons with one
// explicit struct a caller constructs and owns. The FFT DMA engine is not
// part of Runtime; each FpgaSlot is given its own (see pkg/accel).
package dash

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fpgarun/schedrt/pkg/completion"
	"github.com/fpgarun/schedrt/pkg/kernel"
	"github.com/fpgarun/schedrt/pkg/registry"
	"github.com/fpgarun/schedrt/pkg/scheduler"
	"github.com/fpgarun/schedrt/task"
)

// conservativeEstRuntime is the façade's default est_runtime_ns when the
// caller supplies none — a deliberately pessimistic placeholder so the
// preload heuristic and CPU fallback sleep have something sane to use.
const conservativeEstRuntime = 15 * time.Millisecond

// Runtime bundles everything a façade call needs: where to look up
// providers, how to wait for completion, and the scheduler to submit
// into.
type Runtime struct {
	Providers  *registry.ProviderRegistry
	Completion *completion.Bus
	Scheduler  *scheduler.Scheduler

	nextID atomic.Uint64
}

// NewRuntime wires the three collaborators together. The caller is
// responsible for registering apps/providers and calling Scheduler.Start
// before issuing façade calls.
func NewRuntime(providers *registry.ProviderRegistry, bus *completion.Bus, sched *scheduler.Scheduler) *Runtime {
	return &Runtime{Providers: providers, Completion: bus, Scheduler: sched}
}

func (r *Runtime) allocateID() task.ID {
	return task.ID(r.nextID.Add(1))
}

// FftExecute runs plan against in/out via whichever provider is registered
// for "fft", blocking the caller until the task completes. It returns
// false if no provider is registered, the task failed, or the kernel
// itself reported !ctx.OK.
func (r *Runtime) FftExecute(plan kernel.FftPlan, in, out kernel.Buffer) bool {
	providers := r.Providers.ProvidersFor("fft")
	if len(providers) == 0 {
		return false
	}

	ctx := &kernel.FftContext{Plan: plan, In: in, Out: out}
	id := r.allocateID()
	t := &task.Task{
		ID:         id,
		App:        "fft",
		Required:   providers[0].Kind,
		Params:     map[string]task.Payload{task.FftContextKey: task.FftPayload{Ctx: ctx}},
		EstRuntime: conservativeEstRuntime,
	}

	ok := r.submitAndWait(t)
	return ok && ctx.OK
}

// ZipExecute runs params against in/out via whichever provider is
// registered for "zip", blocking until the task completes, and reports the
// actual output size through outSize.
func (r *Runtime) ZipExecute(params kernel.ZipParams, in, out kernel.Buffer, outSize *int) bool {
	providers := r.Providers.ProvidersFor("zip")
	if len(providers) == 0 {
		return false
	}

	ctx := &kernel.ZipContext{Params: params, In: in, Out: out}
	id := r.allocateID()
	t := &task.Task{
		ID:         id,
		App:        "zip",
		Required:   providers[0].Kind,
		Params:     map[string]task.Payload{task.ZipContextKey: task.ZipPayload{Ctx: ctx}},
		EstRuntime: conservativeEstRuntime,
	}

	ok := r.submitAndWait(t)
	if outSize != nil {
		*outSize = ctx.OutActual
	}
	return ok && ctx.OK
}

// FirExecute is the scheduling-only façade variant [NEW]: it has no
// dedicated kernel context type of its own, relying entirely on whatever
// the "fir" provider's accelerator does with the task's EstRuntime. It
// exists to exercise a provider/accelerator pairing beyond fft/zip without
// inventing a new Payload variant the core never needs to branch on.
func (r *Runtime) FirExecute(estRuntime time.Duration) bool {
	providers := r.Providers.ProvidersFor("fir")
	if len(providers) == 0 {
		return false
	}

	id := r.allocateID()
	t := &task.Task{
		ID:         id,
		App:        "fir",
		Required:   providers[0].Kind,
		EstRuntime: estRuntime,
	}
	return r.submitAndWait(t)
}

func (r *Runtime) submitAndWait(t *task.Task) bool {
	ch := r.Completion.Subscribe(t.ID)
	r.Scheduler.Submit(t)
	return <-ch
}

// TaskID renders id the way report sinks and the status API do, mostly to
// avoid %v callers reaching for fmt.Stringer boilerplate on task.ID.
func TaskID(id task.ID) string {
	return fmt.Sprintf("%d", id)
}
