package accel

import (
	"context"
	"fmt"
	"time"

	"github.com/fpgarun/schedrt/pkg/kernel"
	"github.com/fpgarun/schedrt/task"
)

// CpuWorker is the always-available, no-overlay accelerator variant. If
// the task carries a kernel context it runs the matching pure kernel;
// otherwise it sleeps for EstRuntime, which is useful for exercising the
// dependency graph without a real kernel.
type CpuWorker struct {
	ID uint
}

// NewCpuWorker returns a CpuWorker identified by id.
func NewCpuWorker(id uint) *CpuWorker { return &CpuWorker{ID: id} }

func (c *CpuWorker) Name() string { return fmt.Sprintf("cpu-worker-%d", c.ID) }

func (c *CpuWorker) IsAvailable() bool { return true }

func (c *CpuWorker) EnsureLoaded(_ context.Context, _ task.AppDescriptor) bool { return true }

func (c *CpuWorker) IsReconfigurable() bool { return false }

func (c *CpuWorker) PrepareStatic(_ context.Context) bool { return true }

func (c *CpuWorker) Run(_ context.Context, t *task.Task, app task.AppDescriptor) task.Result {
	t0 := time.Now()
	ok := true
	message := fmt.Sprintf("executed %s on %s", app.App, c.Name())

	switch p := t.Params[payloadKey(t)].(type) {
	case task.ZipPayload:
		ok = kernel.RunZip(p.Ctx)
		message = p.Ctx.Message
	case task.FftPayload:
		ok = kernel.RunFFT(p.Ctx)
		message = p.Ctx.Message
	default:
		sleep(t.EstRuntime, 10*time.Millisecond)
	}

	return task.Result{
		ID:          t.ID,
		OK:          ok,
		Message:     message,
		Runtime:     time.Since(t0),
		Accelerator: c.Name(),
	}
}

// payloadKey picks the single params key relevant to t.App — tasks carry
// at most one kernel context.
func payloadKey(t *task.Task) string {
	switch t.App {
	case "zip":
		return task.ZipContextKey
	case "fft":
		return task.FftContextKey
	default:
		return ""
	}
}

func sleep(want, fallback time.Duration) {
	d := want
	if d <= 0 {
		d = fallback
	}
	time.Sleep(d)
}
