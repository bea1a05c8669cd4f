package dash

import (
	"testing"

	"github.com/fpgarun/schedrt/pkg/accel"
	"github.com/fpgarun/schedrt/pkg/completion"
	"github.com/fpgarun/schedrt/pkg/kernel"
	"github.com/fpgarun/schedrt/pkg/registry"
	"github.com/fpgarun/schedrt/pkg/scheduler"
	"github.com/fpgarun/schedrt/task"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	apps := registry.NewAppRegistry()
	apps.Register(task.AppDescriptor{App: "fft", Kind: task.CPU})
	apps.Register(task.AppDescriptor{App: "zip", Kind: task.CPU})

	providers := registry.NewProviderRegistry()
	providers.Register(task.Provider{Op: "fft", Kind: task.CPU, InstanceID: 0, Priority: 0})
	providers.Register(task.Provider{Op: "zip", Kind: task.CPU, InstanceID: 0, Priority: 0})

	bus := completion.New()
	sched := scheduler.New(scheduler.Options{Apps: apps, Completion: bus, Backend: scheduler.Cpu, CpuWorkers: 2})
	sched.AddAccelerator(accel.NewCpuWorker(0))
	sched.Start()
	t.Cleanup(sched.Stop)

	return NewRuntime(providers, bus, sched)
}

func TestFftExecuteRoundtrip(t *testing.T) {
	rt := newTestRuntime(t)

	n := 8
	in := make(kernel.Buffer, n*4)
	out := make(kernel.Buffer, n*4)
	if !rt.FftExecute(kernel.FftPlan{N: n}, in, out) {
		t.Fatal("expected fft_execute to succeed")
	}
}

func TestZipExecuteRoundtrip(t *testing.T) {
	rt := newTestRuntime(t)

	in := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	out := make(kernel.Buffer, len(in)+32)
	var n int
	if !rt.ZipExecute(kernel.ZipParams{Mode: kernel.Compress}, in, out, &n) {
		t.Fatal("expected zip_execute to succeed")
	}
	if n == 0 {
		t.Error("expected non-zero output size")
	}
}

func TestFftExecuteFailsWithoutProvider(t *testing.T) {
	apps := registry.NewAppRegistry()
	providers := registry.NewProviderRegistry()
	bus := completion.New()
	sched := scheduler.New(scheduler.Options{Apps: apps, Completion: bus, Backend: scheduler.Cpu, CpuWorkers: 1})
	sched.AddAccelerator(accel.NewCpuWorker(0))
	sched.Start()
	defer sched.Stop()

	rt := NewRuntime(providers, bus, sched)
	if rt.FftExecute(kernel.FftPlan{N: 4}, make(kernel.Buffer, 16), make(kernel.Buffer, 16)) {
		t.Fatal("expected failure with no registered provider")
	}
}
