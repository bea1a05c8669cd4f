package accel

import (
	"context"
	"fmt"
	"sync"

	"github.com/fpgarun/schedrt/pkg/kernel"
)

// DmaEngine is the collaborator consumed for the fft hardware path. A real
// implementation quantizes float32 to 16-bit fixed point and back; that's
// the runner's job, not the core's — the core only calls
// TransferRoundtrip and interprets its error.
type DmaEngine interface {
	TransferRoundtrip(ctx context.Context, c *kernel.FftContext) error
	Available() bool
}

// MockDmaEngine is a single-queue stand-in serialized by its own mutex,
// mirroring the reference runtime's "global FFT-DMA runner, lazily
// constructed once, guarded by a singleton lock" — except here it is an
// explicit value owned by whoever constructs the FpgaSlot, not a process
// singleton (see DESIGN.md's "Global singletons" note).
type MockDmaEngine struct {
	mu        sync.Mutex
	fail      bool
	available bool
}

// NewMockDmaEngine returns an available, succeeding engine.
func NewMockDmaEngine() *MockDmaEngine {
	return &MockDmaEngine{available: true}
}

func (m *MockDmaEngine) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *MockDmaEngine) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

func (m *MockDmaEngine) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *MockDmaEngine) TransferRoundtrip(_ context.Context, c *kernel.FftContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return fmt.Errorf("dma: roundtrip transfer failed")
	}
	return fftViaDma(c)
}

// fftViaDma stands in for a hardware round trip: it runs the same pure
// kernel a CPU fallback would, since no physical DMA engine exists in this
// core. The point exercised here is the error-handling contract, not a
// distinct numeric result.
func fftViaDma(c *kernel.FftContext) error {
	if !kernel.RunFFT(c) {
		return fmt.Errorf("dma: %s", c.Message)
	}
	return nil
}
