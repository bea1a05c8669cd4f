package accel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// BitstreamLoader is the collaborator that actually programs an FPGA
// region. The core only consumes this interface; the sysfs/GPIO file
// layout a real implementation uses is external to the scheduling core
// (spec §6.2).
type BitstreamLoader interface {
	Load(ctx context.Context, path string, partial bool, timeout time.Duration) error
	IsPresent(ctx context.Context) bool
}

// SysfsLoader writes the bitstream name to a sysfs firmware node and polls
// a state node until it reports done, optionally toggling a decouple GPIO
// file around partial loads. This is the real-hardware collaborator; none
// of its file paths are part of the core's contract.
type SysfsLoader struct {
	ManagerPath   string
	StatePath     string
	DecouplePath  string
	PollInterval  time.Duration
	Logger        *slog.Logger
}

// NewSysfsLoader returns a loader targeting managerPath, polling every
// 5ms by default.
func NewSysfsLoader(managerPath string, logger *slog.Logger) *SysfsLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SysfsLoader{ManagerPath: managerPath, PollInterval: 5 * time.Millisecond, Logger: logger}
}

func (s *SysfsLoader) Load(ctx context.Context, path string, partial bool, timeout time.Duration) error {
	if path == "" {
		return fmt.Errorf("bitstream: no path provided")
	}
	if s.DecouplePath != "" && partial {
		if err := writeSysfs(s.DecouplePath, "1"); err != nil {
			return fmt.Errorf("bitstream: assert decouple: %w", err)
		}
		defer writeSysfs(s.DecouplePath, "0")
	}

	if err := writeSysfs(s.ManagerPath, firmwareName(path)); err != nil {
		return fmt.Errorf("bitstream: write firmware node: %w", err)
	}

	return s.pollDone(ctx, timeout)
}

func (s *SysfsLoader) pollDone(ctx context.Context, timeout time.Duration) error {
	if s.StatePath == "" {
		return nil
	}
	deadline := time.Now().Add(timeout)
	for {
		if readSysfsTrimmed(s.StatePath) == "done" {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("bitstream: load timed out after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.PollInterval):
		}
	}
}

func (s *SysfsLoader) IsPresent(_ context.Context) bool {
	_, err := os.Stat(s.ManagerPath)
	return err == nil
}

func firmwareName(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

func writeSysfs(path, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}

func readSysfsTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// LoadCall records one observed Load invocation, for test instrumentation.
type LoadCall struct {
	Path    string
	Partial bool
}

// MockLoader returns success without touching hardware, and records every
// call so tests can assert preload/fallback behavior (scenario 3/4 in
// spec.md §8 require exactly this kind of observability hook).
type MockLoader struct {
	mu       sync.Mutex
	calls    []LoadCall
	FailNext bool
	FailAll  bool
}

// NewMockLoader returns a MockLoader that succeeds by default.
func NewMockLoader() *MockLoader { return &MockLoader{} }

func (m *MockLoader) Load(_ context.Context, path string, partial bool, _ time.Duration) error {
	m.mu.Lock()
	m.calls = append(m.calls, LoadCall{Path: path, Partial: partial})
	fail := m.FailAll || m.FailNext
	m.FailNext = false
	m.mu.Unlock()

	if fail {
		return fmt.Errorf("mock bitstream load failed for %s", path)
	}
	return nil
}

func (m *MockLoader) IsPresent(_ context.Context) bool { return true }

// Calls returns a snapshot of every Load invocation observed so far.
func (m *MockLoader) Calls() []LoadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LoadCall, len(m.calls))
	copy(out, m.calls)
	return out
}
