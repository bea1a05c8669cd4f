// Package report defines the sinks that receive one record per completed
// task, following spec.md's plain-text and CSV line formats.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fpgarun/schedrt/pkg/mqttpub"
	"github.com/fpgarun/schedrt/task"
)

// Sink receives a completion record. Emit must not block the scheduler for
// long; implementations that do I/O should buffer or fail fast.
type Sink interface {
	Emit(r task.Result)
}

// PlainSink writes spec.md's human-readable line format:
//
//	[RESULT] Task <id> ok=<true|false> msg="<message>" time_ns=<int>
type PlainSink struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewPlainSink(w io.Writer) *PlainSink {
	return &PlainSink{w: bufio.NewWriter(w)}
}

func (s *PlainSink) Emit(r task.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[RESULT] Task %d ok=%t msg=%q time_ns=%d\n", r.ID, r.OK, r.Message, r.Runtime.Nanoseconds())
	s.w.Flush()
}

// CSVSink writes spec.md's machine-readable line format:
//
//	<id>,<ok 0/1>,<message>,<time_ns>
type CSVSink struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: bufio.NewWriter(w)}
}

func (s *CSVSink) Emit(r task.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := 0
	if r.OK {
		ok = 1
	}
	fmt.Fprintf(s.w, "%d,%d,%s,%d\n", r.ID, ok, r.Message, r.Runtime.Nanoseconds())
	s.w.Flush()
}

// MQTTSink publishes each result as a JSON object to a fixed topic. Publish
// errors are logged, not returned: a completion record dropped on the wire
// must never block task completion from reaching CompletionBus.Fulfill.
type MQTTSink struct {
	pub    mqttpub.Publisher
	topic  string
	logger *slog.Logger
}

func NewMQTTSink(pub mqttpub.Publisher, topic string, logger *slog.Logger) *MQTTSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTSink{pub: pub, topic: topic, logger: logger}
}

type mqttRecord struct {
	ID          task.ID `json:"id"`
	OK          bool    `json:"ok"`
	Message     string  `json:"message"`
	TimeNs      int64   `json:"time_ns"`
	Accelerator string  `json:"accelerator"`
}

func (s *MQTTSink) Emit(r task.Result) {
	rec := mqttRecord{ID: r.ID, OK: r.OK, Message: r.Message, TimeNs: r.Runtime.Nanoseconds(), Accelerator: r.Accelerator}
	if err := s.pub.Publish(context.Background(), s.topic, rec); err != nil {
		s.logger.Warn("failed to publish result", "task", r.ID, "topic", s.topic, "error", err)
	}
}

// Multi fans one result out to several sinks, e.g. plain stdout plus MQTT.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Emit(r task.Result) {
	for _, s := range m.sinks {
		s.Emit(r)
	}
}
