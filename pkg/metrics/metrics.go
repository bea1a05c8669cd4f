// Package metrics defines the scheduler's prometheus instrumentation,
// following the naming and promauto-vector pattern the teacher repo uses
// for its own task/proplet counters. Instrumentation is optional: a
// Scheduler built without a Recorder falls back to a no-op implementation
// (the nil-object pattern) so metrics never gate scheduling behavior.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the instrumentation surface the scheduler drives on every
// state transition. Callers that don't care about metrics can pass a
// NewNoop() recorder (or leave scheduler.Options.Metrics unset, which
// defaults to one) instead of standing up a prometheus registry.
type Recorder interface {
	ObserveTask(app string, ok bool, seconds float64)
	ObserveOverlayLoad(app, slot string, ok bool)
	AdjustReadyQueueDepth(app string, delta float64)
}

// noopRecorder discards every observation.
type noopRecorder struct{}

// NewNoop returns a Recorder that does nothing, for callers that never
// register a prometheus recorder (e.g. tests).
func NewNoop() Recorder { return noopRecorder{} }

func (noopRecorder) ObserveTask(string, bool, float64) {}

func (noopRecorder) ObserveOverlayLoad(string, string, bool) {}

func (noopRecorder) AdjustReadyQueueDepth(string, float64) {}

// prometheusRecorder backs Recorder with the four vectors schedrtd exposes
// at GET /metrics. Construct at most one per process — promauto panics on
// duplicate registration against the default registry.
type prometheusRecorder struct {
	readyQueueDepth  *prometheus.GaugeVec
	taskTotal        *prometheus.CounterVec
	taskDuration     *prometheus.HistogramVec
	overlayLoadTotal *prometheus.CounterVec
}

// NewPrometheusRecorder registers the scheduler's metric vectors against
// the default prometheus registry and returns a Recorder backed by them.
func NewPrometheusRecorder() Recorder {
	return &prometheusRecorder{
		readyQueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "schedrt_ready_queue_depth",
				Help: "Number of ready tasks per app waiting for a worker",
			},
			[]string{"app"},
		),
		taskTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schedrt_task_total",
				Help: "Total number of tasks run, by app and outcome",
			},
			[]string{"app", "ok"},
		),
		taskDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schedrt_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"app"},
		),
		overlayLoadTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schedrt_overlay_load_total",
				Help: "Total number of overlay load attempts, by app, slot, and outcome",
			},
			[]string{"app", "slot", "ok"},
		),
	}
}

func (r *prometheusRecorder) ObserveTask(app string, ok bool, seconds float64) {
	r.taskTotal.WithLabelValues(app, boolLabel(ok)).Inc()
	r.taskDuration.WithLabelValues(app).Observe(seconds)
}

func (r *prometheusRecorder) ObserveOverlayLoad(app, slot string, ok bool) {
	r.overlayLoadTotal.WithLabelValues(app, slot, boolLabel(ok)).Inc()
}

func (r *prometheusRecorder) AdjustReadyQueueDepth(app string, delta float64) {
	r.readyQueueDepth.WithLabelValues(app).Add(delta)
}

// boolLabel renders a bool as the "true"/"false" label value prometheus
// vectors expect.
func boolLabel(ok bool) string {
	if ok {
		return "true"
	}
	return "false"
}
