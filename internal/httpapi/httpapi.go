// Package httpapi implements the daemon's HTTP surface: read-only status
// (task results, the accelerator pool, health/metrics) plus the two
// mutating endpoints schedrtctl drives against a running daemon —
// POST /apps to register an app at runtime and POST /tasks to submit an
// ad hoc task. It follows the teacher's transport/endpoint/responses
// three-file split (worker/api/{transport,endpoint,responses}.go): chi
// routes requests, go-kit's transport/http decodes/encodes around a plain
// endpoint function for GET /tasks/{id}, and a dedicated file holds the
// wire response shapes.
package httpapi

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fpgarun/schedrt/task"
)

// AcceleratorSource supplies the accelerator pool snapshot the endpoint
// reports. The scheduler's own pool is unexported, so the daemon adapts it
// into this narrow interface rather than exposing internals.
type AcceleratorSource interface {
	AcceleratorStatuses() []AcceleratorStatus
}

// ResultStore is a query surface over completed task results. ReportStore
// is the concrete implementation a ReportSink feeds.
type ResultStore interface {
	Result(id task.ID) (task.Result, bool)
}

// TaskSubmitter accepts an ad hoc task built from a POST /tasks request.
// *scheduler.Scheduler satisfies this directly.
type TaskSubmitter interface {
	Submit(t *task.Task)
}

// AppRegistrar lets POST /apps register a descriptor into a running
// daemon's app table. *registry.AppRegistry satisfies this directly.
type AppRegistrar interface {
	Register(d task.AppDescriptor)
}

// ReportStore is a ReportSink that also serves as a ResultStore: every
// emitted result is retained in memory so GET /tasks/{id} can answer it.
// This is the collaborator scenario 7 in spec.md §8 exercises.
type ReportStore struct {
	mu      sync.RWMutex
	results map[task.ID]task.Result
}

// NewReportStore returns an empty store.
func NewReportStore() *ReportStore {
	return &ReportStore{results: make(map[task.ID]task.Result)}
}

func (s *ReportStore) Emit(r task.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.ID] = r
}

func (s *ReportStore) Result(id task.ID) (task.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	return r, ok
}

// Server bundles the status and submission endpoints. ready reports
// whether the scheduler has finished Start, gating GET /healthz.
// submitter/apps are nil-able: a Server built without them still serves
// the read-only endpoints but answers POST /tasks and POST /apps with
// 501 Not Implemented.
type Server struct {
	results   ResultStore
	accels    AcceleratorSource
	submitter TaskSubmitter
	apps      AppRegistrar
	nextID    atomic.Uint64
	ready     atomic.Bool
}

// NewServer wires results, accels, submitter, and apps into request
// handlers. submitter and apps may be nil if this daemon should only
// serve the read-only endpoints. Call MarkReady once the scheduler has
// started.
func NewServer(results ResultStore, accels AcceleratorSource, submitter TaskSubmitter, apps AppRegistrar) *Server {
	return &Server{results: results, accels: accels, submitter: submitter, apps: apps}
}

// MarkReady flips /healthz to 200.
func (s *Server) MarkReady() { s.ready.Store(true) }

func (s *Server) allocateTaskID() task.ID { return task.ID(s.nextID.Add(1)) }

// Router builds the chi mux for this server's endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/tasks/{id}", MakeHandler(s))
	r.Post("/tasks", s.handleSubmitTask)
	r.Post("/apps", s.handleRegisterApp)
	r.Get("/accelerators", s.handleAccelerators)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleAccelerators(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.accels.AcceleratorStatuses())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeError(w, http.StatusServiceUnavailable, "scheduler not started")
		return
	}
	w.WriteHeader(http.StatusOK)
}
