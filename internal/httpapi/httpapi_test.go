package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fpgarun/schedrt/task"
)

type fakeAccelSource struct {
	statuses []AcceleratorStatus
}

func (f fakeAccelSource) AcceleratorStatuses() []AcceleratorStatus { return f.statuses }

type fakeSubmitter struct {
	mu  sync.Mutex
	got []*task.Task
}

func (f *fakeSubmitter) Submit(t *task.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, t)
}

func (f *fakeSubmitter) submitted() []*task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*task.Task, len(f.got))
	copy(out, f.got)
	return out
}

type fakeAppRegistrar struct {
	mu  sync.Mutex
	got []task.AppDescriptor
}

func (f *fakeAppRegistrar) Register(d task.AppDescriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, d)
}

func TestHealthzReflectsReadiness(t *testing.T) {
	s := NewServer(NewReportStore(), fakeAccelSource{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before MarkReady, got %d", rec.Code)
	}

	s.MarkReady()
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after MarkReady, got %d", rec.Code)
	}
}

func TestTaskEndpointReflectsReportedResult(t *testing.T) {
	store := NewReportStore()
	s := NewServer(store, fakeAccelSource{}, nil, nil)

	store.Emit(task.Result{ID: 42, OK: true, Message: "done", Runtime: 5 * time.Millisecond, Accelerator: "cpu-worker-0"})

	req := httptest.NewRequest(http.MethodGet, "/tasks/42", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got taskResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != 42 || !got.OK || got.Message != "done" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestTaskEndpointNotFound(t *testing.T) {
	s := NewServer(NewReportStore(), fakeAccelSource{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/tasks/999", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAcceleratorsEndpoint(t *testing.T) {
	src := fakeAccelSource{statuses: []AcceleratorStatus{{Name: "cpu-worker-0", Available: true}}}
	s := NewServer(NewReportStore(), src, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/accelerators", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var got []AcceleratorStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "cpu-worker-0" {
		t.Errorf("unexpected accelerators body: %+v", got)
	}
}

func TestSubmitTaskWithoutSubmitterIsNotImplemented(t *testing.T) {
	s := NewServer(NewReportStore(), fakeAccelSource{}, nil, nil)
	body, _ := json.Marshal(taskSubmitRequest{App: "zip"})
	req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

func TestSubmitTaskRejectsEmptyApp(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewServer(NewReportStore(), fakeAccelSource{}, sub, nil)
	body, _ := json.Marshal(taskSubmitRequest{App: ""})
	req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(sub.submitted()) != 0 {
		t.Error("expected no task to reach the submitter")
	}
}

func TestSubmitTaskBuildsAndForwardsTask(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewServer(NewReportStore(), fakeAccelSource{}, sub, nil)

	body, _ := json.Marshal(taskSubmitRequest{
		App:          "fft",
		Priority:     3,
		DependsOn:    []task.ID{1, 2},
		Required:     "fft",
		EstRuntimeMs: 50,
	})
	req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp taskSubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == 0 {
		t.Error("expected a nonzero allocated task id")
	}

	got := sub.submitted()
	if len(got) != 1 {
		t.Fatalf("expected 1 submitted task, got %d", len(got))
	}
	tsk := got[0]
	if tsk.App != "fft" || tsk.Priority != 3 || tsk.Required != task.FFT || tsk.EstRuntime != 50*time.Millisecond {
		t.Errorf("unexpected submitted task: %+v", tsk)
	}
	if len(tsk.DependsOn) != 2 || tsk.DependsOn[0] != 1 || tsk.DependsOn[1] != 2 {
		t.Errorf("unexpected depends_on: %v", tsk.DependsOn)
	}
}

func TestSubmitTaskRejectsUnknownRequiredKind(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewServer(NewReportStore(), fakeAccelSource{}, sub, nil)
	body, _ := json.Marshal(taskSubmitRequest{App: "zip", Required: "quantum"})
	req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(sub.submitted()) != 0 {
		t.Error("expected no task to reach the submitter")
	}
}

func TestRegisterAppWithoutRegistrarIsNotImplemented(t *testing.T) {
	s := NewServer(NewReportStore(), fakeAccelSource{}, nil, nil)
	body, _ := json.Marshal(appRegisterRequest{App: "zip", Kind: "cpu"})
	req := httptest.NewRequest(http.MethodPost, "/apps", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

func TestRegisterAppForwardsDescriptor(t *testing.T) {
	reg := &fakeAppRegistrar{}
	s := NewServer(NewReportStore(), fakeAccelSource{}, nil, reg)

	body, _ := json.Marshal(appRegisterRequest{App: "fir", BitstreamPath: "/bit/fir.bit", KernelName: "fir8", Kind: "fir"})
	req := httptest.NewRequest(http.MethodPost, "/apps", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if len(reg.got) != 1 || reg.got[0].App != "fir" || reg.got[0].Kind != task.FIR {
		t.Errorf("unexpected registered descriptor: %+v", reg.got)
	}
}
