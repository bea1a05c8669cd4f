package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fpgarun/schedrt/task"
)

// taskSubmitRequest is the POST /tasks body schedrtctl submit sends.
type taskSubmitRequest struct {
	App          string    `json:"app"`
	Priority     int       `json:"priority"`
	DependsOn    []task.ID `json:"depends_on,omitempty"`
	Required     string    `json:"required,omitempty"`
	EstRuntimeMs int64     `json:"est_runtime_ms,omitempty"`
}

// taskSubmitResponse is returned once the task has been handed to the
// scheduler. Submission is async — the caller polls GET /tasks/{id} for
// the outcome.
type taskSubmitResponse struct {
	ID task.ID `json:"id"`
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	if s.submitter == nil {
		writeError(w, http.StatusNotImplemented, "this daemon does not accept task submissions")
		return
	}

	var req taskSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.App == "" {
		writeError(w, http.StatusBadRequest, "app is required")
		return
	}

	required := task.CPU
	if req.Required != "" {
		kind, ok := parseResourceKind(req.Required)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown required kind: "+req.Required)
			return
		}
		required = kind
	}

	t := &task.Task{
		ID:         s.allocateTaskID(),
		App:        req.App,
		Priority:   req.Priority,
		DependsOn:  req.DependsOn,
		Required:   required,
		EstRuntime: time.Duration(req.EstRuntimeMs) * time.Millisecond,
	}
	s.submitter.Submit(t)

	writeJSON(w, http.StatusAccepted, taskSubmitResponse{ID: t.ID})
}

// appRegisterRequest is the POST /apps body schedrtctl register-app sends
// in --addr mode, registering straight into a running daemon instead of
// appending to its TOML file.
type appRegisterRequest struct {
	App           string `json:"app"`
	BitstreamPath string `json:"bitstream_path,omitempty"`
	KernelName    string `json:"kernel_name,omitempty"`
	Kind          string `json:"kind"`
}

func (s *Server) handleRegisterApp(w http.ResponseWriter, r *http.Request) {
	if s.apps == nil {
		writeError(w, http.StatusNotImplemented, "this daemon does not accept runtime app registration")
		return
	}

	var req appRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.App == "" {
		writeError(w, http.StatusBadRequest, "app is required")
		return
	}
	kind, ok := parseResourceKind(req.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown kind: "+req.Kind)
		return
	}

	s.apps.Register(task.AppDescriptor{
		App:           req.App,
		BitstreamPath: req.BitstreamPath,
		KernelName:    req.KernelName,
		Kind:          kind,
	})
	w.WriteHeader(http.StatusCreated)
}

// parseResourceKind parses the wire string for a ResourceKind. Unlike
// cmd/schedrtd's config-loading equivalent, an unrecognized kind here is a
// client error (400), not a silent fallback to cpu.
func parseResourceKind(s string) (task.ResourceKind, bool) {
	switch s {
	case "cpu":
		return task.CPU, true
	case "zip":
		return task.ZIP, true
	case "fft":
		return task.FFT, true
	case "fir":
		return task.FIR, true
	default:
		return 0, false
	}
}
