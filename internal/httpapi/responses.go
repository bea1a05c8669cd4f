package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/fpgarun/schedrt/task"
)

// AcceleratorStatus is one row of GET /accelerators.
type AcceleratorStatus struct {
	Name           string `json:"name"`
	Available      bool   `json:"available"`
	Reconfigurable bool   `json:"reconfigurable"`
	CurrentApp     string `json:"current_app,omitempty"`
}

// taskResultResponse is the wire shape for GET /tasks/{id}.
type taskResultResponse struct {
	ID          task.ID `json:"id"`
	OK          bool    `json:"ok"`
	Message     string  `json:"message"`
	TimeNs      int64   `json:"time_ns"`
	Accelerator string  `json:"accelerator"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
