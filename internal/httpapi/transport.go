package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"

	"github.com/fpgarun/schedrt/task"
)

// MakeHandler wires MakeTaskEndpoint behind go-kit's transport/http server,
// matching the teacher's worker/api/transport.go MakeHandler shape.
func MakeHandler(s *Server) http.HandlerFunc {
	return kithttp.NewServer(
		MakeTaskEndpoint(s),
		decodeTaskRequest,
		encodeTaskResponse,
		kithttp.ServerErrorEncoder(encodeTaskError),
	).ServeHTTP
}

func decodeTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	idParam := chi.URLParam(r, "id")
	id, err := decodeTaskID(idParam)
	if err != nil {
		return nil, err
	}
	return taskRequest{ID: id}, nil
}

func encodeTaskResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	return writeJSON(w, http.StatusOK, response)
}

func encodeTaskError(_ context.Context, err error, w http.ResponseWriter) {
	if errors.Is(err, errTaskNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func decodeTaskID(s string) (task.ID, error) {
	var id uint64
	if _, err := fmt.Sscan(s, &id); err != nil {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return task.ID(id), nil
}
