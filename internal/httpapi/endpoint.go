package httpapi

import (
	"context"
	"errors"

	"github.com/fpgarun/schedrt/task"
)

// taskRequest is the decoded request for GET /tasks/{id}.
type taskRequest struct {
	ID task.ID
}

var errTaskNotFound = errors.New("task not found")

// MakeTaskEndpoint returns the go-kit endpoint backing GET /tasks/{id}: a
// plain func(context.Context, interface{}) (interface{}, error), which is
// assignable directly to go-kit's endpoint.Endpoint without importing
// go-kit/kit/endpoint (see DESIGN.md on why that package adds nothing
// here).
func MakeTaskEndpoint(s *Server) func(ctx context.Context, request interface{}) (interface{}, error) {
	return func(_ context.Context, request interface{}) (interface{}, error) {
		req := request.(taskRequest)
		res, found := s.results.Result(req.ID)
		if !found {
			return nil, errTaskNotFound
		}
		return taskResultResponse{
			ID:          res.ID,
			OK:          res.OK,
			Message:     res.Message,
			TimeNs:      res.Runtime.Nanoseconds(),
			Accelerator: res.Accelerator,
		}, nil
	}
}
