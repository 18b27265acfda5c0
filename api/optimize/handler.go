// Package optimize serves the dispatch optimization endpoint.
package optimize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kilianp07/cogen/core/freesteam"
	"github.com/kilianp07/cogen/core/logger"
	"github.com/kilianp07/cogen/core/model"
)

const maxBodyBytes = 1 << 20

// Runner produces the merged result of one request.
type Runner interface {
	Run(ctx context.Context, req model.Request) (model.Result, error)
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHandler returns the POST /api/optimize handler. Every solver status is
// answered with 200; callers branch on solution.status.
func NewHandler(r Runner, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, err := decode(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err != nil {
			WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		res, err := r.Run(req.Context(), body)
		if err != nil {
			status := StatusOf(err)
			if status == http.StatusInternalServerError {
				log.Errorf("optimize: %v", err)
			}
			WriteJSON(w, status, ErrorResponse{Error: err.Error()})
			return
		}
		WriteJSON(w, http.StatusOK, res)
	})
}

func decode(r io.Reader) (model.Request, error) {
	var body model.Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return model.Request{}, fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return model.Request{}, errors.New("invalid request body: trailing data")
	}
	return body, nil
}

// StatusOf maps a run error to an HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, freesteam.ErrNoMatchingRecord):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
