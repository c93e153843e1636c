package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"github.com/rogerio-castellano/pos-terminal/internal/remote"
	"github.com/rogerio-castellano/pos-terminal/internal/repo"
	"go.uber.org/zap"
)

// readJSON tries to read the body of a request and converts it into JSON
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1048576 // one megabyte
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	err = dec.Decode(&struct{}{})
	if err != io.EOF {
		return errors.New("body must have only a single json value")
	}

	return nil
}

// writeJSON takes a response status code and arbitrary data and writes a json response to the client
func writeJSON(w http.ResponseWriter, status int, data any, headers ...http.Header) error {
	out, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to read JSON: %w", err)
	}

	if len(headers) > 0 {
		for key, value := range headers[0] {
			w.Header()[key] = value
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(out)
	if err != nil {
		return fmt.Errorf("failed to write to response: %w", err)
	}

	return nil
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		s.log.Warn("failed to write JSON response", zap.Error(err))
	}
}

// respondError maps domain errors to status codes.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *pos.ValidationError
		rej  *remote.RejectionError
	)
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		resp.Error = pos.ErrInvalidRequest.Error()
		resp.Problems = verr.Problems
	case errors.Is(err, pos.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, repo.ErrProductNotFound), errors.Is(err, repo.ErrOfflineTransactionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repo.ErrAlreadyQueued):
		status = http.StatusConflict
	case errors.As(err, &rej):
		status = http.StatusUnprocessableEntity
		resp.Error = rej.Message
		resp.Code = rej.Code
	case errors.Is(err, pos.ErrOfflineQueueWrite):
		status = http.StatusInsufficientStorage
	case remote.IsNetworkError(err), errors.Is(err, localstore.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}
	s.respond(w, status, resp)
}
