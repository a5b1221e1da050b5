package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/dmmcquay/reversi-mcp/internal/engine"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
	"github.com/dmmcquay/reversi-mcp/internal/ratelimit"
)

const maxBodyBytes = 64 << 10

// ErrorResponse is the body of every non-2xx answer from /v1.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *HTTPServer) handleMove(w http.ResponseWriter, r *http.Request) {
	req, ok := s.admit(w, r, "move")
	if !ok {
		return
	}
	resp, err := s.engine.Decide(r.Context(), req)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *HTTPServer) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	req, ok := s.admit(w, r, "legal-moves")
	if !ok {
		return
	}
	moves, err := s.engine.LegalMoves(r.Context(), req)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, moves)
}

// admit applies the rate limit and decodes the body. It writes the error
// response itself and reports whether the handler should continue.
func (s *HTTPServer) admit(w http.ResponseWriter, r *http.Request, operation string) (*engine.MoveRequest, bool) {
	client := clientID(r)
	allowed, err := s.limiter.Allow(client, operation)
	s.prometheus.RecordRateLimit(client, operation, !allowed)
	if !allowed {
		var limitErr *ratelimit.LimitError
		if errors.As(err, &limitErr) && limitErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limitErr.RetryAfter.Seconds()))))
		}
		s.writeError(w, r, http.StatusTooManyRequests, err)
		return nil, false
	}

	var req engine.MoveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("malformed request body: %w", err))
		return nil, false
	}
	return &req, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidMover):
		return http.StatusBadRequest
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	reqID, _ := logging.RequestIDFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		s.logger.WithContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.WithContext(r.Context()).Warn("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, r, status, ErrorResponse{Error: err.Error(), RequestID: reqID})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithContext(r.Context()).Error("Failed to encode response", "error", err)
	}
}
