package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/config"
	"github.com/dmmcquay/reversi-mcp/internal/engine"
	"github.com/dmmcquay/reversi-mcp/internal/health"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
	"github.com/dmmcquay/reversi-mcp/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openingBody = `{"teban":1,"banmen":[[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,-1,1,0,0],[0,0,1,-1,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0]]}`

func testLogger() logging.ContextLogger {
	return logging.NewLoggerWithWriter(io.Discard, &logging.Config{Level: "debug", Format: logging.FormatJSON})
}

func newTestServer(t *testing.T, eng engine.EngineInterface, limiter *ratelimit.Limiter) *HTTPServer {
	t.Helper()
	logger := testLogger()
	checker := health.NewChecker(logger, "1.0.0", "abc123")
	checker.RegisterCheck("engine", health.PingCheck(eng))
	return NewHTTPServer(Options{
		Addr:    "127.0.0.1:0",
		Engine:  eng,
		Limiter: limiter,
		Checker: checker,
		Logger:  logger,
	})
}

func post(t *testing.T, s *HTTPServer, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestMoveWithRealEngine(t *testing.T) {
	s := newTestServer(t, engine.NewEngine(&config.EngineConfig{SearchDepth: 3}, testLogger()), nil)

	rec := post(t, s, "/v1/move", openingBody, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp engine.MoveResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	legal := []engine.MoveResponse{{Y: 1, X: 2}, {Y: 2, X: 1}, {Y: 3, X: 4}, {Y: 4, X: 3}}
	assert.Contains(t, legal, resp)
}

func TestMoveNoMove(t *testing.T) {
	s := newTestServer(t, engine.NewEngine(nil, testLogger()), nil)
	full := `{"teban":-1,"banmen":[[1,1,1,1,1,1],[1,1,1,1,1,1],[1,1,1,1,1,1],[1,1,1,1,1,1],[1,1,1,1,1,1],[1,1,1,1,1,1]]}`

	rec := post(t, s, "/v1/move", full, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"y":-1,"x":-1}`, rec.Body.String())
}

func TestMoveInvalidMover(t *testing.T) {
	s := newTestServer(t, engine.NewEngine(nil, testLogger()), nil)
	body := strings.Replace(openingBody, `"teban":1`, `"teban":0`, 1)

	header := http.Header{}
	header.Set("X-Request-Id", "abc-123")
	rec := post(t, s, "/v1/move", body, header)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "abc-123", errResp.RequestID)
	assert.Contains(t, errResp.Error, "invalid mover 0")
	assert.Contains(t, errResp.Error, "abc-123")
}

func TestMoveGeneratesRequestID(t *testing.T) {
	s := newTestServer(t, engine.NewMockEngine(), nil)

	rec := post(t, s, "/v1/move", `{"teban":1}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMoveMalformedBody(t *testing.T) {
	mock := engine.NewMockEngine()
	s := newTestServer(t, mock, nil)

	for _, body := range []string{"", "{", `{"teban":"one"}`, `[1,2]`} {
		rec := post(t, s, "/v1/move", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)

		var errResp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
		assert.Contains(t, errResp.Error, "malformed request body")
		assert.NotEmpty(t, errResp.RequestID)
	}
	assert.Equal(t, 0, mock.GetDecideCallCount())
}

func TestMoveEngineFailure(t *testing.T) {
	mock := engine.NewMockEngine()
	mock.SetDecideResponse(nil, errors.New("boom"))
	s := newTestServer(t, mock, nil)

	rec := post(t, s, "/v1/move", openingBody, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMoveRateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(&config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 60,
		BurstSize:      2,
	}, testLogger())
	t.Cleanup(limiter.Stop)
	s := newTestServer(t, engine.NewMockEngine(), limiter)

	for i := 0; i < 2; i++ {
		rec := post(t, s, "/v1/move", openingBody, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := post(t, s, "/v1/move", openingBody, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Contains(t, errResp.Error, "rate limit exceeded")
}

func TestLegalMoves(t *testing.T) {
	s := newTestServer(t, engine.NewEngine(nil, testLogger()), nil)

	rec := post(t, s, "/v1/legal-moves", openingBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"y":1,"x":2},{"y":2,"x":1},{"y":3,"x":4},{"y":4,"x":3}]`, rec.Body.String())
}

func TestMoveRejectsGet(t *testing.T) {
	s := newTestServer(t, engine.NewMockEngine(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/move", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	mock := engine.NewMockEngine()
	s := newTestServer(t, mock, nil)

	tests := []struct {
		path string
		code int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.code, rec.Code, tt.path)
	}

	mock.SetPingError(errors.New("down"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsExposeRoutes(t *testing.T) {
	s := newTestServer(t, engine.NewMockEngine(), nil)
	post(t, s, "/v1/move", openingBody, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "reversi_http_requests_total")
	assert.Contains(t, body, `path="/v1/move"`)
}

func TestHTTPServerStartStop(t *testing.T) {
	s := newTestServer(t, engine.NewMockEngine(), nil)
	require.NoError(t, s.Start())

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestHTTPServerStartBindError(t *testing.T) {
	first := newTestServer(t, engine.NewMockEngine(), nil)
	require.NoError(t, first.Start())
	t.Cleanup(func() { _ = first.Stop(context.Background()) })

	second := NewHTTPServer(Options{
		Addr:    first.Addr(),
		Engine:  engine.NewMockEngine(),
		Checker: health.NewChecker(testLogger(), "", ""),
		Logger:  testLogger(),
	})
	assert.Error(t, second.Start())
}
