package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/handlers"
	"chatbridge/internal/middleware"
	"chatbridge/internal/models"
	"chatbridge/internal/websocket"
)

type echoFetcher struct{}

func (echoFetcher) FetchReply(ctx context.Context, userText string) string {
	return "echo: " + userText
}
func (echoFetcher) Models() []string { return []string{"a", "b"} }

type emptyStats struct{}

func (emptyStats) ModelStats(ctx context.Context, since time.Time) ([]models.ModelStats, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, stats *handlers.StatsHandler, limiter func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	hub := websocket.NewHub(echoFetcher{})
	t.Cleanup(hub.Close)
	return New(handlers.NewChatHandler(echoFetcher{}, time.Second), handlers.NewPageHandler(), stats, hub, limiter, "http://localhost:5173")
}

func TestRouter_Routes(t *testing.T) {
	r := newTestRouter(t, handlers.NewStatsHandler(emptyStats{}), nil)

	tests := []struct {
		method, path, body string
		status             int
		contains           string
	}{
		{http.MethodGet, "/health", "", http.StatusOK, `"ok"`},
		{http.MethodGet, "/", "", http.StatusOK, "<!DOCTYPE html>"},
		{http.MethodGet, "/api/v1/models", "", http.StatusOK, `"models":["a","b"]`},
		{http.MethodGet, "/api/v1/stats", "", http.StatusOK, `"models":[]`},
		{http.MethodPost, "/api/v1/chat", `{"message":"ping"}`, http.StatusOK, `"reply":"echo: ping"`},
		{http.MethodGet, "/api/v1/chat", "", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/api/v1/nope", "", http.StatusNotFound, ""},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.contains)
			assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRouter_StatsAbsentWithoutDatabase(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_ChatIsRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Stop()
	r := newTestRouter(t, nil, limiter.Middleware)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
		req.RemoteAddr = "192.0.2.10:40000"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())

	// models listing is not limited
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/models", nil)
	req.RemoteAddr = "192.0.2.10:40000"
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
