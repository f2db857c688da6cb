package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/middleware"
	"chatbridge/internal/models"
)

type stubFetcher struct {
	reply    string
	models   []string
	received []string
}

func (s *stubFetcher) FetchReply(ctx context.Context, userText string) string {
	s.received = append(s.received, userText)
	return s.reply
}

func (s *stubFetcher) Models() []string {
	return s.models
}

// slowFetcher never hears back from upstream and gives up only when ctx ends.
type slowFetcher struct {
	failure string
}

func (s slowFetcher) FetchReply(ctx context.Context, userText string) string {
	<-ctx.Done()
	return s.failure
}

func (slowFetcher) Models() []string { return nil }

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.APIError {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Error
}

// ─── Chat Handler Tests ───

func TestChatHandler_Send(t *testing.T) {
	fetcher := &stubFetcher{reply: "**Paris** is the capital."}
	h := NewChatHandler(fetcher, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"What is the capital of France?"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Send(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ChatResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "**Paris** is the capital.", resp.Reply)
	assert.Contains(t, resp.HTML, "<strong>Paris</strong>")
	assert.Equal(t, []string{"What is the capital of France?"}, fetcher.received)
}

func TestChatHandler_Send_FetchDeadlineAnswersWithFailureReply(t *testing.T) {
	const failure = "🤖 Sorry, all models failed to respond. Try again later."
	h := NewChatHandler(slowFetcher{failure: failure}, 50*time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"anyone there?"}`))
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Send(rr, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after the fetch deadline")
	}

	require.Equal(t, http.StatusOK, rr.Code)
	var resp models.ChatResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, failure, resp.Reply)
}

func TestChatHandler_Send_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty message", `{"message":""}`},
		{"whitespace message", `{"message":"   \n"}`},
		{"missing message", `{}`},
		{"malformed json", `{"message":`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &stubFetcher{reply: "unused"}
			h := NewChatHandler(fetcher, 0)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(tc.body))
			req.Header.Set(middleware.RequestIDHeader, "req-42")
			rr := httptest.NewRecorder()

			h.Send(rr, req)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			apiErr := decodeError(t, rr)
			assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
			assert.Equal(t, "req-42", apiErr.RequestID)
			assert.Empty(t, fetcher.received)
		})
	}
}

func TestChatHandler_Models(t *testing.T) {
	h := NewChatHandler(&stubFetcher{models: []string{"google/gemini-pro", "openai/gpt-3.5-turbo"}}, 0)

	rr := httptest.NewRecorder()
	h.Models(rr, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

	var resp models.ModelsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, []string{"google/gemini-pro", "openai/gpt-3.5-turbo"}, resp.Models)
}

// ─── Render Tests ───

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains string
		excludes string
	}{
		{"emphasis", "*hi*", "<em>hi</em>", ""},
		{"code fence", "```go\nfmt.Println(1)\n```", "<code", ""},
		{"raw html skipped", "hello <b onclick=\"x()\">world</b>", "hello", "<b"},
		{"links open in new tab", "[go](https://go.dev)", `target="_blank"`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := RenderMarkdown(tc.in)
			assert.Contains(t, out, tc.contains)
			if tc.excludes != "" {
				assert.NotContains(t, out, tc.excludes)
			}
		})
	}
}

// ─── Page Tests ───

func TestPageHandler_Index(t *testing.T) {
	rr := httptest.NewRecorder()
	NewPageHandler().Index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html"))
	body := rr.Body.String()
	for _, want := range []string{"/api/v1/chat", "/api/v1/ws", "🤖 Typing..."} {
		assert.Contains(t, body, want)
	}
}

// ─── Stats Handler Tests ───

type stubStats struct {
	stats []models.ModelStats
	err   error
	since time.Time
}

func (s *stubStats) ModelStats(ctx context.Context, since time.Time) ([]models.ModelStats, error) {
	s.since = since
	return s.stats, s.err
}

func TestStatsHandler_Get(t *testing.T) {
	repo := &stubStats{stats: []models.ModelStats{{Model: "a", Attempts: 4, Successes: 1, RateLimited: 3}}}
	h := NewStatsHandler(repo)

	rr := httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats?window=1h", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), repo.since, time.Minute)

	var resp models.StatsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Models, 1)
	assert.Equal(t, 3, resp.Models[0].RateLimited)
}

func TestStatsHandler_Get_EmptyIsArray(t *testing.T) {
	rr := httptest.NewRecorder()
	NewStatsHandler(&stubStats{}).Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	assert.Contains(t, rr.Body.String(), `"models":[]`)
}

func TestStatsHandler_Get_Errors(t *testing.T) {
	rr := httptest.NewRecorder()
	NewStatsHandler(&stubStats{}).Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats?window=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	NewStatsHandler(&stubStats{err: errors.New("connection refused")}).Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rr).Code)
}
