package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"chatbridge/internal/models"
)

// maxMessageBytes bounds the request body of a chat submission.
const maxMessageBytes = 64 << 10

type chatFetcher interface {
	FetchReply(ctx context.Context, userText string) string
	Models() []string
}

type ChatHandler struct {
	fetcher      chatFetcher
	fetchTimeout time.Duration
}

// NewChatHandler bounds each fetch by fetchTimeout; zero leaves it to the
// request context. The server's WriteTimeout must be longer.
func NewChatHandler(fetcher chatFetcher, fetchTimeout time.Duration) *ChatHandler {
	return &ChatHandler{fetcher: fetcher, fetchTimeout: fetchTimeout}
}

// Send answers one message through the direct-call path. The fetcher never
// fails, so every valid request gets a 200 with a displayable reply.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	ctx := r.Context()
	if h.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.fetchTimeout)
		defer cancel()
	}
	// A fetch cut short by the deadline still resolves to the failure reply.
	reply := h.fetcher.FetchReply(ctx, req.Message)

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Reply: reply,
		HTML:  RenderMarkdown(reply),
	})
}

func (h *ChatHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ModelsResponse{Models: h.fetcher.Models()})
}
