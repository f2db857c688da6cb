package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"chatbridge/internal/models"
)

const defaultStatsWindow = 24 * time.Hour

type attemptStats interface {
	ModelStats(ctx context.Context, since time.Time) ([]models.ModelStats, error)
}

// StatsHandler reports per-model outcomes from the attempt audit table.
type StatsHandler struct {
	attempts attemptStats
}

func NewStatsHandler(attempts attemptStats) *StatsHandler {
	return &StatsHandler{attempts: attempts}
}

// Get accepts ?window=<duration>, e.g. 1h or 30m. Default 24h.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	window := defaultStatsWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "window must be a positive duration such as 1h", r))
			return
		}
		window = d
	}

	since := time.Now().Add(-window).UTC()
	stats, err := h.attempts.ModelStats(r.Context(), since)
	if err != nil {
		log.Printf("model stats: failed to query attempts: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load stats", r))
		return
	}
	if stats == nil {
		stats = []models.ModelStats{}
	}

	writeJSON(w, http.StatusOK, models.StatsResponse{Since: since, Models: stats})
}
