package models

import (
	"time"

	"github.com/google/uuid"
)

type AttemptOutcome string

const (
	OutcomeSuccess     AttemptOutcome = "success"
	OutcomeRateLimited AttemptOutcome = "rate_limited"
	OutcomeFailed      AttemptOutcome = "failed"
)

// FetchAttempt records one request made against one model. It never carries the user's text.
type FetchAttempt struct {
	ID         uuid.UUID      `json:"id"`
	FetchID    uuid.UUID      `json:"fetch_id"`
	Model      string         `json:"model"`
	Attempt    int            `json:"attempt"`
	Outcome    AttemptOutcome `json:"outcome"`
	StatusCode int            `json:"status_code"`
	Duration   time.Duration  `json:"duration"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ModelStats aggregates recorded attempts for one model.
type ModelStats struct {
	Model         string  `json:"model"`
	Attempts      int     `json:"attempts"`
	Successes     int     `json:"successes"`
	RateLimited   int     `json:"rate_limited"`
	Failed        int     `json:"failed"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

type StatsResponse struct {
	Since  time.Time    `json:"since"`
	Models []ModelStats `json:"models"`
}
