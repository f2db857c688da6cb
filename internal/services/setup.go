package services

import (
	"time"

	"chatbridge/internal/config"
)

// NewFetcherFromConfig builds the completion client and the fetcher on top of
// it. recorder may be nil.
func NewFetcherFromConfig(cfg *config.Config, recorder AttemptRecorder) *ResponseFetcher {
	client := NewCompletionClient(CompletionOptions{
		APIKey:         cfg.OpenRouterAPIKey,
		BaseURL:        cfg.OpenRouterBaseURL,
		Referer:        cfg.OpenRouterReferer,
		Title:          cfg.OpenRouterTitle,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		MaxTokens:      cfg.MaxTokens,
		Temperature:    cfg.Temperature,
		TopP:           cfg.TopP,
	})

	opts := FetcherOptions{
		Models:         cfg.Models,
		RetryAttempts:  cfg.RetryAttempts,
		InitialBackoff: time.Duration(cfg.InitialBackoffMs) * time.Millisecond,
		Concurrency:    cfg.FetchConcurrency,
		GreetingReply:  cfg.GreetingReply,
		Recorder:       recorder,
	}
	return NewResponseFetcher(client, opts)
}
