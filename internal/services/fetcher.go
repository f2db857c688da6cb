package services

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"chatbridge/internal/models"
)

const (
	NoResponseReply = "🤖 No response from model."
	FailureReply    = "🤖 Sorry, all models failed to respond. Try again later."
)

// Completer performs one completion request against one model.
type Completer interface {
	Complete(ctx context.Context, model, text string) (string, error)
}

// AttemptRecorder receives one record per request made by the fetcher.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *models.FetchAttempt) error
}

type FetcherOptions struct {
	Models         []string
	RetryAttempts  int
	InitialBackoff time.Duration
	// Concurrency bounds in-flight fetches across callers; zero means unbounded.
	Concurrency   int
	GreetingReply string
	Recorder      AttemptRecorder
}

// ResponseFetcher turns user text into an assistant reply by walking an ordered
// fallback chain of models. It holds no per-call state.
type ResponseFetcher struct {
	completer      Completer
	models         []string
	retryAttempts  int
	initialBackoff time.Duration
	greetingReply  string
	recorder       AttemptRecorder
	slots          *semaphore.Weighted
	sleep          func(ctx context.Context, d time.Duration) error
}

func NewResponseFetcher(completer Completer, opts FetcherOptions) *ResponseFetcher {
	f := &ResponseFetcher{
		completer:      completer,
		models:         uniqueModels(opts.Models),
		retryAttempts:  opts.RetryAttempts,
		initialBackoff: opts.InitialBackoff,
		greetingReply:  opts.GreetingReply,
		recorder:       opts.Recorder,
		sleep:          sleepContext,
	}
	if f.retryAttempts <= 0 {
		f.retryAttempts = 3
	}
	if f.initialBackoff <= 0 {
		f.initialBackoff = time.Second
	}
	if f.greetingReply == "" {
		f.greetingReply = DefaultGreetingReply
	}
	if opts.Concurrency > 0 {
		f.slots = semaphore.NewWeighted(int64(opts.Concurrency))
	}
	return f
}

// Models returns the fallback chain in the order it is tried.
func (f *ResponseFetcher) Models() []string {
	return append([]string(nil), f.models...)
}

// FetchReply always resolves to a displayable string: a model's reply, the canned
// greeting, or FailureReply once every model has used up its retries.
func (f *ResponseFetcher) FetchReply(ctx context.Context, userText string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("✗ Fetch aborted: %v", r)
			reply = FailureReply
		}
	}()

	if f.slots != nil {
		if err := f.slots.Acquire(ctx, 1); err != nil {
			log.Printf("✗ No fetch slot available: %v", err)
			return FailureReply
		}
		defer f.slots.Release(1)
	}

	fetchID := uuid.New()
	for _, model := range f.models {
		if reply, ok := f.tryModel(ctx, fetchID, model, userText); ok {
			return reply
		}
		if ctx.Err() != nil {
			log.Printf("✗ Fetch %s cancelled: %v", fetchID, ctx.Err())
			return FailureReply
		}
	}

	log.Printf("✗ Fetch %s: all %d models failed", fetchID, len(f.models))
	return FailureReply
}

// tryModel spends one model's retry budget. Only rate limiting is backed off;
// every other failure retries immediately.
func (f *ResponseFetcher) tryModel(ctx context.Context, fetchID uuid.UUID, model, userText string) (string, bool) {
	retries := f.retryAttempts
	delays := f.newBackoff()
	attempt := 0

	for retries > 0 {
		attempt++
		log.Printf("Trying model %s (attempt %d/%d)", model, attempt, f.retryAttempts)

		start := time.Now()
		content, err := f.completer.Complete(ctx, model, userText)
		elapsed := time.Since(start)

		if err == nil {
			f.record(ctx, fetchID, model, attempt, models.OutcomeSuccess, http.StatusOK, elapsed)
			if content == "" {
				content = NoResponseReply
			}
			log.Printf("✓ Reply from %s (%d chars)", model, len(content))
			if IsGreeting(userText) {
				return f.greetingReply, true
			}
			return content, true
		}

		log.Printf("✗ Error with model %s: %v", model, err)

		if IsRateLimited(err) {
			f.record(ctx, fetchID, model, attempt, models.OutcomeRateLimited, http.StatusTooManyRequests, elapsed)
			delay := delays.NextBackOff()
			log.Printf("Rate limit hit on %s. Retrying in %s", model, delay)
			if err := f.sleep(ctx, delay); err != nil {
				return "", false
			}
		} else {
			f.record(ctx, fetchID, model, attempt, models.OutcomeFailed, statusCodeOf(err), elapsed)
			if ctx.Err() != nil {
				return "", false
			}
		}

		retries--
	}

	return "", false
}

// newBackoff yields InitialBackoff, then doubles it on every call, without jitter.
func (f *ResponseFetcher) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (f *ResponseFetcher) record(ctx context.Context, fetchID uuid.UUID, model string, attempt int, outcome models.AttemptOutcome, status int, elapsed time.Duration) {
	if f.recorder == nil {
		return
	}
	err := f.recorder.RecordAttempt(context.WithoutCancel(ctx), &models.FetchAttempt{
		ID:         uuid.New(),
		FetchID:    fetchID,
		Model:      model,
		Attempt:    attempt,
		Outcome:    outcome,
		StatusCode: status,
		Duration:   elapsed,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		log.Printf("WARNING: failed to record fetch attempt: %v", err)
	}
}

func uniqueModels(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, m := range in {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
