package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// CompletionOptions configures the upstream completion API client.
type CompletionOptions struct {
	APIKey         string
	BaseURL        string
	Referer        string
	Title          string
	RequestTimeout time.Duration
	MaxTokens      int
	Temperature    float64
	TopP           float64
}

// CompletionClient sends single-turn chat completions to an OpenAI-compatible aggregation API.
type CompletionClient struct {
	cli         openai.Client
	maxTokens   int64
	temperature float64
	topP        float64
}

func NewCompletionClient(opts CompletionOptions) *CompletionClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		// The fetcher owns the retry policy.
		option.WithMaxRetries(0),
	}
	if opts.RequestTimeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.RequestTimeout))
	}
	if opts.Referer != "" {
		reqOpts = append(reqOpts, option.WithHeader("HTTP-Referer", opts.Referer))
	}
	if opts.Title != "" {
		reqOpts = append(reqOpts, option.WithHeader("X-Title", opts.Title))
	}

	return &CompletionClient{
		cli:         openai.NewClient(reqOpts...),
		maxTokens:   int64(opts.MaxTokens),
		temperature: opts.Temperature,
		topP:        opts.TopP,
	}
}

// Complete sends text as a single user turn to model. An empty string with a nil error
// means the response carried no completion choice.
func (c *CompletionClient) Complete(ctx context.Context, model, text string) (string, error) {
	res, err := c.cli.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(text),
		},
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(c.temperature),
		TopP:        openai.Float(c.topP),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", &StatusError{StatusCode: apierr.StatusCode, Message: apierr.Message}
		}
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(res.Choices) == 0 {
		return "", nil
	}
	return res.Choices[0].Message.Content, nil
}
