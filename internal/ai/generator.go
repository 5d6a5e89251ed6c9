// Package ai wraps the external text-generation provider behind a single
// Generate call. The client speaks the OpenAI chat-completions protocol via
// go-openai with a configurable base URL, which is how Gemini is reached
// (its OpenAI-compatible endpoint). No retry logic lives here: redelivery on
// failure is the job queue's responsibility.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Generator produces a reply for a single user message. Implementations
// return a generic error on any provider or network issue.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// ErrEmptyCompletion is returned when the provider answers without usable
// choices. Treated like any other processing failure by the worker.
var ErrEmptyCompletion = errors.New("ai: provider returned no completion")

// Client is the production Generator.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// Options configures NewClient.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration // per-call ceiling; 0 disables
}

// NewClient builds a Generator against an OpenAI-compatible endpoint.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("ai: api key is required")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("ai: model is required")
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		timeout: opts.Timeout,
	}, nil
}

var _ Generator = (*Client)(nil)

// Generate sends the text as a single user turn and returns the first choice.
func (c *Client) Generate(ctx context.Context, text string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ai: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}
