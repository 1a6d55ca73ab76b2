// Package assistant wraps the OpenAI chat completion API as an opaque
// prose-generation service: a formatted prompt in, a text completion out.
package assistant

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/safewalk/server/internal/errdefs"
)

const stage = "assistant"

const defaultTimeout = 45 * time.Second

// Client produces completions for assembled journey prompts.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewClient creates an assistant client. An empty API key yields a client
// whose calls fail with UpstreamUnavailable; the delivery layer shows the
// configured fallback message instead. Each completion call is bounded by
// timeout.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if apiKey == "" {
		return &Client{client: nil, model: model, timeout: timeout}
	}
	return &Client{client: openai.NewClient(apiKey), model: model, timeout: timeout}
}

// Complete sends a single-turn prompt and returns the completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", errdefs.New(errdefs.UpstreamUnavailable, stage, "assistant API key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.7,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", errdefs.Wrap(errdefs.UpstreamUnavailable, stage, err)
	}

	if len(resp.Choices) == 0 {
		return "", errdefs.New(errdefs.UpstreamRejected, stage, "no completion choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}
