package knowledge

import (
	"context"
	"fmt"
)

// Prompt is one generation request. MaxTokens caps the length of the reply.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, p Prompt) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}

// RetryableError marks a transient provider failure (rate limit, server
// error) that WithRetry may try again.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

func isRetryableStatus(code int) bool {
	return code == 429 || code >= 500
}
