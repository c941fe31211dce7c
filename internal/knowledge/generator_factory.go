package knowledge

import (
	"context"
	"fmt"
	"strings"
)

type GeneratorOptions struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
}

// NewGenerator builds the backend for opts.Provider, defaulting to OpenAI.
func NewGenerator(ctx context.Context, opts GeneratorOptions) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "openai"
	}

	switch provider {
	case "openai":
		return NewOpenAIGenerator(opts.APIKey, opts.Model, opts.BaseURL, opts.Temperature), nil
	case "gemini":
		return NewGeminiGenerator(ctx, opts.APIKey, opts.Model, opts.BaseURL, opts.Temperature)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", opts.Provider)
	}
}
