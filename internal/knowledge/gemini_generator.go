package knowledge

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiGenerator implements Generator using Gemini text generation.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float64
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName, baseURL string, temperature float64) (*GeminiGenerator, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiGenerator{
		client:      client,
		model:       modelName,
		temperature: temperature,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.temperature)),
	}
	if p.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.MaxTokens)
	}
	if p.System != "" {
		config.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), config)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	text := resp.Text()
	if text == "" {
		return emptyGeneration, nil
	}
	return cleanMarkdownOutput(text), nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isRetryableStatus(apiErr.Code) {
		return &RetryableError{StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return fmt.Errorf("gemini generate: %w", err)
}
