package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const emptyGeneration = "No documentation available."

// OpenAIGenerator talks to any OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client      *http.Client
	apiKey      string
	model       string
	endpoint    string
	temperature float64
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenAIGenerator(apiKey, model, baseURL string, temperature float64) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
		apiKey:      apiKey,
		model:       model,
		endpoint:    chatEndpoint(baseURL),
		temperature: temperature,
	}
}

// chatEndpoint accepts a bare host, a /v1 base or a full completions URL.
func chatEndpoint(baseURL string) string {
	endpoint := strings.TrimSpace(baseURL)
	if endpoint == "" {
		return "https://api.openai.com/v1/chat/completions"
	}
	endpoint = strings.TrimRight(endpoint, "/")
	if strings.HasSuffix(endpoint, "/chat/completions") {
		return endpoint
	}
	if strings.HasSuffix(endpoint, "/v1") {
		return endpoint + "/chat/completions"
	}
	return endpoint + "/v1/chat/completions"
}

func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return "", fmt.Errorf("openai api key is required")
	}
	if strings.TrimSpace(g.model) == "" {
		return "", fmt.Errorf("openai model is required")
	}

	messages := make([]openAIChatMessage, 0, 2)
	if p.System != "" {
		messages = append(messages, openAIChatMessage{Role: "system", Content: p.System})
	}
	messages = append(messages, openAIChatMessage{Role: "user", Content: p.User})

	body, err := json.Marshal(openAIChatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   p.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if isRetryableStatus(resp.StatusCode) {
			return "", &RetryableError{StatusCode: resp.StatusCode, Message: msg}
		}
		return "", fmt.Errorf("openai chat request failed (%d): %s", resp.StatusCode, msg)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decoding openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return emptyGeneration, nil
	}
	text := parsed.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return emptyGeneration, nil
	}
	return cleanMarkdownOutput(text), nil
}
