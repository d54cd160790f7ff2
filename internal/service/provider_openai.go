package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIProvider speaks the OpenAI chat-completions API. It also backs
// the "custom" provider kind, which points the same protocol at a
// different base URL.
type openAIProvider struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func newOpenAIProvider(opts ProviderOptions) *openAIProvider {
	baseURL := opts.APIURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := opts.ModelName
	if model == "" {
		model = "gpt-4-turbo-preview"
	}
	return &openAIProvider{
		baseURL:     baseURL,
		apiKey:      opts.APIKey,
		model:       model,
		temperature: float64(opts.Temperature) / 100,
		maxTokens:   opts.MaxTokens,
		client:      newProviderHTTPClient(),
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (p *openAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	url := fmt.Sprintf("%s/chat/completions", p.baseURL)

	reqBody := openAIChatRequest{
		Model: p.model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error: %d, %s", resp.StatusCode, readErrorBody(resp))
	}

	var chatResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	return chatResp.Choices[0].Message.Content, nil
}
