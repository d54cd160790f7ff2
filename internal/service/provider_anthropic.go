package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

type anthropicProvider struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func newAnthropicProvider(opts ProviderOptions) *anthropicProvider {
	baseURL := opts.APIURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	model := opts.ModelName
	if model == "" {
		model = "claude-3-opus-20240229"
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000 // required by the messages API
	}
	return &anthropicProvider{
		baseURL:     baseURL,
		apiKey:      opts.APIKey,
		model:       model,
		temperature: float64(opts.Temperature) / 100,
		maxTokens:   maxTokens,
		client:      newProviderHTTPClient(),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessagesRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type anthropicMessagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) Complete(ctx context.Context, system, user string) (string, error) {
	url := fmt.Sprintf("%s/messages", p.baseURL)

	reqBody := anthropicMessagesRequest{
		Model:       p.model,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
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
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error: %d, %s", resp.StatusCode, readErrorBody(resp))
	}

	var msgResp anthropicMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	for _, block := range msgResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("empty completion response")
}
