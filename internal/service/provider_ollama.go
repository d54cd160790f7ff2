package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultOllamaBaseURL = "http://localhost:11434"

type ollamaProvider struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

func newOllamaProvider(opts ProviderOptions) *ollamaProvider {
	baseURL := opts.APIURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := opts.ModelName
	if model == "" {
		model = "llama3.2"
	}
	return &ollamaProvider{
		baseURL:     baseURL,
		model:       model,
		temperature: float64(opts.Temperature) / 100,
		client:      newProviderHTTPClient(),
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Message openAIMessage `json:"message"`
}

func (p *ollamaProvider) Complete(ctx context.Context, system, user string) (string, error) {
	url := fmt.Sprintf("%s/api/chat", p.baseURL)

	reqBody := ollamaChatRequest{
		Model: p.model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  false,
		Options: ollamaOptions{Temperature: p.temperature},
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

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error: %d, %s", resp.StatusCode, readErrorBody(resp))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return chatResp.Message.Content, nil
}
