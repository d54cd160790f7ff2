package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_VariantSelection(t *testing.T) {
	tests := []struct {
		name    string
		opts    ProviderOptions
		want    interface{}
		wantErr error
	}{
		{"openai", ProviderOptions{Provider: "openai"}, &openAIProvider{}, nil},
		{"custom with url", ProviderOptions{Provider: "custom", APIURL: "http://llm.internal/v1"}, &openAIProvider{}, nil},
		{"custom without url", ProviderOptions{Provider: "custom"}, nil, ErrValidation},
		{"anthropic", ProviderOptions{Provider: "anthropic", APIKey: "k"}, &anthropicProvider{}, nil},
		{"ollama", ProviderOptions{Provider: "ollama"}, &ollamaProvider{}, nil},
		{"unknown", ProviderOptions{Provider: "bard"}, nil, ErrValidation},
		{"empty", ProviderOptions{}, nil, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4-turbo-preview", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be terse", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.InDelta(t, 0.7, req.Temperature, 0.001)

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"done"}}]}`)
	}))
	defer srv.Close()

	p := newOpenAIProvider(ProviderOptions{
		Provider:    "openai",
		APIKey:      "sk-test",
		APIURL:      srv.URL + "/v1",
		Temperature: 70,
	})

	out, err := p.Complete(context.Background(), "be terse", "hello")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestOpenAIProvider_ErrorBodyTruncated(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write(long)
	}))
	defer srv.Close()

	p := newOpenAIProvider(ProviderOptions{Provider: "openai", APIURL: srv.URL})

	_, err := p.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Less(t, len(err.Error()), 600, "upstream error bodies are truncated")
}

func TestAnthropicProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "be terse", req["system"])
		assert.NotZero(t, req["max_tokens"])

		fmt.Fprint(w, `{"content":[{"type":"text","text":"done"}]}`)
	}))
	defer srv.Close()

	p := newAnthropicProvider(ProviderOptions{
		Provider: "anthropic",
		APIKey:   "sk-ant",
		APIURL:   srv.URL,
	})

	out, err := p.Complete(context.Background(), "be terse", "hello")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestOllamaProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])

		fmt.Fprint(w, `{"message":{"role":"assistant","content":"done"}}`)
	}))
	defer srv.Close()

	p := newOllamaProvider(ProviderOptions{Provider: "ollama", APIURL: srv.URL})

	out, err := p.Complete(context.Background(), "s", "hello")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}
