package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider is the generation capability consumed by the pipeline: one
// system+user exchange in, raw text out. Variant backends implement it
// and are selected by configuration, never by branching at call sites.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ProviderOptions carries the construction parameters shared by all
// provider kinds. Temperature is on the 0-100 scale used by the config
// API and divided down where a backend wants 0-1.
type ProviderOptions struct {
	Provider    string
	APIKey      string
	APIURL      string
	ModelName   string
	Temperature int
	MaxTokens   int
}

// NewProvider builds the backend named by opts.Provider. "custom" is an
// OpenAI-compatible endpoint at a caller-supplied URL.
func NewProvider(opts ProviderOptions) (Provider, error) {
	switch opts.Provider {
	case "openai":
		return newOpenAIProvider(opts), nil
	case "custom":
		if opts.APIURL == "" {
			return nil, fmt.Errorf("%w: custom provider requires api_url", ErrValidation)
		}
		return newOpenAIProvider(opts), nil
	case "anthropic":
		return newAnthropicProvider(opts), nil
	case "ollama":
		return newOllamaProvider(opts), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrValidation, opts.Provider)
	}
}

func newProviderHTTPClient() *http.Client {
	// Generation calls are slow; this timeout is the only bound enforced
	// on them.
	return &http.Client{Timeout: 120 * time.Second}
}

// readErrorBody drains a non-2xx response into a short error string.
func readErrorBody(resp *http.Response) string {
	body, _ := io.ReadAll(resp.Body)
	s := string(body)
	if len(s) > 500 {
		s = s[:500] + "..."
	}
	return s
}
