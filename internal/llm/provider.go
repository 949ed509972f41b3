package llm

import (
	"context"
	"fmt"
)

// CompletionRequest is one reasoning turn sent to a model backend.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse carries the model's final text for a turn.
type CompletionResponse struct {
	Content      string
	FinishReason string
}

// Provider is a model backend capable of completing one reasoning turn.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	IsAvailable() bool
}

// NewProviderFromConfig builds the configured provider. An empty name selects
// the mock so a bare dev environment still runs end to end.
func NewProviderFromConfig(name, baseURL, apiKey, model string) (Provider, error) {
	switch name {
	case "ollama":
		return NewOllamaProvider(baseURL, model), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return NewGeminiProvider(apiKey, model), nil
	case "mock", "":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
