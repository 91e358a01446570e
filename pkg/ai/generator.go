package ai

import (
	"context"
	"fmt"
	"strings"
)

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (Gemini, Ollama, OpenAI-compatible) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const (
	ProviderGemini       = "gemini"
	ProviderOllama       = "ollama"
	ProviderOpenAICompat = "openai-compat"

	DefaultGeminiModel = "gemini-2.5-flash"
)

// Config selects and configures one generation backend.
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
}

// NewGenerator builds the TextGenerator named by cfg.Provider. The API key is
// bound here and never read again from the environment.
func NewGenerator(ctx context.Context, cfg Config) (TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGemini
	}
	model := strings.TrimSpace(cfg.Model)
	switch provider {
	case ProviderGemini:
		if model == "" {
			model = DefaultGeminiModel
		}
		return NewGeminiGenerator(ctx, cfg.APIKey, model)
	case ProviderOllama:
		if model == "" {
			return nil, fmt.Errorf("ollama generation model required")
		}
		return NewOllamaGenerator(cfg.BaseURL, model), nil
	case ProviderOpenAICompat:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("openai-compat base url required")
		}
		if model == "" {
			return nil, fmt.Errorf("openai-compat generation model required")
		}
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
}
