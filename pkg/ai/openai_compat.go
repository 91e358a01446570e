package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// OpenAICompatGenerator calls an OpenAI-style /chat/completions endpoint
// (vLLM, LiteLLM, LocalAI, OpenRouter and similar).
type OpenAICompatGenerator struct {
	endpoint *chatEndpoint
	model    string
}

// NewOpenAICompatGenerator builds a generator. baseURL includes the version
// prefix, e.g. "http://localhost:8000/v1". apiKey may be empty.
func NewOpenAICompatGenerator(baseURL, apiKey, model string) *OpenAICompatGenerator {
	return &OpenAICompatGenerator{
		endpoint: newChatEndpoint(ProviderOpenAICompat, baseURL, apiKey, openAIAPIError),
		model:    strings.TrimSpace(model),
	}
}

// GenerateText implements TextGenerator.
func (g *OpenAICompatGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("openai-compat generation model required")
	}
	req := completionRequest{Model: g.model, Messages: chatMessages(systemPrompt, userPrompt)}
	var resp completionResponse
	if err := g.endpoint.post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("empty response from openai-compat api")
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func openAIAPIError(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	return e.Error.Message
}
