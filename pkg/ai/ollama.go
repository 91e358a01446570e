package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

// OllamaGenerator talks to a local Ollama server through /api/chat.
type OllamaGenerator struct {
	endpoint *chatEndpoint
	model    string
}

// NewOllamaGenerator builds a generator for model. An empty baseURL points at
// the default local server.
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaGenerator{
		endpoint: newChatEndpoint(ProviderOllama, baseURL, "", ollamaAPIError),
		model:    strings.TrimSpace(model),
	}
}

// GenerateText implements TextGenerator.
func (g *OllamaGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("ollama generation model required")
	}
	req := ollamaChatRequest{Model: g.model, Messages: chatMessages(systemPrompt, userPrompt)}
	var resp ollamaChatResponse
	if err := g.endpoint.post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return text, nil
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
}

func ollamaAPIError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	return e.Error
}
