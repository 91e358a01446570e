package ai

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

// Completion calls block until the model finishes, so the client timeout is
// generous.
const chatHTTPTimeout = 120 * time.Second

// chatMessage is the role/content pair shared by the Ollama and
// OpenAI-compatible chat APIs.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatMessages puts the system prompt first and drops it when blank.
func chatMessages(systemPrompt, userPrompt string) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	return append(msgs, chatMessage{Role: "user", Content: userPrompt})
}

// chatEndpoint posts JSON to one chat-style HTTP API.
type chatEndpoint struct {
	provider   string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	// apiError pulls a provider message out of an error body; "" means none.
	apiError func(body []byte) string
}

func newChatEndpoint(provider, baseURL, apiKey string, apiError func([]byte) string) *chatEndpoint {
	return &chatEndpoint{
		provider:   provider,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: chatHTTPTimeout},
		apiError:   apiError,
	}
}

func (e *chatEndpoint) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s encode: %w", e.provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", e.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if msg := e.apiError(raw); msg != "" {
			return fmt.Errorf("%s api error: %s", e.provider, msg)
		}
		return fmt.Errorf("%s api error: %s", e.provider, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", e.provider, err)
	}
	return nil
}
