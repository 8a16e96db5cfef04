package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatEndpoint is one OpenAI-compatible /chat/completions endpoint.
type ChatEndpoint struct {
	Name   string
	URL    string
	APIKey string
	Model  string
}

// ChatCompleter calls OpenAI-compatible endpoints in order and returns the
// first successful answer. Endpoints without an API key are skipped.
type ChatCompleter struct {
	client    *http.Client
	endpoints []ChatEndpoint
}

func NewChatCompleter(client *http.Client, endpoints ...ChatEndpoint) *ChatCompleter {
	var configured []ChatEndpoint
	for _, e := range endpoints {
		if e.APIKey != "" && e.URL != "" {
			configured = append(configured, e)
		}
	}
	return &ChatCompleter{client: client, endpoints: configured}
}

func (c *ChatCompleter) Name() string { return "chat" }

// Endpoints returns the names of the configured endpoints in call order.
func (c *ChatCompleter) Endpoints() []string {
	names := make([]string, len(c.endpoints))
	for i, e := range c.endpoints {
		names[i] = e.Name
	}
	return names
}

func (c *ChatCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if len(c.endpoints) == 0 {
		return "", ErrNoCompleters
	}

	var errs []error
	for i, e := range c.endpoints {
		text, err := c.call(ctx, e, systemPrompt, userPrompt)
		if err == nil {
			return text, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		if ctx.Err() != nil {
			break
		}
		if i+1 < len(c.endpoints) {
			slog.Warn("generation endpoint failed, trying next", "endpoint", e.Name, "next", c.endpoints[i+1].Name, "error", err)
		}
	}
	return "", fmt.Errorf("all generation endpoints failed: %w", errors.Join(errs...))
}

func (c *ChatCompleter) call(ctx context.Context, e ChatEndpoint, systemPrompt, userPrompt string) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: e.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   2048,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", err
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
