// Package llm talks to an OpenAI-compatible chat completions API. One model
// drafts SQL from the schema description, another summarizes query results
// for the end user.
package llm

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
	"time"
)

// Config holds the API credentials and the model assignments.
type Config struct {
	APIKey      string
	BaseURL     string
	SQLModel    string
	AnswerModel string
}

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	Temperature         float64   `json:"temperature,omitempty"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason,omitempty"`
		Message      struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Client calls the chat completions endpoint. The base URL is configurable
// so self-hosted OpenAI-compatible servers work too.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a client from the given configuration.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 90 * time.Second},
		logger: logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Chat sends the messages to the given model and returns the content of the
// first choice. Errors cover HTTP failures, API-level errors and empty
// completions.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("missing OpenAI API key")
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}

	body, err := json.Marshal(chatRequest{
		Model:               model,
		Messages:            messages,
		Temperature:         temperature,
		MaxCompletionTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai status=%d body=%s", resp.StatusCode, preview(string(raw), 400))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openai: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if out.Choices[0].FinishReason == "length" && content == "" {
		return "", fmt.Errorf("openai: response truncated at max_tokens with no content (model=%s)", model)
	}
	return content, nil
}

// preview truncates long strings for error messages and logs.
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
