// Package textgen talks to OpenAI-compatible chat completion APIs (Groq by default).
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"descriptai/internal/domain"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.3-70b-versatile"
	defaultTimeout = 30 * time.Second
)

var modelAliases = map[string]string{
	"llama-3.3-70b":     defaultModel,
	"llama3.3-70b":      defaultModel,
	"llama-3.3":         defaultModel,
	"llama-70b":         defaultModel,
	"llama-3.1-8b":      "llama-3.1-8b-instant",
	"llama3-8b":         "llama-3.1-8b-instant",
	"llama-3.1-8b-fast": "llama-3.1-8b-instant",
}

var knownModels = map[string]struct{}{
	defaultModel:           {},
	"llama-3.1-8b-instant": {},
}

// ErrRateLimited is returned when the upstream answers 429.
var ErrRateLimited = fmt.Errorf("textgen: %w", domain.ErrRateLimited)

// StatusError reports any other non-2xx upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("textgen status %d", e.Code)
	}
	return fmt.Sprintf("textgen status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return domain.ErrProviderFailure }

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	OnWarning  func(reason, detail string)
}

// Client is a chat completions client returning the raw model text.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Request is one completion call.
type Request struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
	JSONOutput  bool
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("textgen api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	requested := strings.TrimSpace(opts.Model)
	model, reason := normalizeModel(requested)
	if reason != "" && opts.OnWarning != nil {
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", requested, model))
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

// Model returns the resolved model name.
func (c *Client) Model() string { return c.model }

// Complete sends the prompt and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONOutput {
		payload.ResponseFormat = &chatFormat{Type: "json_object"}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("textgen request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", domain.ErrProviderFailure)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var apiErr chatError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(data))
}

func normalizeModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if _, ok := knownModels[normalized]; ok {
		return normalized, ""
	}
	if alias, ok := modelAliases[normalized]; ok {
		return alias, "alias"
	}
	// Unknown names are passed through; the upstream catalogue changes often.
	return normalized, "unknown"
}
