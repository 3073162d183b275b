// Package llm implements the language-model port over an OpenAI-compatible
// chat-completions API. Calls run through the llm circuit breaker and the
// shared retry policy.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kredefy/backend/pkg/config"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
)

const (
	defaultMaxTokens   = 600
	defaultTemperature = 0.7
	transcribeModel    = "whisper-large-v3"
)

// Client talks to the chat-completions and transcription endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	breaker    *resilience.Breaker
	retry      resilience.RetryConfig
}

// NewClient creates a client from settings, guarded by the given breaker.
func NewClient(settings config.LLMSettings, breaker *resilience.Breaker) *Client {
	retry := resilience.DefaultRetry
	retry.Retriable = ports.IsRetriable
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    settings.BaseURL,
		apiKey:     settings.APIKey,
		model:      settings.Model,
		breaker:    breaker,
		retry:      retry,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
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

// Chat sends the system and user prompts and returns the assistant text.
func (c *Client) Chat(ctx context.Context, system, prompt string) (string, error) {
	return resilience.Retry(ctx, "llm.chat", c.retry, func(ctx context.Context) (string, error) {
		var text string
		err := c.breaker.Do(func() error {
			var opErr error
			text, opErr = c.chatOnce(ctx, system, prompt)
			return opErr
		})
		return text, err
	})
}

func (c *Client) chatOnce(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ports.NewDependencyError("llm", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("llm", resp); err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ports.ErrLLMInvalidResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ports.ErrLLMInvalidResponse)
	}
	return parsed.Choices[0].Message.Content, nil
}

// Transcribe converts recorded speech to text via the transcription
// endpoint.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return resilience.Retry(ctx, "llm.transcribe", c.retry, func(ctx context.Context) (string, error) {
		var text string
		err := c.breaker.Do(func() error {
			var opErr error
			text, opErr = c.transcribeOnce(ctx, audio, filename)
			return opErr
		})
		return text, err
	})
}

func (c *Client) transcribeOnce(ctx context.Context, audio []byte, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("writing audio part: %w", err)
	}
	if err := mw.WriteField("model", transcribeModel); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ports.NewDependencyError("llm", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus("llm", resp); err != nil {
		return "", err
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ports.ErrLLMInvalidResponse, err)
	}
	return parsed.Text, nil
}

// classifyStatus maps HTTP failure statuses onto the error taxonomy:
// 5xx and 429 are retriable dependency failures, other 4xx are terminal.
func classifyStatus(dependency string, resp *http.Response) error {
	switch {
	case resp.StatusCode < 400:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.NewDependencyError(dependency, fmt.Errorf("status %d: %s", resp.StatusCode, body))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ports.ErrLLMInvalidResponse, resp.StatusCode, body)
	}
}
