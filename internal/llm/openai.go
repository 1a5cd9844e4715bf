package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"askbot/internal/logging"
)

// OpenAICompatConfig configures the OpenAI-compatible client. Works against
// any endpoint speaking the /chat/completions protocol.
type OpenAICompatConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAICompatClient implements Client over the chat-completions HTTP API.
type OpenAICompatClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxRetries  int
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// NewOpenAICompatClient creates a client with the given config.
func NewOpenAICompatClient(cfg OpenAICompatConfig) *OpenAICompatClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &OpenAICompatClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a prompt and returns the completion.
func (c *OpenAICompatClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message. Rate limits and
// transient failures are retried with exponential backoff.
func (c *OpenAICompatClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return "", fmt.Errorf("API key not configured")
	}

	// Rate limiting: keep at least 100ms between requests.
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	var messages []chatMessage
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   2048,
		Temperature: 0.3,
	}

	start := time.Now()
	var lastErr error

	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("API returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("API error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		text := strings.TrimSpace(parsed.Choices[0].Message.Content)
		logging.LLM("completion in %v (response_len=%d)", time.Since(start), len(text))
		return text, nil
	}

	logging.Get(logging.CategoryLLM).Error("max retries exceeded after %v: %v", time.Since(start), lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
