package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"askbot/internal/logging"
)

// =============================================================================
// GOOGLE GENAI COMPLETION CLIENT
// =============================================================================

// GenAIClient implements Client over Google's Gemini API.
type GenAIClient struct {
	client     *genai.Client
	model      string
	timeout    time.Duration
	maxRetries int
}

// NewGenAIClient creates a Gemini completion client.
func NewGenAIClient(apiKey, model string, timeout time.Duration, maxRetries int) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{
		client:     client,
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
	}, nil
}

// Complete sends a prompt and returns the completion.
func (c *GenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction, retrying
// transient failures with exponential backoff.
func (c *GenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.3),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
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

		result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), cfg)
		if err != nil {
			lastErr = fmt.Errorf("generation failed: %w", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		text := strings.TrimSpace(result.Text())
		if text == "" {
			lastErr = fmt.Errorf("empty completion returned")
			continue
		}

		logging.LLM("genai completion in %v (response_len=%d)", time.Since(start), len(text))
		return text, nil
	}

	logging.Get(logging.CategoryLLM).Error("genai max retries exceeded after %v: %v", time.Since(start), lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
