// Package llm wraps the generative completion service: provider clients with
// timeout/retry discipline, plus the planner that turns completions into
// structured reasoning plans and final prose.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"askbot/internal/config"
	"askbot/internal/logging"
)

// Client is a provider-agnostic completion client. Implementations handle
// their own timeouts, rate limiting and retries.
type Client interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewClient builds a client from config. Provider "none" returns (nil, nil),
// as does a provider whose API key is missing; callers then run
// scenario-only. A missing credential must never abort boot.
func NewClient(cfg config.LLMConfig) (Client, error) {
	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid llm timeout: %w", err)
		}
		timeout = d
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	switch strings.ToLower(cfg.Provider) {
	case "none", "":
		return nil, nil
	case "genai", "gemini":
		if cfg.APIKey == "" {
			logging.Get(logging.CategoryLLM).Warn("no GenAI API key configured; generative answers disabled")
			return nil, nil
		}
		return NewGenAIClient(cfg.APIKey, cfg.Model, timeout, retries)
	case "openai", "openai-compat":
		return NewOpenAICompatClient(OpenAICompatConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    timeout,
			MaxRetries: retries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// stripCodeFences removes surrounding markdown code-fence markers so
// fenced JSON can be parsed.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
