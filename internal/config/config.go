// Package config loads askbot configuration from YAML with environment
// variable overrides. Match thresholds live here rather than as constants in
// the pipeline so they can be tuned without code changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all askbot configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// StateDir is where logs, the context database and caches live.
	StateDir string `yaml:"state_dir"`

	// Generative collaborator configuration
	LLM LLMConfig `yaml:"llm"`

	// Embedding engine configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Match thresholds and blend weights
	Match MatchConfig `yaml:"match"`

	// Knowledge sources
	Catalog CatalogConfig `yaml:"catalog"`

	// Conversation context persistence
	Convo ConvoConfig `yaml:"convo"`

	// Messaging transport
	Transport TransportConfig `yaml:"transport"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the generative collaborator.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // genai, openai
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"` // for openai-compatible endpoints
	Timeout     string  `yaml:"timeout"`
	MaxRetries  int     `yaml:"max_retries"`
	Temperature float64 `yaml:"temperature"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama, genai, none
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
	CachePath      string `yaml:"cache_path"` // sqlite embedding cache, empty disables
}

// MatchConfig holds the scoring thresholds and weights. The defaults are the
// hand-tuned values from the original system; nothing downstream assumes they
// are optimal.
type MatchConfig struct {
	// Scorer tiers
	NearDuplicateRatio float64 `yaml:"near_duplicate_ratio"` // tier 2 text-similarity cutoff
	KeywordWeight      float64 `yaml:"keyword_weight"`       // tier 3 keyword hit weight
	SemanticWeight     float64 `yaml:"semantic_weight"`      // tier 3 similarity weight
	MinBlendedScore    float64 `yaml:"min_blended_score"`    // below this: no confident match
	AlternateFloor     float64 `yaml:"alternate_floor"`      // min score for alternates
	MaxAlternates      int     `yaml:"max_alternates"`

	// Semantic matcher
	SemanticTopK      int     `yaml:"semantic_top_k"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`

	// Plan selection
	DirectConfidence float64 `yaml:"direct_confidence"` // above this: direct_scenario
	HybridConfidence float64 `yaml:"hybrid_confidence"` // above this: hybrid_scenario
}

// CatalogConfig configures the scenario catalog and docs corpus.
type CatalogConfig struct {
	ScenariosPath string `yaml:"scenarios_path"`
	TemplatesPath string `yaml:"templates_path"`
	DocsDir       string `yaml:"docs_dir"`
	HotReload     bool   `yaml:"hot_reload"`
}

// ConvoConfig configures conversation context persistence.
type ConvoConfig struct {
	DatabasePath  string `yaml:"database_path"`
	SaveInterval  string `yaml:"save_interval"`  // time-based flush threshold
	SaveEvery     int    `yaml:"save_every"`     // interaction-count flush threshold
	HistoryWindow int    `yaml:"history_window"` // bounded Q/A ring size
}

// TransportConfig configures the messaging transport.
type TransportConfig struct {
	Kind         string `yaml:"kind"` // telegram, tui
	Token        string `yaml:"token"`
	BaseURL      string `yaml:"base_url"`
	PollInterval string `yaml:"poll_interval"`
	BotMention   string `yaml:"bot_mention"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Level     string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:     "askbot",
		Version:  "1.0.0",
		StateDir: ".askbot",

		LLM: LLMConfig{
			Provider:    "genai",
			Model:       "gemini-2.0-flash",
			Timeout:     "30s",
			MaxRetries:  3,
			Temperature: 0.7,
		},

		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			CachePath:      ".askbot/embeddings.db",
		},

		Match: MatchConfig{
			NearDuplicateRatio: 0.85,
			KeywordWeight:      0.1,
			SemanticWeight:     0.9,
			MinBlendedScore:    0.4,
			AlternateFloor:     0.3,
			MaxAlternates:      3,
			SemanticTopK:       3,
			SemanticThreshold:  0.5,
			DirectConfidence:   0.75,
			HybridConfidence:   0.5,
		},

		Catalog: CatalogConfig{
			ScenariosPath: "knowledgebase/scenarios.json",
			TemplatesPath: "knowledgebase/templates.json",
			DocsDir:       "knowledgebase/docs",
			HotReload:     false,
		},

		Convo: ConvoConfig{
			DatabasePath:  ".askbot/contexts.db",
			SaveInterval:  "5m",
			SaveEvery:     50,
			HistoryWindow: 10,
		},

		Transport: TransportConfig{
			Kind:         "telegram",
			BaseURL:      "https://api.telegram.org",
			PollInterval: "2s",
			BotMention:   "@askbot",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ASKBOT_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("ASKBOT_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("ASKBOT_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("ASKBOT_EMBEDDING_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
	}
	if v := os.Getenv("ASKBOT_TELEGRAM_TOKEN"); v != "" {
		c.Transport.Token = v
	}
	if v := os.Getenv("ASKBOT_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("ASKBOT_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	m := c.Match
	for _, t := range []struct {
		name string
		v    float64
	}{
		{"near_duplicate_ratio", m.NearDuplicateRatio},
		{"min_blended_score", m.MinBlendedScore},
		{"alternate_floor", m.AlternateFloor},
		{"semantic_threshold", m.SemanticThreshold},
		{"direct_confidence", m.DirectConfidence},
		{"hybrid_confidence", m.HybridConfidence},
	} {
		if t.v < 0 || t.v > 1 {
			return fmt.Errorf("match.%s must be in [0,1], got %v", t.name, t.v)
		}
	}
	if m.DirectConfidence < m.HybridConfidence {
		return fmt.Errorf("match.direct_confidence (%v) must be >= match.hybrid_confidence (%v)",
			m.DirectConfidence, m.HybridConfidence)
	}
	if _, err := c.LLMTimeout(); err != nil {
		return fmt.Errorf("llm.timeout: %w", err)
	}
	if _, err := c.SaveInterval(); err != nil {
		return fmt.Errorf("convo.save_interval: %w", err)
	}
	return nil
}

// LLMTimeout parses the collaborator timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	if c.LLM.Timeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(c.LLM.Timeout)
}

// SaveInterval parses the context flush interval.
func (c *Config) SaveInterval() (time.Duration, error) {
	if c.Convo.SaveInterval == "" {
		return 5 * time.Minute, nil
	}
	return time.ParseDuration(c.Convo.SaveInterval)
}

// PollInterval parses the transport poll interval.
func (c *Config) PollInterval() (time.Duration, error) {
	if c.Transport.PollInterval == "" {
		return 2 * time.Second, nil
	}
	return time.ParseDuration(c.Transport.PollInterval)
}
