package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Match.DirectConfidence != 0.75 {
		t.Errorf("direct confidence %v", cfg.Match.DirectConfidence)
	}
	if cfg.Match.HybridConfidence != 0.5 {
		t.Errorf("hybrid confidence %v", cfg.Match.HybridConfidence)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "askbot" {
		t.Errorf("name %q", cfg.Name)
	}
	if cfg.Convo.SaveEvery != 50 {
		t.Errorf("save_every %d", cfg.Convo.SaveEvery)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "askbot.yaml")
	body := `
name: judgebot
match:
  direct_confidence: 0.8
  hybrid_confidence: 0.6
convo:
  save_interval: 1m
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "judgebot" {
		t.Errorf("name %q", cfg.Name)
	}
	if cfg.Match.DirectConfidence != 0.8 {
		t.Errorf("direct confidence %v", cfg.Match.DirectConfidence)
	}
	// Untouched keys keep their defaults.
	if cfg.Match.NearDuplicateRatio != 0.85 {
		t.Errorf("near duplicate ratio %v", cfg.Match.NearDuplicateRatio)
	}
	interval, err := cfg.SaveInterval()
	if err != nil {
		t.Fatal(err)
	}
	if interval != time.Minute {
		t.Errorf("save interval %v", interval)
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Match.SemanticThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("out-of-range threshold accepted")
	}
}

func TestValidateRejectsDirectBelowHybrid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Match.DirectConfidence = 0.4
	cfg.Match.HybridConfidence = 0.6
	if err := cfg.Validate(); err == nil {
		t.Error("direct < hybrid accepted")
	}
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("unparseable timeout accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASKBOT_LLM_API_KEY", "secret-key")
	t.Setenv("ASKBOT_DEBUG", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "secret-key" {
		t.Errorf("api key %q", cfg.LLM.APIKey)
	}
	if !cfg.Logging.DebugMode {
		t.Error("debug override not applied")
	}
}

func TestDurationDefaultsWhenEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = ""
	cfg.Transport.PollInterval = ""

	timeout, err := cfg.LLMTimeout()
	if err != nil || timeout != 30*time.Second {
		t.Errorf("timeout %v, err %v", timeout, err)
	}
	poll, err := cfg.PollInterval()
	if err != nil || poll != 2*time.Second {
		t.Errorf("poll %v, err %v", poll, err)
	}
}
