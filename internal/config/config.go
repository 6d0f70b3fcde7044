package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Prompt template pairs. User templates carry %s substitution slots; the
// slot order is documented next to each stage that formats them.
type ExtractionPrompts struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

type ExperiencePrompts struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

type DraftPrompts struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

type PreferencePrompts struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

type VoicePrompts struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type PipelineConfig struct {
	// MaxPromptChars bounds the transcript slice sent to the model.
	MaxPromptChars int `toml:"max_prompt_chars"`
	// BatchDelayMS is the pause between backfill items. It is a throughput
	// throttle for the inference provider, not a correctness mechanism.
	BatchDelayMS int `toml:"batch_delay_ms"`
}

type Config struct {
	LLM         LLMConfig         `toml:"llm"`
	Database    DatabaseConfig    `toml:"database"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Extraction  ExtractionPrompts `toml:"extraction"`
	Experience  ExperiencePrompts `toml:"experience"`
	Drafts      DraftPrompts      `toml:"drafts"`
	Preferences PreferencePrompts `toml:"preferences"`
	Voice       VoicePrompts      `toml:"voice"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pipeline.MaxPromptChars <= 0 {
		c.Pipeline.MaxPromptChars = 8000
	}
	if c.Pipeline.BatchDelayMS < 0 {
		c.Pipeline.BatchDelayMS = 0
	}
	if c.Database.Path == "" {
		c.Database.Path = "followup.db"
	}
}

// ApplyEnv overrides file settings with environment variables when present.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
}
