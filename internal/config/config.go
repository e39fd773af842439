// Package config loads articlecrew settings from defaults, an optional YAML
// file and ARTICLECREW_* environment variables. Command-line flags are applied
// on top by the cmd package before Validate is called.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/taskmanager"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARTICLECREW_"

// DefaultTopic is used when no topic is given.
const DefaultTopic = "Tendencias generales en content marketing"

// Config is the full application configuration.
type Config struct {
	Topic    string         `yaml:"topic"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Cache    CacheConfig    `yaml:"cache"`
	Store    StoreConfig    `yaml:"store"`
	Search   SearchConfig   `yaml:"search"`
}

type LLMConfig struct {
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type PipelineConfig struct {
	// Parallel > 1 runs independent sections concurrently.
	Parallel      int                     `yaml:"parallel"`
	TaskTimeout   time.Duration           `yaml:"task_timeout"`
	Retry         taskmanager.RetryPolicy `yaml:"retry"`
	ContextBudget int                     `yaml:"context_budget"`
}

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	CX         string `yaml:"cx"`
	MaxResults int    `yaml:"max_results"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Topic: DefaultTopic,
		LLM: LLMConfig{
			Provider:    "anthropic",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Pipeline: PipelineConfig{
			Parallel:      1,
			TaskTimeout:   5 * time.Minute,
			Retry:         *taskmanager.NewDefaultRetryPolicy(),
			ContextBudget: 12000,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    DefaultStorePath(),
		},
		Search: SearchConfig{
			Enabled:    true,
			MaxResults: 5,
		},
	}
}

// DefaultStorePath is ~/.articlecrew/runs.db, or a relative path when the
// home directory is unknown.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".articlecrew", "runs.db")
	}
	return filepath.Join(home, ".articlecrew", "runs.db")
}

// Load builds a configuration from defaults, the YAML file at path (if any)
// and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.NewConfigurationError(apperrors.CodeConfigInvalid,
				fmt.Sprintf("Cannot read config file %s", path), "Load configuration").
				WithOriginalError(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.NewConfigurationError(apperrors.CodeConfigInvalid,
				fmt.Sprintf("Cannot parse config file %s", path), "Load configuration").
				WithOriginalError(err).
				WithTroubleshooting("Durations use Go syntax such as 90s or 5m")
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	var err error
	parse := func(key string, set func(string) error) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" || err != nil {
			return
		}
		if perr := set(v); perr != nil {
			err = apperrors.NewConfigurationError(apperrors.CodeConfigInvalid,
				fmt.Sprintf("Invalid value for %s%s: '%s'", EnvPrefix, key, v), "Load configuration").
				WithOriginalError(perr)
		}
	}

	str("TOPIC", &c.Topic)
	str("PROVIDER", &c.LLM.Provider)
	str("MODEL", &c.LLM.Model)
	str("REDIS_URL", &c.Cache.RedisURL)
	str("STORE", &c.Store.Path)

	parse("TEMPERATURE", func(v string) (e error) { c.LLM.Temperature, e = strconv.ParseFloat(v, 64); return })
	parse("MAX_TOKENS", func(v string) (e error) { c.LLM.MaxTokens, e = strconv.Atoi(v); return })
	parse("RPS", func(v string) (e error) { c.LLM.RequestsPerSecond, e = strconv.ParseFloat(v, 64); return })
	parse("PARALLEL", func(v string) (e error) { c.Pipeline.Parallel, e = strconv.Atoi(v); return })
	parse("RETRIES", func(v string) (e error) { c.Pipeline.Retry.MaxAttempts, e = strconv.Atoi(v); return })
	parse("TASK_TIMEOUT", func(v string) (e error) { c.Pipeline.TaskTimeout, e = time.ParseDuration(v); return })
	parse("CACHE_TTL", func(v string) (e error) { c.Cache.TTL, e = time.ParseDuration(v); return })
	parse("CACHE", func(v string) (e error) { c.Cache.Enabled, e = strconv.ParseBool(v); return })

	return err
}

// Validate checks value ranges after all overrides are applied.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "anthropic", "claude", "gemini", "google", "static":
	default:
		return invalid("llm.provider", c.LLM.Provider, "Use one of: anthropic, gemini, static")
	}

	checks := []struct {
		ok    bool
		field string
		value interface{}
		hint  string
	}{
		{c.LLM.Temperature >= 0 && c.LLM.Temperature <= 2, "llm.temperature", c.LLM.Temperature, "Use a value between 0 and 2"},
		{c.LLM.MaxTokens > 0, "llm.max_tokens", c.LLM.MaxTokens, "Use a positive token limit"},
		{c.LLM.RequestsPerSecond >= 0, "llm.requests_per_second", c.LLM.RequestsPerSecond, "Use 0 to disable rate limiting"},
		{c.Pipeline.Parallel >= 1, "pipeline.parallel", c.Pipeline.Parallel, "Use 1 for sequential runs"},
		{c.Pipeline.TaskTimeout >= 0, "pipeline.task_timeout", c.Pipeline.TaskTimeout, "Use 0 to disable the timeout"},
		{c.Pipeline.Retry.MaxAttempts >= 1, "pipeline.retry.max_attempts", c.Pipeline.Retry.MaxAttempts, "Use 1 to disable retries"},
		{c.Pipeline.ContextBudget > 0, "pipeline.context_budget", c.Pipeline.ContextBudget, "Use a positive token budget"},
		{!c.Store.Enabled || c.Store.Path != "", "store.path", c.Store.Path, "Set a database path or disable the store"},
	}
	for _, check := range checks {
		if !check.ok {
			return invalid(check.field, fmt.Sprint(check.value), check.hint)
		}
	}
	return nil
}

// RetryPolicy returns a copy of the configured policy.
func (c *Config) RetryPolicy() *taskmanager.RetryPolicy {
	p := c.Pipeline.Retry
	return &p
}

// ResolvedTopic returns the topic or the default when blank.
func (c *Config) ResolvedTopic() string {
	if t := strings.TrimSpace(c.Topic); t != "" {
		return t
	}
	return DefaultTopic
}

func invalid(field, value, hint string) error {
	return apperrors.NewValidationFailedError(field, value, "Validate configuration").
		WithTroubleshooting(hint)
}
