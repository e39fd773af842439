package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	apperrors "github.com/enriqueman/articlecrew/internal/errors"
	"github.com/enriqueman/articlecrew/internal/logger"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderStatic    = "static"
)

// Default models per provider.
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultStaticModel    = "static-draft"
)

// Environment variables holding provider credentials.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
)

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// Request is a single generation call.
type Request struct {
	System      string
	Prompt      string
	Model       string // empty uses the client default
	Temperature float64
	MaxTokens   int

	// Label identifies the caller in logs, usually the task ID.
	Label string
}

// Response is the generated text plus usage accounting.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	FinishReason string
}

// Options configures a client built by New.
type Options struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
}

// New creates the client for opts.Provider. A missing key falls back to the
// provider's environment variable.
func New(ctx context.Context, opts Options) (Client, error) {
	var (
		client Client
		err    error
	)

	switch strings.ToLower(opts.Provider) {
	case ProviderAnthropic, "claude":
		key := firstNonEmpty(opts.APIKey, os.Getenv(EnvAnthropicAPIKey))
		if key == "" {
			return nil, apperrors.NewMissingAPIKeyError(ProviderAnthropic, EnvAnthropicAPIKey)
		}
		client = NewAnthropicClient(key, opts.Model, opts.BaseURL)
	case ProviderGemini, "google":
		key := firstNonEmpty(opts.APIKey, os.Getenv(EnvGeminiAPIKey))
		if key == "" {
			return nil, apperrors.NewMissingAPIKeyError(ProviderGemini, EnvGeminiAPIKey)
		}
		client, err = NewGeminiClient(ctx, key, opts.Model, opts.BaseURL)
		if err != nil {
			return nil, err
		}
	case ProviderStatic, "":
		client = NewStaticClient(opts.Model)
	default:
		return nil, apperrors.NewConfigurationError(apperrors.CodeConfigInvalid,
			fmt.Sprintf("Unknown LLM provider '%s'", opts.Provider),
			"LLM client setup").
			WithContext("provider", opts.Provider).
			WithTroubleshooting("Use one of: anthropic, gemini, static")
	}

	if opts.RequestsPerSecond > 0 {
		client = NewRateLimited(client, opts.RequestsPerSecond, opts.Burst)
	}

	logger.Op.WithFields(map[string]interface{}{
		"provider": client.Name(),
		"rps":      opts.RequestsPerSecond,
	}).Debug("LLM client initialized")

	return client, nil
}

// ProviderConfigured reports whether credentials for provider are present in
// the environment. The static provider never needs any.
func ProviderConfigured(provider string) bool {
	switch strings.ToLower(provider) {
	case ProviderAnthropic, "claude":
		return os.Getenv(EnvAnthropicAPIKey) != ""
	case ProviderGemini, "google":
		return os.Getenv(EnvGeminiAPIKey) != ""
	case ProviderStatic, "":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func emptyOutputError(provider, model, reason string) error {
	return apperrors.NewLLMError(apperrors.CodeLLMEmptyOutput,
		"Model returned no text",
		"Text generation").
		WithContext("provider", provider).
		WithContext("model", model).
		WithContext("finish_reason", reason).
		WithTroubleshooting(
			"Increase max_tokens if the finish reason is a length limit",
			"Retry the run; empty completions are usually transient",
		)
}
